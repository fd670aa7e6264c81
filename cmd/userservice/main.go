package main

import (
	"fmt"
	"os"

	"github.com/hewenyu/contentmesh/internal/apihandler"
	"github.com/hewenyu/contentmesh/internal/bootstrap"
	"github.com/hewenyu/contentmesh/internal/user"
	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:          "userservice",
	Short:        "用户服务：管理用户并记录最后内容更新时间",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run() error {
	rt, err := bootstrap.Setup(configFile, "userservice")
	if err != nil {
		return err
	}

	store, err := rt.UserStorage()
	if err != nil {
		rt.Close()
		return err
	}

	svc := user.NewService(store, rt.Logger)
	return rt.Run(
		[]apihandler.Routes{apihandler.NewUserHandler(svc)},
		apihandler.APIKeyAuth(rt.Config.Auth.APIKey),
	)
}
