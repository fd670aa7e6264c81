package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hewenyu/contentmesh/internal/apihandler"
	"github.com/hewenyu/contentmesh/internal/bootstrap"
	"github.com/hewenyu/contentmesh/internal/content"
	"github.com/hewenyu/contentmesh/internal/discovery"
	"github.com/hewenyu/contentmesh/internal/resilience"
	"github.com/hewenyu/contentmesh/internal/userclient"
	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:          "contentservice",
	Short:        "内容服务：管理内容并在更新后通知用户服务",
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
	rt, err := bootstrap.Setup(configFile, "contentservice")
	if err != nil {
		return err
	}
	cfg := rt.Config

	store, err := rt.ContentStorage()
	if err != nil {
		rt.Close()
		return err
	}

	// Notify和FetchUser共享同一个熔断器
	observer := resilience.Observers{
		resilience.NewLogObserver(rt.Logger),
		resilience.NewMetricsObserver(rt.Registry),
	}
	breaker := resilience.NewBreaker("userservice", cfg.Resilience.BreakerThreshold, cfg.Resilience.BreakDuration, observer)
	pipeline := resilience.NewPipeline(resilience.Options{
		Timeout: cfg.Resilience.Timeout,
		Retry: resilience.RetryPolicy{
			MaxRetries:  cfg.Resilience.MaxRetries,
			BackoffBase: cfg.Resilience.BackoffBase,
		},
	}, breaker, observer)

	resolver := discovery.NewResolver(cfg, rt.Logger)
	if client := rt.DiscoveryClient(); client != nil {
		resolver = resolver.WithInstances(client)
	}
	baseURL := resolver.ResolveBaseURL(context.Background())
	notifier := userclient.NewClient(baseURL, cfg.UserService.APIKey, pipeline, rt.Logger)

	svc := content.NewService(store, notifier, rt.Logger)
	return rt.Run([]apihandler.Routes{apihandler.NewContentHandler(svc)})
}
