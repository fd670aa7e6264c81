// Package bootstrap 组装两个服务共用的运行时：配置、日志、追踪、指标、HTTP服务和服务发现
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hewenyu/contentmesh/internal/apihandler"
	"github.com/hewenyu/contentmesh/internal/config"
	"github.com/hewenyu/contentmesh/internal/core/model"
	"github.com/hewenyu/contentmesh/internal/discovery"
	"github.com/hewenyu/contentmesh/internal/etcdclient"
	"github.com/hewenyu/contentmesh/internal/telemetry"
	"github.com/hewenyu/contentmesh/pkg/storage"
	etcdstore "github.com/hewenyu/contentmesh/pkg/storage/etcd"
	"github.com/hewenyu/contentmesh/pkg/storage/memory"
	"github.com/hewenyu/contentmesh/pkg/storage/mysql"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 优雅关闭的最长等待时间
const shutdownTimeout = 10 * time.Second

// Runtime 服务运行时
type Runtime struct {
	Config   *config.Config
	Logger   config.Logger
	Registry *prometheus.Registry

	closers []func()

	// 服务注册使用的etcd连接，首次使用时建立
	discoveryClient *etcdclient.EtcdClient
	discoveryDialed bool
}

// Setup 加载配置并初始化日志、追踪和指标
func Setup(configPath, service string) (*Runtime, error) {
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	cfg, err := config.LoadConfig(configPath, service)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}

	logger, err := config.NewLoggerWithOptions(config.LogOptions{
		Development: cfg.Log.Development,
		Level:       cfg.Log.Level,
		OutputFile:  cfg.Log.OutputFile,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	rt := &Runtime{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}
	rt.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	shutdownTracing, err := telemetry.SetupTracing(cfg.Telemetry.TracingEnabled, cfg.Service.Name, logger)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn("关闭链路追踪失败", zap.Error(err))
		}
	})

	logger.Info("服务启动中...",
		zap.String("service", cfg.Service.Name),
		zap.Int("port", cfg.Service.Port),
		zap.String("database", cfg.Database.Driver),
		zap.Bool("discovery", cfg.Discovery.Enabled))
	return rt, nil
}

// ContentStorage 按配置创建内容存储
func (rt *Runtime) ContentStorage() (storage.ContentStorage, error) {
	switch rt.Config.Database.Driver {
	case "mysql":
		db, err := rt.openMySQL(&model.Content{})
		if err != nil {
			return nil, err
		}
		return mysql.NewContentStorage(db), nil
	case "etcd":
		client, err := rt.openEtcd()
		if err != nil {
			return nil, err
		}
		return etcdstore.NewContentStorage(client), nil
	default:
		return memory.NewContentStorage(), nil
	}
}

// UserStorage 按配置创建用户存储
func (rt *Runtime) UserStorage() (storage.UserStorage, error) {
	switch rt.Config.Database.Driver {
	case "mysql":
		db, err := rt.openMySQL(&model.User{})
		if err != nil {
			return nil, err
		}
		return mysql.NewUserStorage(db), nil
	case "etcd":
		client, err := rt.openEtcd()
		if err != nil {
			return nil, err
		}
		return etcdstore.NewUserStorage(client), nil
	default:
		return memory.NewUserStorage(), nil
	}
}

func (rt *Runtime) openMySQL(models ...interface{}) (*gorm.DB, error) {
	db, closeDB, err := mysql.NewClient(rt.Config.Database.DSN, rt.Logger, models...)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, closeDB)
	return db, nil
}

func (rt *Runtime) openEtcd() (*etcdstore.Client, error) {
	client, err := etcdstore.NewClient(rt.Config)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, func() { _ = client.Close() })
	return client, nil
}

// Run 启动HTTP服务和服务发现，阻塞直到收到退出信号
//
// 关闭顺序：注销服务 -> 关闭HTTP服务 -> 关闭etcd和数据库连接。
func (rt *Runtime) Run(routes []apihandler.Routes, middlewares ...echo.MiddlewareFunc) error {
	handler := apihandler.NewAPIHandler(rt.Config, rt.Logger, rt.Registry, routes...)
	for _, m := range middlewares {
		handler.Echo().Use(m)
	}
	if err := handler.Start(); err != nil {
		return err
	}

	manager := rt.startDiscovery()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	rt.Logger.Info("接收到关闭信号，正在优雅关闭...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if manager != nil {
		manager.Stop(ctx)
	}
	err := handler.Shutdown(ctx)
	rt.Close()
	return err
}

// Close 按注册的逆序释放资源
func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
	_ = rt.Logger.Sync()
}

// DiscoveryClient 返回服务注册使用的etcd客户端，未启用服务发现或连接失败时返回nil
func (rt *Runtime) DiscoveryClient() *etcdclient.EtcdClient {
	if !rt.Config.Discovery.Enabled {
		return nil
	}
	if rt.discoveryDialed {
		return rt.discoveryClient
	}
	rt.discoveryDialed = true

	client := etcdclient.NewEtcdClient(rt.Config, rt.Logger)
	if err := client.Connect(); err != nil {
		rt.Logger.Warn("连接etcd失败，跳过服务注册", zap.Error(err))
		return nil
	}
	rt.closers = append(rt.closers, func() { _ = client.Close() })
	rt.discoveryClient = client
	return client
}

// startDiscovery 注册当前实例，etcd不可用时服务照常运行
//
// 连通性检查和注册共用discovery.timeout，启动最多被阻塞这么久。
func (rt *Runtime) startDiscovery() *discovery.Manager {
	if !rt.Config.Discovery.Enabled {
		rt.Logger.Info("服务发现未启用")
		return nil
	}

	client := rt.DiscoveryClient()
	if client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), rt.Config.Discovery.Timeout)
	defer cancel()

	if err := client.Ping(ctx); err != nil {
		// 管理器照常启动，etcd恢复后由健康检查重新注册
		rt.Logger.Warn("etcd不可达，服务注册将在健康检查成功后重试", zap.Error(err))
	}

	registry := discovery.NewEtcdRegistry(client, rt.Logger)
	manager := discovery.NewManager(registry, discovery.NewRegistration(rt.Config), rt.Logger)
	manager.Start(ctx)
	return manager
}
