// Package etcdclient 封装服务注册所需的etcd操作
package etcdclient

import (
	"context"
	"fmt"
	"time"

	"github.com/hewenyu/contentmesh/internal/config"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

// etcd操作的超时时间
const etcdTimeout = 5 * time.Second

// Client 定义etcd客户端接口
type Client interface {
	// Connect 连接到etcd集群
	Connect() error

	// Close 关闭连接
	Close() error

	// Ping 检查etcd集群状态
	Ping(ctx context.Context) error

	// RegisterService 以租约方式注册服务实例，返回租约ID
	RegisterService(ctx context.Context, instance *ServiceInstance) (clientv3.LeaseID, error)

	// KeepAliveOnce 续约一次，租约已过期时返回ErrLeaseNotFound
	KeepAliveOnce(ctx context.Context, leaseID clientv3.LeaseID) error

	// DeregisterService 从etcd注销服务实例
	DeregisterService(ctx context.Context, serviceName, instanceID string) error

	// RevokeLease 撤销租约
	RevokeLease(ctx context.Context, leaseID clientv3.LeaseID) error

	// GetServiceInstances 获取指定服务的所有实例
	GetServiceInstances(ctx context.Context, serviceName string) ([]*ServiceInstance, error)
}

// EtcdClient 实现Client接口
type EtcdClient struct {
	client *clientv3.Client
	cfg    *config.Config
	logger config.Logger
}

var _ Client = (*EtcdClient)(nil)

// NewEtcdClient 创建一个新的etcd客户端
func NewEtcdClient(cfg *config.Config, logger config.Logger) *EtcdClient {
	return &EtcdClient{
		cfg:    cfg,
		logger: logger,
	}
}

// Connect 连接到etcd集群
func (e *EtcdClient) Connect() error {
	var err error
	e.logger.Info("连接到etcd集群", zap.Strings("endpoints", e.cfg.Etcd.Endpoints))

	dialTimeout := e.cfg.Etcd.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = etcdTimeout
	}

	e.client, err = clientv3.New(clientv3.Config{
		Endpoints:   e.cfg.Etcd.Endpoints,
		DialTimeout: dialTimeout,
		Username:    e.cfg.Etcd.Username,
		Password:    e.cfg.Etcd.Password,
	})
	if err != nil {
		e.logger.Error("连接etcd失败", zap.Error(err))
		return fmt.Errorf("连接etcd失败: %w", err)
	}

	return nil
}

// Close 关闭连接
func (e *EtcdClient) Close() error {
	if e.client != nil {
		e.logger.Info("关闭etcd连接")
		return e.client.Close()
	}
	return nil
}

// Ping 检查etcd集群状态
func (e *EtcdClient) Ping(ctx context.Context) error {
	if e.client == nil {
		return fmt.Errorf("etcd客户端未连接")
	}

	ctx, cancel := context.WithTimeout(ctx, etcdTimeout)
	defer cancel()

	_, err := e.client.Status(ctx, e.cfg.Etcd.Endpoints[0])
	if err != nil {
		e.logger.Error("etcd健康检查失败", zap.Error(err))
		return fmt.Errorf("etcd健康检查失败: %w", err)
	}

	e.logger.Debug("etcd健康检查成功")
	return nil
}
