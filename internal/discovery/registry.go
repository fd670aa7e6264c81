package discovery

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/hewenyu/contentmesh/internal/config"
	"github.com/hewenyu/contentmesh/internal/etcdclient"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

// Registry 注册中心接口
type Registry interface {
	// Register 注册实例
	Register(ctx context.Context, reg *Registration) error

	// Heartbeat 上报实例健康，实例不在注册中心时重新注册
	Heartbeat(ctx context.Context, reg *Registration) error

	// Deregister 注销实例
	Deregister(ctx context.Context, reg *Registration) error
}

// EtcdRegistry 基于etcd租约的注册中心
//
// 租约TTL取DeregisterCriticalAfter，健康检查持续失败时不再续约，实例随租约过期自动移除。
type EtcdRegistry struct {
	client etcdclient.Client
	logger config.Logger

	mu     sync.Mutex
	leases map[string]clientv3.LeaseID
}

var _ Registry = (*EtcdRegistry)(nil)

// NewEtcdRegistry 创建etcd注册中心
func NewEtcdRegistry(client etcdclient.Client, logger config.Logger) *EtcdRegistry {
	return &EtcdRegistry{
		client: client,
		logger: logger,
		leases: make(map[string]clientv3.LeaseID),
	}
}

// Register 注册实例
func (r *EtcdRegistry) Register(ctx context.Context, reg *Registration) error {
	leaseID, err := r.client.RegisterService(ctx, toInstance(reg))
	if err != nil {
		return fmt.Errorf("注册实例失败: %w", err)
	}

	r.mu.Lock()
	r.leases[reg.ID] = leaseID
	r.mu.Unlock()
	return nil
}

// Heartbeat 续约，租约丢失时重新注册
func (r *EtcdRegistry) Heartbeat(ctx context.Context, reg *Registration) error {
	r.mu.Lock()
	leaseID, ok := r.leases[reg.ID]
	r.mu.Unlock()

	if !ok {
		r.logger.Info("实例尚未注册，重新注册", zap.String("id", reg.ID))
		return r.Register(ctx, reg)
	}

	err := r.client.KeepAliveOnce(ctx, leaseID)
	if errors.Is(err, etcdclient.ErrLeaseNotFound) {
		r.logger.Info("租约已过期，重新注册", zap.String("id", reg.ID))
		return r.Register(ctx, reg)
	}
	return err
}

// Deregister 注销实例并撤销租约
func (r *EtcdRegistry) Deregister(ctx context.Context, reg *Registration) error {
	r.mu.Lock()
	leaseID, ok := r.leases[reg.ID]
	delete(r.leases, reg.ID)
	r.mu.Unlock()

	err := r.client.DeregisterService(ctx, reg.Name, reg.ID)
	if ok {
		err = errors.Join(err, r.client.RevokeLease(ctx, leaseID))
	}
	return err
}

func toInstance(reg *Registration) *etcdclient.ServiceInstance {
	return &etcdclient.ServiceInstance{
		ServiceName: reg.Name,
		InstanceID:  reg.ID,
		Address:     reg.Address,
		Port:        reg.Port,
		HealthURL:   reg.Check.HTTP,
		TTL:         ttlSeconds(reg),
	}
}

func ttlSeconds(reg *Registration) int {
	ttl := int(math.Ceil(reg.Check.DeregisterCriticalAfter.Seconds()))
	if ttl < 1 {
		ttl = 1
	}
	return ttl
}
