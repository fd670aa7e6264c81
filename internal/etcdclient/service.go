package etcdclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/etcd/api/v3/v3rpc/rpctypes"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

// ErrLeaseNotFound 租约已过期或已被撤销
var ErrLeaseNotFound = errors.New("租约不存在")

// ServiceInstance 表示一个服务实例
type ServiceInstance struct {
	ServiceName   string            `json:"service_name"`         // 服务名称
	InstanceID    string            `json:"instance_id"`          // 实例ID
	Address       string            `json:"address"`              // 对外地址
	Port          int               `json:"port"`                 // 端口
	HealthURL     string            `json:"health_url,omitempty"` // 健康检查地址
	Metadata      map[string]string `json:"metadata,omitempty"`   // 可选元数据
	TTL           int               `json:"ttl"`                  // 租约TTL（秒）
	LastHeartbeat string            `json:"last_heartbeat"`       // 注册时间
}

// RegisterService 将服务实例注册到etcd
func (e *EtcdClient) RegisterService(ctx context.Context, instance *ServiceInstance) (clientv3.LeaseID, error) {
	if e.client == nil {
		return 0, fmt.Errorf("etcd客户端未连接")
	}

	instance.LastHeartbeat = time.Now().Format(time.RFC3339)
	key := getServiceInstanceKey(instance.ServiceName, instance.InstanceID)

	data, err := json.Marshal(instance)
	if err != nil {
		e.logger.Error("序列化服务实例失败",
			zap.String("service", instance.ServiceName),
			zap.String("id", instance.InstanceID),
			zap.Error(err))
		return 0, fmt.Errorf("序列化服务实例失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, etcdTimeout)
	defer cancel()

	// 创建租约，租约过期后实例自动从注册中心消失
	lease, err := e.client.Grant(ctx, int64(instance.TTL))
	if err != nil {
		e.logger.Error("创建etcd租约失败", zap.Error(err))
		return 0, fmt.Errorf("创建etcd租约失败: %w", err)
	}

	_, err = e.client.Put(ctx, key, string(data), clientv3.WithLease(lease.ID))
	if err != nil {
		e.logger.Error("注册服务实例失败", zap.Error(err))
		return 0, fmt.Errorf("注册服务实例失败: %w", err)
	}

	e.logger.Info("服务实例注册成功",
		zap.String("service", instance.ServiceName),
		zap.String("id", instance.InstanceID),
		zap.String("address", instance.Address),
		zap.Int("port", instance.Port),
		zap.Int("ttl", instance.TTL))

	return lease.ID, nil
}

// KeepAliveOnce 续约一次
func (e *EtcdClient) KeepAliveOnce(ctx context.Context, leaseID clientv3.LeaseID) error {
	if e.client == nil {
		return fmt.Errorf("etcd客户端未连接")
	}

	ctx, cancel := context.WithTimeout(ctx, etcdTimeout)
	defer cancel()

	if _, err := e.client.KeepAliveOnce(ctx, leaseID); err != nil {
		if errors.Is(err, rpctypes.ErrLeaseNotFound) {
			return fmt.Errorf("续约失败: %w", ErrLeaseNotFound)
		}
		return fmt.Errorf("续约失败: %w", err)
	}
	return nil
}

// DeregisterService 从etcd注销服务实例
func (e *EtcdClient) DeregisterService(ctx context.Context, serviceName, instanceID string) error {
	if e.client == nil {
		return fmt.Errorf("etcd客户端未连接")
	}

	key := getServiceInstanceKey(serviceName, instanceID)

	ctx, cancel := context.WithTimeout(ctx, etcdTimeout)
	defer cancel()

	if _, err := e.client.Delete(ctx, key); err != nil {
		e.logger.Error("注销服务实例失败",
			zap.String("service", serviceName),
			zap.String("id", instanceID),
			zap.Error(err))
		return fmt.Errorf("注销服务实例失败: %w", err)
	}

	e.logger.Info("服务实例注销成功",
		zap.String("service", serviceName),
		zap.String("id", instanceID))
	return nil
}

// RevokeLease 撤销租约，已过期的租约视为成功
func (e *EtcdClient) RevokeLease(ctx context.Context, leaseID clientv3.LeaseID) error {
	if e.client == nil {
		return fmt.Errorf("etcd客户端未连接")
	}

	ctx, cancel := context.WithTimeout(ctx, etcdTimeout)
	defer cancel()

	if _, err := e.client.Revoke(ctx, leaseID); err != nil && !errors.Is(err, rpctypes.ErrLeaseNotFound) {
		return fmt.Errorf("撤销租约失败: %w", err)
	}
	return nil
}

// GetServiceInstances 获取指定服务的所有实例
func (e *EtcdClient) GetServiceInstances(ctx context.Context, serviceName string) ([]*ServiceInstance, error) {
	if e.client == nil {
		return nil, fmt.Errorf("etcd客户端未连接")
	}

	prefix := getServicePrefix(serviceName)

	ctx, cancel := context.WithTimeout(ctx, etcdTimeout)
	defer cancel()

	resp, err := e.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		e.logger.Error("获取服务实例列表失败",
			zap.String("service", serviceName),
			zap.Error(err))
		return nil, fmt.Errorf("获取服务实例列表失败: %w", err)
	}

	instances := make([]*ServiceInstance, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var instance ServiceInstance
		if err := json.Unmarshal(kv.Value, &instance); err != nil {
			e.logger.Warn("解析服务实例数据失败",
				zap.String("key", string(kv.Key)),
				zap.Error(err))
			continue
		}
		instances = append(instances, &instance)
	}

	return instances, nil
}

// getServiceInstanceKey 生成服务实例的etcd键
func getServiceInstanceKey(serviceName, instanceID string) string {
	return fmt.Sprintf("/services/%s/%s", serviceName, instanceID)
}

// getServicePrefix 生成服务的etcd键前缀
func getServicePrefix(serviceName string) string {
	return fmt.Sprintf("/services/%s/", serviceName)
}
