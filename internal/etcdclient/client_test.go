package etcdclient

import (
	"context"
	"testing"
	"time"

	"github.com/hewenyu/contentmesh/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEtcdClient_NotConnected(t *testing.T) {
	cfg := &config.Config{}
	client := NewEtcdClient(cfg, config.NewFromZap(zap.NewNop()))
	ctx := context.Background()

	assert.Error(t, client.Ping(ctx))
	_, err := client.RegisterService(ctx, &ServiceInstance{ServiceName: "s", InstanceID: "1", TTL: 30})
	assert.Error(t, err)
	assert.Error(t, client.KeepAliveOnce(ctx, 1))
	assert.Error(t, client.DeregisterService(ctx, "s", "1"))
	_, err = client.GetServiceInstances(ctx, "s")
	assert.Error(t, err)
	assert.NoError(t, client.Close(), "未连接时关闭应为空操作")
}

func TestServiceKeys(t *testing.T) {
	assert.Equal(t, "/services/contentservice/contentservice-1", getServiceInstanceKey("contentservice", "contentservice-1"))
	assert.Equal(t, "/services/contentservice/", getServicePrefix("contentservice"))
}

func TestEtcdClient_RegisterLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("跳过集成测试")
	}
	client := CreateEtcdClientForTest(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	instance := &ServiceInstance{
		ServiceName: "etcdclient-test",
		InstanceID:  "etcdclient-test-1",
		Address:     "127.0.0.1",
		Port:        8080,
		TTL:         30,
	}

	leaseID, err := client.RegisterService(ctx, instance)
	require.NoError(t, err)

	instances, err := client.GetServiceInstances(ctx, instance.ServiceName)
	require.NoError(t, err)
	require.Len(t, instances, 1)
	assert.Equal(t, instance.InstanceID, instances[0].InstanceID)
	assert.Equal(t, 8080, instances[0].Port)

	require.NoError(t, client.KeepAliveOnce(ctx, leaseID))

	require.NoError(t, client.DeregisterService(ctx, instance.ServiceName, instance.InstanceID))
	require.NoError(t, client.RevokeLease(ctx, leaseID))

	err = client.KeepAliveOnce(ctx, leaseID)
	assert.ErrorIs(t, err, ErrLeaseNotFound)

	instances, err = client.GetServiceInstances(ctx, instance.ServiceName)
	require.NoError(t, err)
	assert.Empty(t, instances)
}
