package etcdclient

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/hewenyu/contentmesh/internal/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// EndpointsEnv 集成测试使用的etcd地址环境变量
const EndpointsEnv = "CONTENTMESH_ETCD_ENDPOINTS"

// CreateEtcdClientForTest 创建并连接真实的etcd客户端，供测试使用
// 未设置CONTENTMESH_ETCD_ENDPOINTS时跳过测试
func CreateEtcdClientForTest(t *testing.T) *EtcdClient {
	t.Helper()

	endpoints := os.Getenv(EndpointsEnv)
	if endpoints == "" {
		t.Skipf("未设置%s，跳过etcd集成测试", EndpointsEnv)
	}

	cfg := &config.Config{}
	cfg.Etcd.Endpoints = []string{endpoints}
	cfg.Etcd.DialTimeout = 5 * time.Second

	client := NewEtcdClient(cfg, config.NewFromZap(zap.NewNop()))
	require.NoError(t, client.Connect(), "连接etcd失败")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, client.Ping(ctx), "Ping etcd失败")

	t.Cleanup(func() { _ = client.Close() })
	return client
}
