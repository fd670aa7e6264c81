package bootstrap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hewenyu/contentmesh/internal/apihandler"
	"github.com/hewenyu/contentmesh/pkg/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSetupWithMemoryStorage(t *testing.T) {
	path := writeConfig(t, `
service:
  port: 8080
log:
  level: error
discovery:
  enabled: false
`)

	rt, err := Setup(path, "contentservice")
	require.NoError(t, err)
	defer rt.Close()

	assert.Equal(t, "contentservice", rt.Config.Service.Name)
	assert.Equal(t, 8080, rt.Config.Service.Port)

	contents, err := rt.ContentStorage()
	require.NoError(t, err)
	assert.IsType(t, &memory.ContentStorage{}, contents)

	users, err := rt.UserStorage()
	require.NoError(t, err)
	assert.IsType(t, &memory.UserStorage{}, users)

	families, err := rt.Registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families, "应注册运行时指标")

	assert.Nil(t, rt.startDiscovery(), "未启用服务发现时不创建管理器")
}

func TestSetupInvalidConfig(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: postgres
`)
	_, err := Setup(path, "contentservice")
	assert.Error(t, err)
}

func TestSetupMySQLRequiresDSN(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: mysql
log:
  level: error
`)
	rt, err := Setup(path, "userservice")
	require.NoError(t, err)
	defer rt.Close()

	_, err = rt.UserStorage()
	assert.Error(t, err)
}

func TestStartDiscoveryWithUnreachableEtcd(t *testing.T) {
	// 不受集成测试环境变量影响
	t.Setenv("CONTENTMESH_ETCD_ENDPOINTS", "")
	path := writeConfig(t, `
service:
  port: 18080
log:
  level: error
etcd:
  endpoints: ["127.0.0.1:1"]
discovery:
  enabled: true
  timeout: 1s
  interval: 1h
`)

	rt, err := Setup(path, "contentservice")
	require.NoError(t, err)
	defer rt.Close()

	start := time.Now()
	manager := rt.startDiscovery()
	elapsed := time.Since(start)

	require.NotNil(t, manager, "etcd不可达时管理器仍然启动，等待后续重新注册")
	assert.Less(t, elapsed, 3*time.Second, "启动最多被阻塞discovery.timeout")
	defer manager.Stop(context.Background())

	handler := apihandler.NewAPIHandler(rt.Config, rt.Logger, rt.Registry)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.Echo().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Healthy", body)
}
