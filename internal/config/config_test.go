package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// 从默认位置加载配置
	config, err := LoadConfig("", "contentservice")
	require.NoError(t, err, "无法加载默认配置")
	require.NotNil(t, config, "配置不应为nil")

	// 验证默认值与原有策略一致
	assert.Equal(t, "contentservice", config.Service.Name)
	assert.Equal(t, 80, config.Service.Port)
	assert.Equal(t, 10*time.Second, config.Resilience.Timeout, "整体超时应为10秒")
	assert.Equal(t, 3, config.Resilience.MaxRetries, "重试次数应为3")
	assert.Equal(t, time.Second, config.Resilience.BackoffBase)
	assert.Equal(t, 2, config.Resilience.BreakerThreshold, "熔断阈值应为2")
	assert.Equal(t, 30*time.Second, config.Resilience.BreakDuration, "熔断时长应为30秒")
	assert.Equal(t, "http://contentservice/health", config.Discovery.HealthURL)
	assert.Equal(t, 10*time.Second, config.Discovery.Interval)
	assert.Equal(t, 5*time.Second, config.Discovery.Timeout)
	assert.Equal(t, 30*time.Second, config.Discovery.DeregisterCriticalAfter)
	assert.Equal(t, "memory", config.Database.Driver)
}

func TestLoadConfigUserServiceDefaults(t *testing.T) {
	config, err := LoadConfig("", "userservice")
	require.NoError(t, err)

	assert.Equal(t, "userservice", config.Service.Name)
	assert.Equal(t, "userservice", config.Service.AdvertiseAddress)
	assert.Equal(t, "http://userservice/health", config.Discovery.HealthURL)
	assert.Equal(t, "userservice", config.UserService.Name)
}

func TestLoadConfigFromEnvVars(t *testing.T) {
	os.Setenv("CONTENTMESH_PORT", "9090")
	os.Setenv("CONTENTMESH_USER_SERVICE_URL", "http://localhost:8081")
	defer func() {
		os.Unsetenv("CONTENTMESH_PORT")
		os.Unsetenv("CONTENTMESH_USER_SERVICE_URL")
	}()

	config, err := LoadConfig("", "contentservice")
	require.NoError(t, err, "无法加载配置")

	// 验证环境变量覆盖
	assert.Equal(t, 9090, config.Service.Port, "环境变量应正确覆盖端口")
	assert.Equal(t, "http://localhost:8081", config.UserService.BaseURL, "环境变量应正确覆盖用户服务地址")

	// 确认其他值不受影响
	assert.Equal(t, 3, config.Resilience.MaxRetries)
}

func TestLoadConfigFromFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	content := `
service:
  name: contentservice
  port: 8080
resilience:
  timeout: 3s
  max_retries: 1
discovery:
  enabled: false
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))

	config, err := LoadConfig(file, "contentservice")
	require.NoError(t, err)

	assert.Equal(t, 8080, config.Service.Port)
	assert.Equal(t, 3*time.Second, config.Resilience.Timeout)
	assert.Equal(t, 1, config.Resilience.MaxRetries)
	assert.False(t, config.Discovery.Enabled)
	// 未配置的项保留默认值
	assert.Equal(t, 30*time.Second, config.Resilience.BreakDuration)
}

func TestLoadConfigWithMissingFile(t *testing.T) {
	// 尝试从不存在的文件加载配置
	config, err := LoadConfig("non_existent_file.yaml", "contentservice")

	assert.Error(t, err, "从不存在的文件加载配置应该失败")
	assert.Nil(t, config, "加载不存在的配置文件应该返回nil配置")
}

func TestValidate(t *testing.T) {
	config, err := LoadConfig("", "contentservice")
	require.NoError(t, err)

	bad := *config
	bad.Resilience.BreakerThreshold = 0
	assert.Error(t, bad.Validate(), "熔断阈值为0应校验失败")

	bad = *config
	bad.Database.Driver = "postgres"
	assert.Error(t, bad.Validate(), "不支持的驱动应校验失败")

	bad = *config
	bad.Service.Name = ""
	assert.Error(t, bad.Validate())
}
