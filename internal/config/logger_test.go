package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	// 测试开发环境日志初始化
	devLogger, err := NewLogger(true)
	require.NoError(t, err, "开发环境日志初始化应成功")
	require.NotNil(t, devLogger, "开发环境日志不应为nil")

	// 测试生产环境日志初始化
	prodLogger, err := NewLogger(false)
	require.NoError(t, err, "生产环境日志初始化应成功")
	require.NotNil(t, prodLogger, "生产环境日志不应为nil")

	testLoggerMethods(t, devLogger)
	testLoggerMethods(t, prodLogger)
}

func TestNewLoggerWithInvalidLevel(t *testing.T) {
	_, err := NewLoggerWithOptions(LogOptions{Level: "verbose"})
	assert.Error(t, err, "无效的日志级别应返回错误")
}

func TestNewLoggerWithOutputFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "contentmesh.log")

	logger, err := NewLoggerWithOptions(LogOptions{Level: "info", OutputFile: file})
	require.NoError(t, err)

	logger.Info("写入文件", zap.String("key", "value"))
	_ = logger.Sync()

	data, err := os.ReadFile(file)
	require.NoError(t, err, "日志文件应被创建")
	assert.Contains(t, string(data), "写入文件")
}

func TestWithAddsFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := NewFromZap(zap.New(core)).With(zap.String("component", "pipeline"))

	logger.Info("hello")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "pipeline", logs.All()[0].ContextMap()["component"])
}

func testLoggerMethods(t *testing.T, logger Logger) {
	t.Helper()

	// 确保所有日志方法都不会抛出异常
	assert.NotPanics(t, func() {
		logger.Debug("测试Debug日志", zap.String("key", "value"))
		logger.Info("测试Info日志", zap.String("key", "value"))
		logger.Warn("测试Warn日志", zap.String("key", "value"))
		logger.Error("测试Error日志", zap.String("key", "value"))
		// 不测试Fatal，它会调用os.Exit
	}, "日志方法不应panic")
}
