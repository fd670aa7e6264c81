// Package telemetry 初始化链路追踪
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/hewenyu/contentmesh/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// ShutdownFunc 刷新并关闭追踪导出器
type ShutdownFunc func(ctx context.Context) error

func noopShutdown(context.Context) error { return nil }

// SetupTracing 设置全局TracerProvider，span输出到标准输出
// 未启用时保留otel默认的空实现
func SetupTracing(enabled bool, serviceName string, logger config.Logger) (ShutdownFunc, error) {
	return setupTracing(enabled, serviceName, os.Stdout, logger)
}

func setupTracing(enabled bool, serviceName string, w io.Writer, logger config.Logger) (ShutdownFunc, error) {
	if !enabled {
		logger.Debug("链路追踪未启用")
		return noopShutdown, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("创建追踪导出器失败: %w", err)
	}

	res := resource.NewWithAttributes("",
		attribute.String("service.name", serviceName),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)

	logger.Info("链路追踪已启用", zap.String("service", serviceName))
	return tp.Shutdown, nil
}
