// Package apihandler 提供内容服务和用户服务的HTTP接口
package apihandler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/hewenyu/contentmesh/internal/config"
	"github.com/hewenyu/contentmesh/internal/failure"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Routes 向Echo实例注册业务路由
type Routes interface {
	Register(e *echo.Echo)
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// EchoHandler 基于Echo的HTTP服务
type EchoHandler struct {
	server *echo.Echo
	cfg    *config.Config
	logger config.Logger
}

// NewAPIHandler 创建HTTP服务，注册健康检查、指标和业务路由
func NewAPIHandler(cfg *config.Config, logger config.Logger, gatherer prometheus.Gatherer, routes ...Routes) *EchoHandler {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewRequestValidator()
	e.HTTPErrorHandler = newErrorHandler(logger)

	e.Use(middleware.Recover())
	e.Use(requestLogger(logger))
	e.Use(errorLogger(logger))

	h := &EchoHandler{
		server: e,
		cfg:    cfg,
		logger: logger,
	}
	h.registerCommonRoutes(gatherer)
	for _, r := range routes {
		r.Register(e)
	}
	return h
}

// Echo 返回内部的Echo实例
func (h *EchoHandler) Echo() *echo.Echo {
	return h.server
}

// Start 启动HTTP服务（非阻塞）
func (h *EchoHandler) Start() error {
	addr := fmt.Sprintf("%s:%d", h.cfg.Service.ListenAddress, h.cfg.Service.Port)
	h.logger.Info("启动HTTP服务",
		zap.String("service", h.cfg.Service.Name),
		zap.String("address", addr))

	go func() {
		if err := h.server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("HTTP服务启动失败", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown 优雅关闭HTTP服务
func (h *EchoHandler) Shutdown(ctx context.Context) error {
	h.logger.Info("正在关闭HTTP服务...")
	if err := h.server.Shutdown(ctx); err != nil {
		h.logger.Error("关闭HTTP服务出错", zap.Error(err))
		return err
	}
	return nil
}

// registerCommonRoutes 注册健康检查和指标端点
func (h *EchoHandler) registerCommonRoutes(gatherer prometheus.Gatherer) {
	// 健康检查只反映进程存活，不检查依赖
	h.server.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, "Healthy")
	})

	if gatherer != nil {
		path := h.cfg.Telemetry.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		h.server.GET(path, echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
}

// newErrorHandler 将failure错误类别映射为HTTP状态码
func newErrorHandler(logger config.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg := http.StatusText(he.Code)
			if s, ok := he.Message.(string); ok {
				msg = s
			}
			writeError(c, he.Code, ErrorResponse{Message: msg})
			return
		}

		status := failure.HTTPStatus(err)
		resp := ErrorResponse{Message: http.StatusText(status), Details: err.Error()}
		writeError(c, status, resp)
	}
}

func writeError(c echo.Context, status int, resp ErrorResponse) {
	var err error
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, resp)
	}
	if err != nil {
		c.Logger().Error(err)
	}
}
