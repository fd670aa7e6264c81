package apihandler

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/hewenyu/contentmesh/internal/config"
	"github.com/hewenyu/contentmesh/internal/userclient"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// requestLogger 使用zap记录访问日志
func requestLogger(logger config.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Debug("HTTP请求",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency))
			return nil
		},
	})
}

// errorLogger 记录处理器返回的错误，错误继续交给HTTPErrorHandler处理
func errorLogger(logger config.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err != nil {
				logger.Error("处理请求时发生错误",
					zap.String("method", c.Request().Method),
					zap.String("path", c.Request().URL.Path),
					zap.Error(err))
			}
			return err
		}
	}
}

// APIKeyAuth 校验X-Api-Key请求头，/health不需要认证
func APIKeyAuth(apiKey string) echo.MiddlewareFunc {
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		Skipper:   isHealthPath,
		KeyLookup: "header:" + userclient.APIKeyHeader,
		Validator: func(key string, c echo.Context) (bool, error) {
			return subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1, nil
		},
		ErrorHandler: func(err error, c echo.Context) error {
			return c.String(http.StatusUnauthorized, "Unauthorized client")
		},
	})
}

// isHealthPath 只匹配/health及其子路径
func isHealthPath(c echo.Context) bool {
	path := c.Request().URL.Path
	return path == "/health" || strings.HasPrefix(path, "/health/")
}
