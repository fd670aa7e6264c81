package apihandler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// RequestValidator 使用validator校验请求体
type RequestValidator struct {
	validate *validator.Validate
}

// NewRequestValidator 创建请求校验器
func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate 实现echo.Validator
func (v *RequestValidator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field()+":"+fe.Tag())
		}
		return echo.NewHTTPError(http.StatusBadRequest, "请求参数无效: "+strings.Join(fields, ", "))
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}

// bindAndValidate 解析并校验请求体
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "请求格式错误")
	}
	return c.Validate(req)
}
