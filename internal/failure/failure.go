// Package failure 定义跨服务调用链路上使用的错误分类
package failure

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 错误类别
type Kind int

const (
	// Unexpected 未归类的错误，必须记录并向上传播
	Unexpected Kind = iota
	// Transient 可重试的瞬时错误（网络错误、5xx、408）
	Transient
	// Permanent 不可重试的错误（4xx）
	Permanent
	// CircuitOpen 熔断器打开，未发起任何网络请求
	CircuitOpen
	// Timeout 整体超时预算耗尽
	Timeout
	// NotFound 资源不存在
	NotFound
)

// String 返回类别名称
func (k Kind) String() string {
	switch k {
	case Transient:
		return "transient"
	case Permanent:
		return "permanent"
	case CircuitOpen:
		return "circuit_open"
	case Timeout:
		return "timeout"
	case NotFound:
		return "not_found"
	default:
		return "unexpected"
	}
}

// Error 带类别的错误
type Error struct {
	Kind       Kind   // 错误类别
	Op         string // 发生错误的操作
	StatusCode int    // 下游HTTP状态码，网络错误时为0
	Attempt    int    // 发生错误时的尝试次数
	Err        error  // 原始错误
}

// Error 实现error接口
func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (状态码: %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap 返回原始错误
func (e *Error) Unwrap() error {
	return e.Err
}

// New 创建指定类别的错误
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf 使用格式化消息创建指定类别的错误
func Newf(kind Kind, op string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// NewNotFound 创建资源不存在错误
func NewNotFound(op string, format string, args ...interface{}) *Error {
	return Newf(NotFound, op, format, args...)
}

// NewUnexpected 包装未归类错误
func NewUnexpected(op string, err error) *Error {
	return New(Unexpected, op, err)
}

// FromStatus 根据下游HTTP状态码归类错误
// 5xx和408视为瞬时错误，其余4xx视为永久错误
func FromStatus(op string, status int) *Error {
	e := &Error{Op: op, StatusCode: status, Err: errors.New(http.StatusText(status))}
	switch {
	case status >= 500 || status == http.StatusRequestTimeout:
		e.Kind = Transient
	case status >= 400:
		e.Kind = Permanent
	default:
		e.Kind = Unexpected
	}
	return e
}

// KindOf 返回错误的类别，非*Error的错误视为Unexpected
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unexpected
}

// IsTransient 是否为瞬时错误
func IsTransient(err error) bool { return err != nil && KindOf(err) == Transient }

// IsNotFound 是否为资源不存在错误
func IsNotFound(err error) bool { return err != nil && KindOf(err) == NotFound }

// IsCircuitOpen 是否为熔断错误
func IsCircuitOpen(err error) bool { return err != nil && KindOf(err) == CircuitOpen }

// IsTimeout 是否为超时错误
func IsTimeout(err error) bool { return err != nil && KindOf(err) == Timeout }

// HTTPStatus 将错误类别映射为对外的HTTP状态码
func HTTPStatus(err error) int {
	if IsNotFound(err) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
