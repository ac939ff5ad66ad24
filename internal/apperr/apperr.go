// Package apperr 定义了请求处理过程中的错误分类。
// 所有错误在 handler 边界被翻译为 HTTP 状态码 + {"detail": "..."} 响应体。
package apperr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// 上游服务商标识。
const (
	ProviderSearch     = "search"
	ProviderCompletion = "completion"
)

// UpstreamError 表示上游服务商（搜索或补全）调用失败。
// Status 即该错误对外映射的 HTTP 状态码：超时为 504，
// 响应形状不合法为 500，其余透传上游状态码。
type UpstreamError struct {
	Provider string
	Status   int
	Message  string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s api error (status %d): %s", e.Provider, e.Status, e.Message)
}

// Timeout 构造一个上游超时错误。
func Timeout(provider string) *UpstreamError {
	return &UpstreamError{
		Provider: provider,
		Status:   http.StatusGatewayTimeout,
		Message:  fmt.Sprintf("%s request timed out", provider),
	}
}

// InvalidShape 构造一个上游响应形状不合法的错误。
func InvalidShape(provider string) *UpstreamError {
	return &UpstreamError{
		Provider: provider,
		Status:   http.StatusInternalServerError,
		Message:  "invalid response shape",
	}
}

// ValidationError 表示入站请求不合法。映射为 400。
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validation 构造一个请求校验错误。
func Validation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// PersistenceError 表示存储不可达或约束冲突。映射为 500。
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Persistence 包装一个存储层错误。
func Persistence(err error) *PersistenceError {
	return &PersistenceError{Err: err}
}

// ExtractUpstreamMessage 从上游错误响应体中提取人类可读的描述：
// 优先取 {"error":{"message":...}} 信封，没有则退回原始文本。
func ExtractUpstreamMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return string(body)
}

// IsTimeout 判断一次出站调用的失败是否为超时。
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// HTTPStatus 返回错误对应的 HTTP 状态码。未识别的错误按 500 处理。
func HTTPStatus(err error) int {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Status
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Detail 返回错误对应的用户可见描述，用于 {"detail": ...} 响应体。
func Detail(err error) string {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		if ue.Provider == ProviderSearch {
			return "Search API request failed: " + ue.Message
		}
		return "API request failed: " + ue.Message
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return "An error occurred while processing your request"
	}
	return "An error occurred while processing your request"
}
