package apiclient

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

var (
	ErrRequestFailed  = errors.New("storefront api request failed")
	ErrResponseFailed = errors.New("storefront api response invalid")
	ErrRefreshFailed  = errors.New("token refresh failed")
	ErrNoRefreshToken = errors.New("refresh token missing")
)

// APIError 后端调用统一错误，Message 可直接展示给用户
type APIError struct {
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// StatusOf 返回 HTTP 状态码，非 APIError 返回 0
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsNotFound 是否为 404
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}

// IsUnauthorized 是否为 401
func IsUnauthorized(err error) bool {
	return StatusOf(err) == http.StatusUnauthorized
}

// MessageOf 提取用户可读消息
func MessageOf(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message
	}
	return fallback
}

// extractMessage 从错误响应体中取人类可读消息
func extractMessage(body []byte, fallback string) string {
	if len(body) == 0 {
		return fallback
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fallback
	}
	for _, key := range []string{"detail", "error", "message", "msg"} {
		if msg := readMessage(payload[key]); msg != "" {
			return msg
		}
	}
	if errs, ok := payload["non_field_errors"].([]interface{}); ok && len(errs) > 0 {
		if msg := readMessage(errs[0]); msg != "" {
			return msg
		}
	}
	return fallback
}

func readMessage(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]interface{}:
		return readMessage(v["message"])
	case []interface{}:
		if len(v) > 0 {
			return readMessage(v[0])
		}
	}
	return ""
}
