// Package providers 提供各 LLM 后端共享的 HTTP 错误映射与解析工具。
package providers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/BaSui01/meetingflow/types"
)

// MapHTTPError 将 HTTP 状态码映射为带有合适重试标记的 types.Error
// 这是所有提供者使用的通用错误映射函数
func MapHTTPError(status int, msg string, provider string) *types.Error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &types.Error{
			Code:       types.ErrUnauthorized,
			Message:    msg,
			HTTPStatus: status,
			Provider:   provider,
		}
	case http.StatusTooManyRequests:
		return &types.Error{
			Code:       types.ErrRateLimited,
			Message:    msg,
			HTTPStatus: status,
			Retryable:  true,
			Provider:   provider,
		}
	case http.StatusBadRequest:
		return &types.Error{
			Code:       types.ErrInvalidRequest,
			Message:    msg,
			HTTPStatus: status,
			Provider:   provider,
		}
	case http.StatusGatewayTimeout:
		return &types.Error{
			Code:       types.ErrUpstreamTimeout,
			Message:    msg,
			HTTPStatus: status,
			Retryable:  true,
			Provider:   provider,
		}
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return &types.Error{
			Code:       types.ErrUpstreamError,
			Message:    msg,
			HTTPStatus: status,
			Retryable:  true,
			Provider:   provider,
		}
	case 529: // Model overloaded (used by some providers)
		return &types.Error{
			Code:       types.ErrModelOverloaded,
			Message:    msg,
			HTTPStatus: status,
			Retryable:  true,
			Provider:   provider,
		}
	default:
		return &types.Error{
			Code:       types.ErrUpstreamError,
			Message:    msg,
			HTTPStatus: status,
			Retryable:  status >= 500,
			Provider:   provider,
		}
	}
}

// ReadErrorMessage 读取响应体中的错误消息
// 尝试解析 JSON 错误响应，失败则回退到原始文本
func ReadErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(body)
	if err != nil {
		return "failed to read error response"
	}

	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &parsed); err == nil {
		if parsed.Error.Message != "" {
			return parsed.Error.Message
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}

	msg := strings.TrimSpace(string(data))
	if msg == "" {
		return "upstream returned an empty error body"
	}
	return msg
}
