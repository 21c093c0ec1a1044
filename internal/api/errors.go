package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// APIError 非 2xx 响应，且响应体里没有可解析的逻辑错误
type APIError struct {
	StatusCode int
	// Detail 后端提供的结构化错误详情（FastAPI 的 detail 字段）
	Detail string
	Body   string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("Request failed with status code %d", e.StatusCode)
}

// DecodeError 2xx 但响应体无法解析
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ErrorMessage 把任意失败归一成一条给人看的消息
// 优先使用后端给出的详情，其次是传输错误本身的文本
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return err.Error()
}

// parseDetail 从错误响应体中取 detail，兼容字符串和校验错误列表
func parseDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(payload.Detail, &s); err == nil {
		return s
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if item.Msg != "" {
				msgs = append(msgs, item.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}

	// 其他结构原样返回
	return string(payload.Detail)
}
