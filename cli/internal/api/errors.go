package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error 对话服务调用失败
// StatusCode 为 0 表示请求发出后没有收到响应（网络错误、超时等）
type Error struct {
	StatusCode int
	Detail     string // 响应体中的 detail 字段
	Message    string // 响应体中的 message 字段
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Detail != "":
		return e.Detail
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transport 是否为传输层错误（未收到响应）
func (e *Error) Transport() bool {
	return e.StatusCode == 0
}

// IsNotFound 判断错误是否为 404
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// errorBody 服务端错误响应
// detail 通常是字符串，参数校验失败时也可能是对象数组
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
}

func newStatusError(status int, body []byte) *Error {
	e := &Error{StatusCode: status}

	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		text := strings.TrimSpace(string(body))
		if text == "" {
			text = http.StatusText(status)
		}
		e.Err = fmt.Errorf("HTTP %d: %s", status, text)
		return e
	}

	if len(parsed.Detail) > 0 && string(parsed.Detail) != "null" {
		var detail string
		if err := json.Unmarshal(parsed.Detail, &detail); err == nil {
			e.Detail = detail
		} else {
			e.Detail = string(parsed.Detail)
		}
	}
	e.Message = parsed.Message
	e.Err = fmt.Errorf("HTTP %d", status)
	return e
}
