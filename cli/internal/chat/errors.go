package chat

import (
	"errors"
	"fmt"

	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/api"
)

// 用户可见的固定文案
const (
	NetworkErrorMessage    = "Network error - unable to reach the server"
	UnexpectedErrorMessage = "An unexpected error occurred"
	LoadHistoryFailed      = "Failed to load chat history"
	ChatDeleted            = "Chat deleted"
	DeleteFailed           = "Failed to delete chat"
)

// 控制器返回的校验错误，不会触发通知
var (
	ErrEmptyMessage   = errors.New("消息不能为空")
	ErrBusy           = errors.New("上一个请求尚未完成")
	ErrInvalidSession = errors.New("会话ID不能为空")
	ErrSuperseded     = errors.New("请求已被新的操作取代")
)

// errInterrupted 远程调用没有正常返回（panic）时的占位错误
var errInterrupted = errors.New("request interrupted")

// OperationError 远程操作失败
// Description 是已经归一化、可以直接展示给用户的描述
type OperationError struct {
	Op          string
	Description string
	Err         error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Description)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// Describe 把任意错误归一化为用户可读的描述
// 顺序: 网络错误 -> detail -> message -> 原始错误文本 -> 兜底文案
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Transport():
			return NetworkErrorMessage
		case apiErr.Detail != "":
			return apiErr.Detail
		case apiErr.Message != "":
			return apiErr.Message
		case apiErr.Err != nil && apiErr.Err.Error() != "":
			return apiErr.Err.Error()
		default:
			return UnexpectedErrorMessage
		}
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return UnexpectedErrorMessage
}

// errorReply 失败时插入的助手消息内容
func errorReply(description string) string {
	return fmt.Sprintf("⚠️ Error: %s. Please try again.", description)
}
