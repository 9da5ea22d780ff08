// Package bridge 把对话控制器通过 WebSocket 暴露给浏览器界面
package bridge

import (
	"encoding/json"
	"time"

	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/chat"
	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/notify"
)

// 消息类型
const (
	// 浏览器 → 客户端
	TypeChatSend        = "chat:send"        // 发送消息
	TypeChatLoad        = "chat:load"        // 切换会话
	TypeChatNew         = "chat:new"         // 新建对话
	TypeChatDelete      = "chat:delete"      // 删除会话
	TypeSessionsRefresh = "sessions:refresh" // 刷新会话列表
	TypePing            = "ping"

	// 客户端 → 浏览器
	TypeState    = "state"    // 控制器快照
	TypeSessions = "sessions" // 会话列表
	TypeToast    = "toast"    // 提示
	TypePong     = "pong"
	TypeError    = "error"
)

// Message WebSocket 消息结构
// 收到的消息 Payload 为 json.RawMessage，按 Type 再解析
type Message struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp int64       `json:"timestamp"`
	MessageID string      `json:"message_id,omitempty"`
}

// NewMessage 创建新消息
func NewMessage(msgType string, payload interface{}) *Message {
	return &Message{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
}

// inbound 收到的原始消息
type inbound struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	MessageID string          `json:"message_id,omitempty"`
}

// ==================== Payload 类型定义 ====================

// SendPayload chat:send
type SendPayload struct {
	Content string `json:"content"`
}

// SessionPayload chat:load / chat:delete
type SessionPayload struct {
	SessionID string `json:"session_id"`
}

// StatePayload state
type StatePayload = chat.Snapshot

// SessionsPayload sessions
type SessionsPayload struct {
	Sessions []chat.Session `json:"sessions"`
}

// ToastPayload toast
type ToastPayload struct {
	Level   notify.Level `json:"level"`
	Message string       `json:"message"`
}

// ErrorPayload error，只发给触发它的连接
type ErrorPayload struct {
	Command string `json:"command,omitempty"`
	Message string `json:"message"`
}
