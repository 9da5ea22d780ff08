// Package chat 管理客户端的对话状态
// 本地乐观渲染的消息列表与服务端的会话记录在这里对齐
package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/api"
)

// Role 消息角色
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// parseRole 把服务端返回的角色映射到 Role
// 除 user 以外的角色都按助手消息显示
func parseRole(s string) Role {
	if strings.EqualFold(strings.TrimSpace(s), string(RoleUser)) {
		return RoleUser
	}
	return RoleAssistant
}

// Source 回答引用的证据来源
type Source = api.Source

// Message 对话中的一条消息
// ID 由本地生成，与服务端无关
type Message struct {
	ID           string   `json:"id"`
	Role         Role     `json:"role"`
	Content      string   `json:"content"`
	Sources      []Source `json:"sources"`
	ResponseTime *float64 `json:"response_time,omitempty"` // 秒，仅助手消息
	Timestamp    string   `json:"timestamp"`
}

// Session 服务端会话摘要，只从服务端获取
type Session struct {
	SessionID     string `json:"session_id"`
	Title         string `json:"title"`
	CreatedAt     string `json:"created_at"`
	LastMessageAt string `json:"last_message_at"`
	MessageCount  int    `json:"message_count"`
}

// LastActivity 最后活跃时间，解析失败时返回零值
func (s Session) LastActivity() time.Time {
	t, err := ParseTimestamp(s.LastMessageAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

func sessionFromSummary(s api.SessionSummary) Session {
	return Session{
		SessionID:     s.SessionID,
		Title:         s.Title,
		CreatedAt:     s.CreatedAt,
		LastMessageAt: s.LastMessageAt,
		MessageCount:  s.MessageCount,
	}
}

// 服务端可能返回带时区或不带时区的 ISO 时间
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
	"2006-01-02T15:04:05",
}

// ParseTimestamp 解析服务端时间戳，不带时区的按 UTC 处理
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("无法解析时间: %q", s)
}

// Phase 控制器所处阶段
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSending
	PhaseLoadingHistory
)

func (p Phase) String() string {
	switch p {
	case PhaseSending:
		return "sending"
	case PhaseLoadingHistory:
		return "loading_history"
	default:
		return "idle"
	}
}

// MarshalText 以文本形式序列化
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText 从文本解析
func (p *Phase) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*p = PhaseIdle
	case "sending":
		*p = PhaseSending
	case "loading_history":
		*p = PhaseLoadingHistory
	default:
		return fmt.Errorf("未知的阶段: %q", text)
	}
	return nil
}

// Snapshot 控制器状态的只读副本
// Version 每次状态变化递增
type Snapshot struct {
	Version          uint64    `json:"version"`
	Messages         []Message `json:"messages"`
	CurrentSessionID string    `json:"current_session_id"`
	IsLoading        bool      `json:"is_loading"`
	Phase            Phase     `json:"phase"`
	LastError        string    `json:"last_error,omitempty"`
}

func copyMessages(in []Message) []Message {
	out := make([]Message, len(in))
	for i, m := range in {
		if m.Sources != nil {
			sources := make([]Source, len(m.Sources))
			copy(sources, m.Sources)
			m.Sources = sources
		}
		if m.ResponseTime != nil {
			rt := *m.ResponseTime
			m.ResponseTime = &rt
		}
		out[i] = m
	}
	return out
}
