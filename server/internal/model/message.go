// Package model 定义了与数据库表对应的数据结构
package model

import (
	"time"
)

// MessageRole 消息角色常量
const (
	MessageRoleUser      = "user"      // 用户消息
	MessageRoleAssistant = "assistant" // AI 助手响应
)

// Source 回答引用的来源
type Source struct {
	Type    string `json:"type"`              // 来源类型，如 document / database
	Name    string `json:"name"`              // 来源名称
	Snippet string `json:"snippet,omitempty"` // 引用片段
}

// Message 消息模型
// 对应数据库表 messages
// 存储会话中的每一条消息
type Message struct {
	// ID 消息唯一标识，自增主键
	ID int64 `gorm:"primaryKey" json:"id"`

	// SessionID 所属会话ID，外键关联 sessions.id
	SessionID string `gorm:"size:36;index;not null" json:"session_id"`

	// Role 消息角色
	// user: 用户发送的消息
	// assistant: AI 助手的响应
	Role string `gorm:"size:20;not null" json:"role"`

	// Content 消息内容
	Content string `gorm:"type:text;not null" json:"content"`

	// Sources 助手回答引用的来源，以 JSON 存储
	Sources []Source `gorm:"type:text;serializer:json" json:"sources"`

	// CreatedAt 消息创建时间
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName 指定表名
func (Message) TableName() string {
	return "messages"
}
