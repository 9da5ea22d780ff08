// Package model 定义了与数据库表对应的数据结构
package model

import (
	"time"
)

// Session 会话模型
// 对应数据库表 sessions
// 表示用户与 KLU Agent 的一次对话
type Session struct {
	// ID 会话唯一标识，UUID 字符串
	// 由服务端在第一条消息时生成
	ID string `gorm:"primaryKey;size:36" json:"session_id"`

	// CreatedAt 创建时间
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// LastMessageAt 最后一条消息的时间
	// 会话列表按该字段倒序排列，清理任务也依据它判断是否闲置
	LastMessageAt time.Time `gorm:"index;not null" json:"last_message_at"`

	// Messages 会话中的所有消息（一对多关系）
	Messages []Message `gorm:"foreignKey:SessionID" json:"messages,omitempty"`
}

// TableName 指定表名
func (Session) TableName() string {
	return "sessions"
}
