// Package repository 提供数据访问层的实现
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/saivighnesh2190/KLU-RAG-AGENT/server/internal/model"
)

// MessageRepository 消息数据访问层
// 负责消息相关的所有数据库操作
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建 MessageRepository 实例
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create 创建新消息
// 参数:
//   - ctx: 上下文
//   - message: 消息对象，ID 会被自动填充
//
// 返回:
//   - error: 数据库错误
func (r *MessageRepository) Create(ctx context.Context, message *model.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

// GetBySessionID 获取会话的所有消息
// 按创建时间正序排列（最早的在前）
// 参数:
//   - ctx: 上下文
//   - sessionID: 会话ID
//
// 返回:
//   - []model.Message: 消息列表
//   - error: 数据库错误
func (r *MessageRepository) GetBySessionID(ctx context.Context, sessionID string) ([]model.Message, error) {
	var messages []model.Message
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&messages).Error
	return messages, err
}

// GetLatestBySessionID 获取会话的最新 N 条消息
// 作为生成回答时的对话上下文
// 参数:
//   - ctx: 上下文
//   - sessionID: 会话ID
//   - limit: 要获取的消息数量
//
// 返回:
//   - []model.Message: 消息列表（按时间正序）
//   - error: 数据库错误
func (r *MessageRepository) GetLatestBySessionID(ctx context.Context, sessionID string, limit int) ([]model.Message, error) {
	var messages []model.Message

	// 子查询先按时间倒序取最新的 N 条，外层再按时间正序排列
	subQuery := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit)

	err := r.db.WithContext(ctx).
		Table("(?) as t", subQuery).
		Order("created_at ASC").
		Order("id ASC").
		Find(&messages).Error

	return messages, err
}

// CountBySessionID 统计会话的消息数量
// 参数:
//   - ctx: 上下文
//   - sessionID: 会话ID
//
// 返回:
//   - int64: 消息数量
//   - error: 数据库错误
func (r *MessageRepository) CountBySessionID(ctx context.Context, sessionID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Message{}).Where("session_id = ?", sessionID).Count(&count).Error
	return count, err
}

// GetFirstUserMessage 获取会话的第一条用户消息
// 用于生成会话标题
// 参数:
//   - ctx: 上下文
//   - sessionID: 会话ID
//
// 返回:
//   - *model.Message: 第一条用户消息，没有则返回 nil
//   - error: 数据库错误
func (r *MessageRepository) GetFirstUserMessage(ctx context.Context, sessionID string) (*model.Message, error) {
	var message model.Message
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND role = ?", sessionID, model.MessageRoleUser).
		Order("created_at ASC").
		Order("id ASC").
		First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &message, nil
}
