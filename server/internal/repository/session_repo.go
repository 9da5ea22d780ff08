// Package repository 提供数据访问层的实现
package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/saivighnesh2190/KLU-RAG-AGENT/server/internal/model"
)

// SessionRepository 会话数据访问层
// 负责会话相关的所有数据库操作
type SessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository 创建 SessionRepository 实例
func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create 创建新会话
// 参数:
//   - ctx: 上下文
//   - session: 会话对象，ID 由调用方生成
//
// 返回:
//   - error: 数据库错误
func (r *SessionRepository) Create(ctx context.Context, session *model.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// GetByID 根据 ID 获取会话
// 参数:
//   - ctx: 上下文
//   - id: 会话ID
//
// 返回:
//   - *model.Session: 会话对象，未找到返回 nil
//   - error: 数据库错误
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

// List 获取所有会话
// 返回:
//   - []model.Session: 会话列表，按最后消息时间倒序
//   - error: 数据库错误
func (r *SessionRepository) List(ctx context.Context) ([]model.Session, error) {
	var sessions []model.Session
	err := r.db.WithContext(ctx).
		Order("last_message_at DESC").
		Order("created_at DESC").
		Find(&sessions).Error
	return sessions, err
}

// Touch 更新会话的最后消息时间
func (r *SessionRepository) Touch(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.Session{}).
		Where("id = ?", id).
		Update("last_message_at", at).Error
}

// Delete 删除会话及其所有消息
// 在同一个事务中执行，避免留下孤立消息
// 参数:
//   - ctx: 上下文
//   - id: 会话ID
//
// 返回:
//   - bool: 会话是否存在
//   - error: 数据库错误
func (r *SessionRepository) Delete(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", id).Delete(&model.Message{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&model.Session{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	return deleted, err
}

// DeleteIdleBefore 删除最后消息时间早于 before 的会话
// 参数:
//   - ctx: 上下文
//   - before: 截止时间
//
// 返回:
//   - []string: 被删除的会话ID
//   - error: 数据库错误
func (r *SessionRepository) DeleteIdleBefore(ctx context.Context, before time.Time) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Session{}).
			Where("last_message_at < ?", before).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("session_id IN ?", ids).Delete(&model.Message{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&model.Session{}).Error
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}
