// Package service 提供业务逻辑层的实现
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/saivighnesh2190/KLU-RAG-AGENT/server/internal/cache"
	"github.com/saivighnesh2190/KLU-RAG-AGENT/server/internal/model"
	"github.com/saivighnesh2190/KLU-RAG-AGENT/server/pkg/util"
)

// 对话服务相关错误
var (
	ErrEmptyMessage    = errors.New("消息不能为空")
	ErrSessionNotFound = errors.New("会话不存在")
)

// 会话标题的最大长度（字符数）
const titleMaxLen = 50

// DefaultTitle 没有用户消息时的会话标题
const DefaultTitle = "New Chat"

// TimestampFormat 接口返回的时间格式（UTC，无时区后缀）
const TimestampFormat = "2006-01-02T15:04:05.999999"

// SessionStore 会话持久化
type SessionStore interface {
	Create(ctx context.Context, session *model.Session) error
	GetByID(ctx context.Context, id string) (*model.Session, error)
	List(ctx context.Context) ([]model.Session, error)
	Touch(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) (bool, error)
	DeleteIdleBefore(ctx context.Context, before time.Time) ([]string, error)
}

// MessageStore 消息持久化
type MessageStore interface {
	Create(ctx context.Context, message *model.Message) error
	GetBySessionID(ctx context.Context, sessionID string) ([]model.Message, error)
	GetLatestBySessionID(ctx context.Context, sessionID string, limit int) ([]model.Message, error)
	CountBySessionID(ctx context.Context, sessionID string) (int64, error)
	GetFirstUserMessage(ctx context.Context, sessionID string) (*model.Message, error)
}

// JSONCache 会话列表缓存
type JSONCache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// AnswerGenerator 根据问题和历史生成回答
type AnswerGenerator interface {
	Generate(ctx context.Context, question string, history []model.Message) (*Answer, error)
}

// Answer 生成的回答
type Answer struct {
	Content string
	Sources []model.Source
}

// ChatResult 发送消息的结果
type ChatResult struct {
	Answer       string         `json:"answer"`
	Sources      []model.Source `json:"sources"`
	SessionID    string         `json:"session_id"`
	ResponseTime float64        `json:"response_time"`
	Timestamp    string         `json:"timestamp"`
}

// HistoryMessage 历史消息
type HistoryMessage struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Sources   []model.Source `json:"sources"`
	Timestamp string         `json:"timestamp"`
}

// HistoryResult 会话历史
type HistoryResult struct {
	SessionID string           `json:"session_id"`
	Messages  []HistoryMessage `json:"messages"`
}

// SessionSummary 会话摘要
type SessionSummary struct {
	SessionID     string `json:"session_id"`
	Title         string `json:"title"`
	MessageCount  int    `json:"message_count"`
	CreatedAt     string `json:"created_at"`
	LastMessageAt string `json:"last_message_at"`
}

// ChatService 对话服务
// 负责会话的创建、消息持久化、回答生成和会话列表
type ChatService struct {
	sessions  SessionStore    // 会话数据访问层
	messages  MessageStore    // 消息数据访问层
	cache     JSONCache       // 会话列表缓存，可以为 nil
	generator AnswerGenerator // 回答生成
	retriever Retriever       // 上下文检索，可以为 nil

	cacheTTL     time.Duration
	historyLimit int
	now          func() time.Time
}

// ChatOption 配置 ChatService
type ChatOption func(*ChatService)

// WithCacheTTL 设置会话列表缓存时间
func WithCacheTTL(ttl time.Duration) ChatOption {
	return func(s *ChatService) { s.cacheTTL = ttl }
}

// WithHistoryLimit 设置生成回答时携带的历史消息条数
func WithHistoryLimit(n int) ChatOption {
	return func(s *ChatService) { s.historyLimit = n }
}

// WithRetriever 设置上下文检索，检索到的内容会拼入提示，来源随回答返回
func WithRetriever(r Retriever) ChatOption {
	return func(s *ChatService) { s.retriever = r }
}

// WithClock 替换时钟，用于测试
func WithClock(now func() time.Time) ChatOption {
	return func(s *ChatService) { s.now = now }
}

// NewChatService 创建 ChatService 实例
func NewChatService(
	sessions SessionStore,
	messages MessageStore,
	listCache JSONCache,
	generator AnswerGenerator,
	opts ...ChatOption,
) *ChatService {
	s := &ChatService{
		sessions:     sessions,
		messages:     messages,
		cache:        listCache,
		generator:    generator,
		cacheTTL:     30 * time.Second,
		historyLimit: 10,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ==================== 对话 ====================

// Chat 发送消息并生成回答
// 参数:
//   - ctx: 上下文
//   - message: 用户消息
//   - sessionID: 会话ID，为空或不存在时创建新会话
//
// 返回:
//   - *ChatResult: 回答及其元数据
//   - error: ErrEmptyMessage 或处理错误
func (s *ChatService) Chat(ctx context.Context, message string, sessionID *string) (*ChatResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}

	start := s.now()

	session, err := s.getOrCreateSession(ctx, sessionID, start)
	if err != nil {
		return nil, err
	}

	// 先取历史，不包含本次的问题
	var history []model.Message
	if s.historyLimit > 0 {
		history, err = s.messages.GetLatestBySessionID(ctx, session.ID, s.historyLimit)
		if err != nil {
			return nil, fmt.Errorf("获取历史消息失败: %w", err)
		}
	}

	if err := s.messages.Create(ctx, &model.Message{
		SessionID: session.ID,
		Role:      model.MessageRoleUser,
		Content:   message,
		Sources:   []model.Source{},
		CreatedAt: start.UTC(),
	}); err != nil {
		return nil, fmt.Errorf("保存用户消息失败: %w", err)
	}

	prompt, retrieved := s.retrieve(ctx, message)
	answer, err := s.generator.Generate(ctx, prompt, history)
	if err != nil {
		s.invalidateSessions(ctx)
		return nil, err
	}

	sources := answer.Sources
	if len(sources) == 0 {
		sources = retrieved
	}
	if sources == nil {
		sources = []model.Source{}
	}

	finished := s.now()
	if err := s.messages.Create(ctx, &model.Message{
		SessionID: session.ID,
		Role:      model.MessageRoleAssistant,
		Content:   answer.Content,
		Sources:   sources,
		CreatedAt: finished.UTC(),
	}); err != nil {
		return nil, fmt.Errorf("保存回答失败: %w", err)
	}

	if err := s.sessions.Touch(ctx, session.ID, finished.UTC()); err != nil {
		log.Printf("Failed to touch session %s: %v", session.ID, err)
	}
	s.invalidateSessions(ctx)

	return &ChatResult{
		Answer:       answer.Content,
		Sources:      sources,
		SessionID:    session.ID,
		ResponseTime: roundSeconds(finished.Sub(start)),
		Timestamp:    formatTime(finished),
	}, nil
}

// retrieve 检索上下文并生成提示
// 检索失败时只记录日志，按原问题生成回答
func (s *ChatService) retrieve(ctx context.Context, message string) (string, []model.Source) {
	if s.retriever == nil {
		return message, nil
	}
	r, err := s.retriever.Retrieve(ctx, message)
	if err != nil {
		log.Printf("Failed to retrieve context: %v", err)
		return message, nil
	}
	return buildPrompt(message, r), r.Sources
}

// getOrCreateSession 获取已有会话，未指定或不存在时创建新会话
func (s *ChatService) getOrCreateSession(ctx context.Context, sessionID *string, now time.Time) (*model.Session, error) {
	if sessionID != nil && *sessionID != "" {
		session, err := s.sessions.GetByID(ctx, *sessionID)
		if err != nil {
			return nil, fmt.Errorf("获取会话失败: %w", err)
		}
		if session != nil {
			return session, nil
		}
	}

	session := &model.Session{
		ID:            util.NewSessionID(),
		CreatedAt:     now.UTC(),
		LastMessageAt: now.UTC(),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("创建会话失败: %w", err)
	}
	return session, nil
}

// ==================== 历史 ====================

// History 获取会话的全部消息
// 会话不存在或没有消息时返回 ErrSessionNotFound
func (s *ChatService) History(ctx context.Context, sessionID string) (*HistoryResult, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	messages, err := s.messages.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, ErrSessionNotFound
	}

	result := &HistoryResult{
		SessionID: sessionID,
		Messages:  make([]HistoryMessage, 0, len(messages)),
	}
	for _, m := range messages {
		sources := m.Sources
		if sources == nil {
			sources = []model.Source{}
		}
		result.Messages = append(result.Messages, HistoryMessage{
			Role:      m.Role,
			Content:   m.Content,
			Sources:   sources,
			Timestamp: formatTime(m.CreatedAt),
		})
	}
	return result, nil
}

// Clear 删除会话及其所有消息
// 会话不存在时返回 ErrSessionNotFound
func (s *ChatService) Clear(ctx context.Context, sessionID string) error {
	deleted, err := s.sessions.Delete(ctx, sessionID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrSessionNotFound
	}
	s.invalidateSessions(ctx)
	return nil
}

// ==================== 会话列表 ====================

// ListSessions 获取所有会话的摘要
// 按最后消息时间倒序，结果会缓存一段时间
func (s *ChatService) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	if s.cache != nil {
		var cached []SessionSummary
		hit, err := s.cache.GetJSON(ctx, cache.KeySessionList, &cached)
		if err != nil {
			log.Printf("Failed to read session cache: %v", err)
		} else if hit {
			return cached, nil
		}
	}

	sessions, err := s.sessions.List(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		summary, err := s.summarize(ctx, &session)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *summary)
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cache.KeySessionList, summaries, s.cacheTTL); err != nil {
			log.Printf("Failed to write session cache: %v", err)
		}
	}
	return summaries, nil
}

func (s *ChatService) summarize(ctx context.Context, session *model.Session) (*SessionSummary, error) {
	count, err := s.messages.CountBySessionID(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	first, err := s.messages.GetFirstUserMessage(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	title := DefaultTitle
	if first != nil {
		title = util.TruncateString(first.Content, titleMaxLen)
	}

	return &SessionSummary{
		SessionID:     session.ID,
		Title:         title,
		MessageCount:  int(count),
		CreatedAt:     formatTime(session.CreatedAt),
		LastMessageAt: formatTime(session.LastMessageAt),
	}, nil
}

// ==================== 清理 ====================

// PurgeIdle 删除最后消息时间早于 before 的会话
// 返回:
//   - int: 删除的会话数量
//   - error: 数据库错误
func (s *ChatService) PurgeIdle(ctx context.Context, before time.Time) (int, error) {
	ids, err := s.sessions.DeleteIdleBefore(ctx, before.UTC())
	if err != nil {
		return 0, err
	}
	if len(ids) > 0 {
		s.invalidateSessions(ctx)
	}
	return len(ids), nil
}

func (s *ChatService) invalidateSessions(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cache.KeySessionList); err != nil {
		log.Printf("Failed to invalidate session cache: %v", err)
	}
}

// roundSeconds 转换为秒并保留两位小数
func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}
