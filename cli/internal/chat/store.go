package chat

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/api"
)

// DefaultRefreshTimeout 后台刷新的超时
const DefaultRefreshTimeout = 15 * time.Second

// SessionLister 获取会话列表
type SessionLister interface {
	GetSessions(ctx context.Context) ([]api.SessionSummary, error)
}

// SessionStore 会话列表缓存
// 每次刷新整体替换，保持服务端顺序；
// 每个请求领取递增令牌，只有比已应用的更新的结果才会生效。
type SessionStore struct {
	svc     SessionLister
	timeout time.Duration

	mu       sync.Mutex
	sessions []Session
	issued   uint64
	applied  uint64

	wg   sync.WaitGroup
	subs observers[[]Session]
}

// NewSessionStore 创建会话列表缓存
func NewSessionStore(svc SessionLister) *SessionStore {
	return &SessionStore{
		svc:      svc,
		timeout:  DefaultRefreshTimeout,
		sessions: []Session{},
	}
}

// Sessions 返回当前会话列表副本
func (s *SessionStore) Sessions() []Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Session{}, s.sessions...)
}

// Subscribe 订阅列表变化，返回取消订阅函数
func (s *SessionStore) Subscribe(fn func([]Session)) func() {
	return s.subs.add(fn)
}

// Refresh 拉取会话列表并整体替换
// 失败只记录日志，保留原列表；被更新的请求取代时结果直接丢弃
func (s *SessionStore) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.issued++
	token := s.issued
	s.mu.Unlock()

	list, err := s.svc.GetSessions(ctx)
	if err != nil {
		log.Printf("Failed to refresh sessions: %v", err)
		return err
	}

	sessions := make([]Session, 0, len(list))
	for _, item := range list {
		sessions = append(sessions, sessionFromSummary(item))
	}

	s.mu.Lock()
	if token <= s.applied {
		s.mu.Unlock()
		return nil
	}
	s.applied = token
	s.sessions = sessions
	out := append([]Session{}, sessions...)
	s.mu.Unlock()

	s.subs.notify(token, out)
	return nil
}

// RefreshAsync 在后台刷新，不阻塞调用方
func (s *SessionStore) RefreshAsync() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		_ = s.Refresh(ctx)
	}()
}

// Wait 等待所有后台刷新结束
func (s *SessionStore) Wait() {
	s.wg.Wait()
}
