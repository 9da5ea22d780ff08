package chat

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/api"
)

// CurrentSessionKey 持久化当前会话ID的键
const CurrentSessionKey = "klu_agent_current_session"

// kvTimeout 单次持久化读写的超时
const kvTimeout = 5 * time.Second

// Service 远程对话服务
// *api.Client 实现了该接口
type Service interface {
	SendMessage(ctx context.Context, message, sessionID string) (*api.ChatResponse, error)
	GetHistory(ctx context.Context, sessionID string) (*api.HistoryResponse, error)
	ClearHistory(ctx context.Context, sessionID string) (*api.ClearResponse, error)
	GetSessions(ctx context.Context) ([]api.SessionSummary, error)
}

// KeyValueStore 客户端本地持久化存储
// Get 在键不存在时返回空字符串
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Notifier 提示消息（toast）
type Notifier interface {
	Success(message string)
	Error(message string)
}

// Refresher 后台刷新会话列表
type Refresher interface {
	RefreshAsync()
}

type nopNotifier struct{}

func (nopNotifier) Success(string) {}
func (nopNotifier) Error(string)   {}

type nopRefresher struct{}

func (nopRefresher) RefreshAsync() {}

// Option 控制器选项
type Option func(*Controller)

// WithNotifier 设置提示通道
func WithNotifier(n Notifier) Option {
	return func(c *Controller) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithSessionRefresher 设置会话列表刷新器，通常是 *SessionStore
func WithSessionRefresher(r Refresher) Option {
	return func(c *Controller) {
		if r != nil {
			c.refresher = r
		}
	}
}

// WithClock 设置时钟，测试用
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// Controller 对话控制器
// 所有状态由 mu 保护，远程调用期间不持有锁。
// isLoading 由持有 inflight 令牌的那次调用负责清除；
// gen 是视图代数，加载会话、新建对话、删除当前会话都会让它递增，
// 代数过期的远程结果不再写入视图。
type Controller struct {
	svc       Service
	kv        KeyValueStore
	notifier  Notifier
	refresher Refresher
	now       func() time.Time

	mu               sync.Mutex
	messages         []Message
	currentSessionID string
	isLoading        bool
	phase            Phase
	lastError        string
	version          uint64

	gen        uint64
	seq        uint64
	inflight   uint64
	loadingID  string
	cancelLoad context.CancelFunc

	subs observers[Snapshot]
}

// NewController 创建控制器并读取持久化的当前会话ID
// 只恢复ID，历史消息需要调用 Restore 加载
func NewController(ctx context.Context, svc Service, kv KeyValueStore, opts ...Option) *Controller {
	c := &Controller{
		svc:       svc,
		kv:        kv,
		notifier:  nopNotifier{},
		refresher: nopRefresher{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if kv != nil {
		id, err := kv.Get(ctx, CurrentSessionKey)
		if err != nil {
			log.Printf("Failed to read persisted session id: %v", err)
		}
		c.currentSessionID = strings.TrimSpace(id)
	}
	return c
}

// Snapshot 返回当前状态副本
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe 订阅状态变化，返回取消订阅函数
// 每次状态变化投递一个完整快照，Version 单调递增
func (c *Controller) Subscribe(fn func(Snapshot)) func() {
	return c.subs.add(fn)
}

// CurrentSessionID 当前会话ID，空字符串表示尚未发送的新对话
func (c *Controller) CurrentSessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentSessionID
}

// ==================== 发送消息 ====================

// SendMessage 发送一条用户消息
// 用户消息在网络调用前同步追加；失败时追加一条错误提示消息，不回滚。
// 返回 ErrEmptyMessage / ErrBusy 时状态不变；远程失败返回 *OperationError。
func (c *Controller) SendMessage(ctx context.Context, content string) (err error) {
	text := strings.TrimSpace(content)
	if text == "" {
		return ErrEmptyMessage
	}

	c.mu.Lock()
	if c.isLoading {
		c.mu.Unlock()
		return ErrBusy
	}
	c.lastError = ""
	c.messages = append(c.messages, Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   text,
		Sources:   []Source{},
		Timestamp: c.timestamp(),
	})
	token := c.beginLocked(PhaseSending)
	gen := c.gen
	sessionID := c.currentSessionID
	snap := c.commitLocked()
	c.mu.Unlock()
	c.publish(snap)

	var (
		resp    *api.ChatResponse
		callErr = errInterrupted
	)
	defer func() {
		err = c.settleSend(token, gen, resp, callErr)
	}()

	resp, callErr = c.svc.SendMessage(ctx, text, sessionID)
	if callErr == nil && resp == nil {
		callErr = errors.New(UnexpectedErrorMessage)
	}
	return nil
}

func (c *Controller) settleSend(token, gen uint64, resp *api.ChatResponse, callErr error) error {
	description := Describe(callErr)

	c.mu.Lock()
	changed := false
	if gen == c.gen {
		if callErr == nil {
			if resp.SessionID != "" && resp.SessionID != c.currentSessionID {
				c.currentSessionID = resp.SessionID
				c.persistLocked(resp.SessionID)
			}
			rt := resp.ResponseTime
			ts := resp.Timestamp
			if ts == "" {
				ts = c.timestamp()
			}
			c.messages = append(c.messages, Message{
				ID:           uuid.NewString(),
				Role:         RoleAssistant,
				Content:      resp.Answer,
				Sources:      nonNilSources(resp.Sources),
				ResponseTime: &rt,
				Timestamp:    ts,
			})
		} else {
			c.lastError = description
			c.messages = append(c.messages, Message{
				ID:        uuid.NewString(),
				Role:      RoleAssistant,
				Content:   errorReply(description),
				Sources:   []Source{},
				Timestamp: c.timestamp(),
			})
		}
		changed = true
	}
	if c.endLocked(token) {
		changed = true
	}
	var snap Snapshot
	if changed {
		snap = c.commitLocked()
	}
	c.mu.Unlock()

	if changed {
		c.publish(snap)
	}

	if callErr != nil {
		c.notifier.Error(description)
		return &OperationError{Op: "send", Description: description, Err: callErr}
	}
	c.refresher.RefreshAsync()
	return nil
}

// ==================== 加载会话 ====================

// LoadSession 切换到指定会话并加载其完整历史
// 与当前会话相同时不发起请求；发送进行中返回 ErrBusy；
// 新的加载会取代尚未完成的旧加载，旧加载返回 ErrSuperseded。
func (c *Controller) LoadSession(ctx context.Context, id string) error {
	return c.load(ctx, strings.TrimSpace(id), false)
}

// Restore 加载启动时持久化的会话
// 服务端已不存在该会话（404）时丢弃持久化的ID，等同于新建对话
func (c *Controller) Restore(ctx context.Context) error {
	c.mu.Lock()
	id := c.currentSessionID
	c.mu.Unlock()
	if id == "" {
		return nil
	}
	return c.load(ctx, id, true)
}

func (c *Controller) load(ctx context.Context, id string, restore bool) (err error) {
	if id == "" {
		return ErrInvalidSession
	}

	c.mu.Lock()
	if c.isLoading && c.loadingID == "" {
		// 发送进行中
		c.mu.Unlock()
		return ErrBusy
	}
	if c.loadingID == id {
		c.mu.Unlock()
		return nil
	}
	if id == c.currentSessionID && !restore {
		if c.loadingID == "" {
			c.mu.Unlock()
			return nil
		}
		// 回到当前会话：放弃挂起的加载
		c.cancelPendingLocked()
		c.gen++
		snap := c.commitLocked()
		c.mu.Unlock()
		c.publish(snap)
		return nil
	}

	c.cancelPendingLocked()
	c.gen++
	gen := c.gen
	loadCtx, cancel := context.WithCancel(ctx)
	c.loadingID = id
	c.cancelLoad = cancel
	c.lastError = ""
	token := c.beginLocked(PhaseLoadingHistory)
	snap := c.commitLocked()
	c.mu.Unlock()
	c.publish(snap)

	var (
		hist    *api.HistoryResponse
		callErr = errInterrupted
	)
	defer func() {
		cancel()
		err = c.settleLoad(token, gen, id, restore, hist, callErr)
	}()

	hist, callErr = c.svc.GetHistory(loadCtx, id)
	if callErr == nil && hist == nil {
		callErr = errors.New(UnexpectedErrorMessage)
	}
	return nil
}

func (c *Controller) settleLoad(token, gen uint64, id string, restore bool, hist *api.HistoryResponse, callErr error) error {
	description := Describe(callErr)

	c.mu.Lock()
	current := gen == c.gen
	changed := false
	if c.inflight == token {
		c.loadingID = ""
		c.cancelLoad = nil
	}
	if c.endLocked(token) {
		changed = true
	}

	dropped := false
	if current {
		switch {
		case callErr == nil:
			messages := make([]Message, 0, len(hist.Messages))
			for _, m := range hist.Messages {
				ts := m.Timestamp
				if ts == "" {
					ts = c.timestamp()
				}
				messages = append(messages, Message{
					ID:        uuid.NewString(),
					Role:      parseRole(m.Role),
					Content:   m.Content,
					Sources:   nonNilSources(m.Sources),
					Timestamp: ts,
				})
			}
			c.messages = messages
			if c.currentSessionID != id {
				c.currentSessionID = id
			}
			c.persistLocked(id)
		case restore && api.IsNotFound(callErr):
			c.resetLocked()
			dropped = true
		default:
			c.lastError = description
		}
		changed = true
	}
	var snap Snapshot
	if changed {
		snap = c.commitLocked()
	}
	c.mu.Unlock()

	if changed {
		c.publish(snap)
	}

	switch {
	case !current:
		return ErrSuperseded
	case dropped:
		log.Printf("Persisted session %s no longer exists, starting a new chat", id)
		return nil
	case callErr != nil:
		c.notifier.Error(LoadHistoryFailed)
		return &OperationError{Op: "load", Description: description, Err: callErr}
	}
	return nil
}

// ==================== 新建 / 删除 ====================

// StartNewChat 清空当前对话并删除持久化的会话ID
// 幂等；发送进行中调用时视图立即重置，迟到的回复被丢弃
func (c *Controller) StartNewChat() {
	c.mu.Lock()
	changed := c.resetLocked()
	var snap Snapshot
	if changed {
		snap = c.commitLocked()
	}
	c.mu.Unlock()

	if changed {
		c.publish(snap)
	}
}

// DeleteSession 删除服务端会话
// 删除的是当前会话时重置为新对话
func (c *Controller) DeleteSession(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrInvalidSession
	}

	if _, err := c.svc.ClearHistory(ctx, id); err != nil {
		c.notifier.Error(DeleteFailed)
		return &OperationError{Op: "delete", Description: Describe(err), Err: err}
	}

	c.mu.Lock()
	changed := false
	switch {
	case id == c.currentSessionID:
		changed = c.resetLocked()
	case id == c.loadingID:
		c.cancelPendingLocked()
		c.gen++
		changed = true
	}
	var snap Snapshot
	if changed {
		snap = c.commitLocked()
	}
	c.mu.Unlock()

	if changed {
		c.publish(snap)
	}
	c.refresher.RefreshAsync()
	c.notifier.Success(ChatDeleted)
	return nil
}

// ==================== 内部方法（调用方持有 mu） ====================

// beginLocked 进入忙碌阶段，返回本次调用的令牌
func (c *Controller) beginLocked(phase Phase) uint64 {
	c.seq++
	c.inflight = c.seq
	c.isLoading = true
	c.phase = phase
	return c.seq
}

// endLocked 令牌仍有效时回到空闲阶段
func (c *Controller) endLocked(token uint64) bool {
	if c.inflight != token {
		return false
	}
	c.inflight = 0
	c.isLoading = false
	c.phase = PhaseIdle
	return true
}

// cancelPendingLocked 取消挂起的历史加载
func (c *Controller) cancelPendingLocked() {
	if c.loadingID == "" {
		return
	}
	if c.cancelLoad != nil {
		c.cancelLoad()
	}
	c.loadingID = ""
	c.cancelLoad = nil
	c.endLocked(c.inflight)
}

// resetLocked 新建对话，返回状态是否变化
func (c *Controller) resetLocked() bool {
	changed := len(c.messages) > 0 || c.currentSessionID != "" || c.lastError != ""
	if c.loadingID != "" {
		c.cancelPendingLocked()
		changed = true
	}
	c.gen++
	c.messages = nil
	c.currentSessionID = ""
	c.lastError = ""
	c.removePersistedLocked()
	return changed
}

func (c *Controller) persistLocked(id string) {
	if c.kv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), kvTimeout)
	defer cancel()
	if err := c.kv.Set(ctx, CurrentSessionKey, id); err != nil {
		log.Printf("Failed to persist session id %s: %v", id, err)
	}
}

func (c *Controller) removePersistedLocked() {
	if c.kv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), kvTimeout)
	defer cancel()
	if err := c.kv.Delete(ctx, CurrentSessionKey); err != nil {
		log.Printf("Failed to remove persisted session id: %v", err)
	}
}

func (c *Controller) commitLocked() Snapshot {
	c.version++
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		Version:          c.version,
		Messages:         copyMessages(c.messages),
		CurrentSessionID: c.currentSessionID,
		IsLoading:        c.isLoading,
		Phase:            c.phase,
		LastError:        c.lastError,
	}
}

func (c *Controller) publish(snap Snapshot) {
	c.subs.notify(snap.Version, snap)
}

func (c *Controller) timestamp() string {
	return c.now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

func nonNilSources(in []Source) []Source {
	out := make([]Source, len(in))
	copy(out, in)
	return out
}
