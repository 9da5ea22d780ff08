package chat

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/api"
)

type sendCall struct {
	Message   string
	SessionID string
}

// fakeService 可编排的对话服务
type fakeService struct {
	mu            sync.Mutex
	sendCalls     []sendCall
	historyCalls  []string
	clearCalls    []string
	sessionsCalls int

	sendFn     func(ctx context.Context, message, sessionID string) (*api.ChatResponse, error)
	historyFn  func(ctx context.Context, id string) (*api.HistoryResponse, error)
	clearFn    func(ctx context.Context, id string) (*api.ClearResponse, error)
	sessionsFn func(ctx context.Context) ([]api.SessionSummary, error)
}

func (f *fakeService) SendMessage(ctx context.Context, message, sessionID string) (*api.ChatResponse, error) {
	f.mu.Lock()
	f.sendCalls = append(f.sendCalls, sendCall{Message: message, SessionID: sessionID})
	fn := f.sendFn
	f.mu.Unlock()
	if fn == nil {
		return &api.ChatResponse{Answer: "ok", SessionID: "s1"}, nil
	}
	return fn(ctx, message, sessionID)
}

func (f *fakeService) GetHistory(ctx context.Context, id string) (*api.HistoryResponse, error) {
	f.mu.Lock()
	f.historyCalls = append(f.historyCalls, id)
	fn := f.historyFn
	f.mu.Unlock()
	if fn == nil {
		return &api.HistoryResponse{SessionID: id}, nil
	}
	return fn(ctx, id)
}

func (f *fakeService) ClearHistory(ctx context.Context, id string) (*api.ClearResponse, error) {
	f.mu.Lock()
	f.clearCalls = append(f.clearCalls, id)
	fn := f.clearFn
	f.mu.Unlock()
	if fn == nil {
		return &api.ClearResponse{Success: true}, nil
	}
	return fn(ctx, id)
}

func (f *fakeService) GetSessions(ctx context.Context) ([]api.SessionSummary, error) {
	f.mu.Lock()
	f.sessionsCalls++
	fn := f.sessionsFn
	f.mu.Unlock()
	if fn == nil {
		return []api.SessionSummary{}, nil
	}
	return fn(ctx)
}

func (f *fakeService) calls() (send, history, clear int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sendCalls), len(f.historyCalls), len(f.clearCalls)
}

// memoryKV 内存键值存储，记录写入次数
type memoryKV struct {
	mu      sync.Mutex
	data    map[string]string
	sets    int
	deletes int
}

func newMemoryKV(initial map[string]string) *memoryKV {
	data := make(map[string]string)
	for k, v := range initial {
		data[k] = v
	}
	return &memoryKV{data: data}
}

func (m *memoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.sets++
	return nil
}

func (m *memoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	m.deletes++
	return nil
}

func (m *memoryKV) value(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *memoryKV) setCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sets
}

// recordingNotifier 记录所有提示
type recordingNotifier struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (n *recordingNotifier) Success(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, msg)
}

func (n *recordingNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg)
}

func (n *recordingNotifier) errorList() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string{}, n.errors...)
}

func (n *recordingNotifier) successList() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string{}, n.successes...)
}

type countingRefresher struct {
	n atomic.Int32
}

func (r *countingRefresher) RefreshAsync() {
	r.n.Add(1)
}

var fixedNow = func() time.Time {
	return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

type harness struct {
	svc       *fakeService
	kv        *memoryKV
	notifier  *recordingNotifier
	refresher *countingRefresher
	ctrl      *Controller
}

func newHarness(initial map[string]string) *harness {
	h := &harness{
		svc:       &fakeService{},
		kv:        newMemoryKV(initial),
		notifier:  &recordingNotifier{},
		refresher: &countingRefresher{},
	}
	h.ctrl = NewController(context.Background(), h.svc, h.kv,
		WithNotifier(h.notifier),
		WithSessionRefresher(h.refresher),
		WithClock(fixedNow),
	)
	return h
}
