package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/api"
	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/chat"
	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/notify"
	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/storage"
)

// fakeBackend 内存版对话服务
type fakeBackend struct {
	mu       sync.Mutex
	sessions map[string][]api.HistoryMessage
	order    []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{sessions: make(map[string][]api.HistoryMessage)}
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/chat":
		var req api.ChatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		id := "s" + string(rune('0'+len(b.order)+1))
		if req.SessionID != nil {
			if _, ok := b.sessions[*req.SessionID]; ok {
				id = *req.SessionID
			}
		}
		if _, ok := b.sessions[id]; !ok {
			b.order = append([]string{id}, b.order...)
		}
		b.sessions[id] = append(b.sessions[id],
			api.HistoryMessage{Role: "user", Content: req.Message},
			api.HistoryMessage{Role: "assistant", Content: "answer to " + req.Message},
		)
		_ = json.NewEncoder(w).Encode(api.ChatResponse{
			Answer:       "answer to " + req.Message,
			Sources:      []api.Source{{Type: "document", Name: "handbook.pdf"}},
			SessionID:    id,
			ResponseTime: 0.5,
			Timestamp:    "2024-01-01T00:00:00",
		})

	case r.Method == http.MethodGet && r.URL.Path == "/api/chat/sessions":
		list := []api.SessionSummary{}
		for _, id := range b.order {
			list = append(list, api.SessionSummary{
				SessionID:     id,
				Title:         b.sessions[id][0].Content,
				MessageCount:  len(b.sessions[id]),
				LastMessageAt: "2024-01-01T00:00:00",
			})
		}
		_ = json.NewEncoder(w).Encode(list)

	case strings.HasPrefix(r.URL.Path, "/api/chat/history/"):
		id := strings.TrimPrefix(r.URL.Path, "/api/chat/history/")
		msgs, ok := b.sessions[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"Session ` + id + ` not found"}`))
			return
		}
		if r.Method == http.MethodDelete {
			delete(b.sessions, id)
			for i, o := range b.order {
				if o == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
			_ = json.NewEncoder(w).Encode(api.ClearResponse{Success: true, Message: "Session " + id + " cleared"})
			return
		}
		_ = json.NewEncoder(w).Encode(api.HistoryResponse{SessionID: id, Messages: msgs})

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestREPL(t *testing.T) (*repl, *bytes.Buffer, *chat.SessionStore) {
	t.Helper()
	srv := httptest.NewServer(newFakeBackend())
	t.Cleanup(srv.Close)

	out := &bytes.Buffer{}
	client := api.NewClient(srv.URL+"/api", time.Second)
	kv, err := storage.NewFileStore(t.TempDir() + "/state.yaml")
	require.NoError(t, err)

	sessions := chat.NewSessionStore(client)
	ctrl := chat.NewController(context.Background(), client, kv,
		chat.WithNotifier(notify.NewConsole(out, false)),
		chat.WithSessionRefresher(sessions),
	)
	t.Cleanup(sessions.Wait)

	return &repl{
		ctrl:      ctrl,
		sessions:  sessions,
		out:       out,
		now:       func() time.Time { return time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC) },
		serverURL: srv.URL + "/api",
		backend:   storage.BackendFile,
	}, out, sessions
}

func TestREPL_SendPrintsAnswer(t *testing.T) {
	r, out, _ := newTestREPL(t)

	quit := r.handle(context.Background(), "Library timings")

	assert.False(t, quit)
	assert.Contains(t, out.String(), "KLU Agent: answer to Library timings")
	assert.Contains(t, out.String(), "sources: handbook.pdf (document)")
	assert.Contains(t, out.String(), "answered in 0.50s")
	assert.Equal(t, "s1", r.ctrl.CurrentSessionID())
}

func TestREPL_SessionsLoadAndDeleteByNumber(t *testing.T) {
	r, out, _ := newTestREPL(t)
	ctx := context.Background()

	r.handle(ctx, "first question")
	r.handle(ctx, "/new")
	r.handle(ctx, "second question")
	require.Equal(t, "s2", r.ctrl.CurrentSessionID())

	out.Reset()
	r.handle(ctx, "/sessions")
	listing := out.String()
	assert.Contains(t, listing, "#1")
	assert.Contains(t, listing, "second question")
	assert.Contains(t, listing, "first question")
	assert.Contains(t, listing, "1 hour ago")

	out.Reset()
	r.handle(ctx, "/load #2")
	assert.Equal(t, "s1", r.ctrl.CurrentSessionID())
	assert.Contains(t, out.String(), "You: first question")

	out.Reset()
	r.handle(ctx, "/delete s1")
	assert.Contains(t, out.String(), "✓ Chat deleted")
	assert.Empty(t, r.ctrl.CurrentSessionID())

	out.Reset()
	r.handle(ctx, "/delete s1")
	assert.Contains(t, out.String(), "✗ Failed to delete chat")
}

func TestREPL_LoadMissingSession(t *testing.T) {
	r, out, _ := newTestREPL(t)

	r.handle(context.Background(), "/load nope")

	assert.Contains(t, out.String(), "✗ Failed to load chat history")
	assert.Empty(t, r.ctrl.CurrentSessionID())
}

func TestREPL_Commands(t *testing.T) {
	r, out, _ := newTestREPL(t)
	ctx := context.Background()

	assert.True(t, r.handle(ctx, "/quit"))
	assert.False(t, r.handle(ctx, "   "))

	r.handle(ctx, "/help")
	assert.Contains(t, out.String(), "/sessions")

	out.Reset()
	r.handle(ctx, "/status")
	assert.Contains(t, out.String(), "当前会话: （新对话）")
	assert.Contains(t, out.String(), "状态: idle")

	out.Reset()
	r.handle(ctx, "/load")
	assert.Contains(t, out.String(), "需要会话ID或编号")

	out.Reset()
	r.handle(ctx, "/bogus")
	assert.Contains(t, out.String(), "未知命令 /bogus")
}

func TestResolveSessionRef(t *testing.T) {
	listed := []chat.Session{{SessionID: "a"}, {SessionID: "b"}}

	id, err := resolveSessionRef("#2", listed)
	require.NoError(t, err)
	assert.Equal(t, "b", id)

	id, err = resolveSessionRef("1", listed)
	require.NoError(t, err)
	assert.Equal(t, "a", id)

	id, err = resolveSessionRef("abc-123", listed)
	require.NoError(t, err)
	assert.Equal(t, "abc-123", id)

	_, err = resolveSessionRef("#3", listed)
	assert.Error(t, err)

	// 超出列表范围的纯数字按会话ID处理
	id, err = resolveSessionRef("7", listed)
	require.NoError(t, err)
	assert.Equal(t, "7", id)

	_, err = resolveSessionRef("#1", nil)
	assert.Error(t, err)

	id, err = resolveSessionRef("42", nil)
	require.NoError(t, err)
	assert.Equal(t, "42", id)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "New Chat", truncate("  ", 50))
	assert.Equal(t, "short", truncate("short", 50))
	assert.Equal(t, strings.Repeat("x", 50)+"...", truncate(strings.Repeat("x", 60), 50))
	assert.Equal(t, "图书馆...", truncate("图书馆开放时间", 3))
}

func TestWatcher_RendersIncrementally(t *testing.T) {
	var out bytes.Buffer
	w := &watcher{out: &out, now: time.Now}

	w.renderState(chat.Snapshot{Messages: []chat.Message{{Role: chat.RoleUser, Content: "hi"}}, IsLoading: true, Phase: chat.PhaseSending})
	w.renderState(chat.Snapshot{CurrentSessionID: "s1", Messages: []chat.Message{
		{Role: chat.RoleUser, Content: "hi"},
		{Role: chat.RoleAssistant, Content: "hello"},
	}})

	got := out.String()
	assert.Equal(t, 1, strings.Count(got, "You: hi"))
	assert.Contains(t, got, "… sending")
	assert.Contains(t, got, "KLU Agent: hello")

	w.renderState(chat.Snapshot{})
	assert.Contains(t, out.String(), "── 新对话 ──")
}
