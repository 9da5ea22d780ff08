package bridge_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/api"
	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/bridge"
	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/chat"
	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/notify"
	ws "github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/websocket"
)

type stubService struct{}

func (stubService) SendMessage(_ context.Context, _, _ string) (*api.ChatResponse, error) {
	return &api.ChatResponse{
		Answer:    "9am-9pm",
		Sources:   []api.Source{{Type: "document", Name: "handbook.pdf"}},
		SessionID: "s1",
		Timestamp: "2024-01-01T00:00:00Z",
	}, nil
}

func (stubService) GetHistory(_ context.Context, id string) (*api.HistoryResponse, error) {
	if id == "missing" {
		return nil, &api.Error{StatusCode: http.StatusNotFound, Detail: "Session missing not found"}
	}
	return &api.HistoryResponse{SessionID: id, Messages: []api.HistoryMessage{{Role: "user", Content: "hi"}}}, nil
}

func (stubService) ClearHistory(_ context.Context, _ string) (*api.ClearResponse, error) {
	return &api.ClearResponse{Success: true}, nil
}

func (stubService) GetSessions(_ context.Context) ([]api.SessionSummary, error) {
	return []api.SessionSummary{{SessionID: "s1", Title: "Library timings", MessageCount: 2}}, nil
}

type fixture struct {
	hub    *bridge.Hub
	client *ws.Client
	msgs   chan *ws.Message
}

func setup(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := stubService{}
	store := chat.NewSessionStore(svc)
	hub := bridge.NewHub()
	ctrl := chat.NewController(context.Background(), svc, nil,
		chat.WithNotifier(hub),
		chat.WithSessionRefresher(store),
	)
	hub.Bind(ctrl, store)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(bridge.NewRouter(hub))

	f := &fixture{
		hub:    hub,
		client: ws.NewClient(srv.URL),
		msgs:   make(chan *ws.Message, 256),
	}
	f.client.OnMessage(func(m *ws.Message) {
		f.msgs <- m
	})
	require.NoError(t, f.client.Connect(context.Background()))

	t.Cleanup(func() {
		f.client.Disconnect()
		hub.Wait()
		store.Wait()
		cancel()
		srv.Close()
	})
	return f
}

// waitFor 等待第一条满足条件的指定类型消息
func (f *fixture) waitFor(t *testing.T, msgType string, match func(*ws.Message) bool) *ws.Message {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case m := <-f.msgs:
			if m.Type == msgType && (match == nil || match(m)) {
				return m
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", msgType)
			return nil
		}
	}
}

func stateMatches(t *testing.T, pred func(chat.Snapshot) bool) func(*ws.Message) bool {
	return func(m *ws.Message) bool {
		var s chat.Snapshot
		require.NoError(t, m.Decode(&s))
		return pred(s)
	}
}

func TestBridge_InitialStateOnConnect(t *testing.T) {
	f := setup(t)

	state := f.waitFor(t, bridge.TypeState, nil)
	var snap chat.Snapshot
	require.NoError(t, state.Decode(&snap))
	assert.Empty(t, snap.Messages)
	assert.Equal(t, chat.PhaseIdle, snap.Phase)

	sessions := f.waitFor(t, bridge.TypeSessions, nil)
	var payload bridge.SessionsPayload
	require.NoError(t, sessions.Decode(&payload))
	assert.Empty(t, payload.Sessions)
}

func TestBridge_SendBroadcastsStateAndSessions(t *testing.T) {
	f := setup(t)
	f.waitFor(t, bridge.TypeSessions, nil)

	require.NoError(t, f.client.Send(bridge.TypeChatSend, bridge.SendPayload{Content: "Library timings"}))

	f.waitFor(t, bridge.TypeState, stateMatches(t, func(s chat.Snapshot) bool {
		return len(s.Messages) == 2 && s.CurrentSessionID == "s1" && !s.IsLoading
	}))

	msg := f.waitFor(t, bridge.TypeSessions, func(m *ws.Message) bool {
		var p bridge.SessionsPayload
		return m.Decode(&p) == nil && len(p.Sessions) == 1
	})
	var p bridge.SessionsPayload
	require.NoError(t, msg.Decode(&p))
	assert.Equal(t, "Library timings", p.Sessions[0].Title)
}

func TestBridge_LoadFailureToast(t *testing.T) {
	f := setup(t)
	f.waitFor(t, bridge.TypeSessions, nil)

	require.NoError(t, f.client.Send(bridge.TypeChatLoad, bridge.SessionPayload{SessionID: "missing"}))

	msg := f.waitFor(t, bridge.TypeToast, nil)
	var toast bridge.ToastPayload
	require.NoError(t, msg.Decode(&toast))
	assert.Equal(t, notify.LevelError, toast.Level)
	assert.Equal(t, chat.LoadHistoryFailed, toast.Message)
}

func TestBridge_ValidationErrorGoesToSender(t *testing.T) {
	f := setup(t)
	f.waitFor(t, bridge.TypeSessions, nil)

	require.NoError(t, f.client.Send(bridge.TypeChatSend, bridge.SendPayload{Content: "   "}))

	msg := f.waitFor(t, bridge.TypeError, nil)
	var p bridge.ErrorPayload
	require.NoError(t, msg.Decode(&p))
	assert.Equal(t, bridge.TypeChatSend, p.Command)
	assert.Equal(t, chat.ErrEmptyMessage.Error(), p.Message)
}

func TestBridge_PingAndUnknown(t *testing.T) {
	f := setup(t)
	f.waitFor(t, bridge.TypeSessions, nil)

	require.NoError(t, f.client.Send(bridge.TypePing, nil))
	f.waitFor(t, bridge.TypePong, nil)

	require.NoError(t, f.client.Send("chat:explode", nil))
	msg := f.waitFor(t, bridge.TypeError, nil)
	var p bridge.ErrorPayload
	require.NoError(t, msg.Decode(&p))
	assert.Equal(t, "unknown message type", p.Message)
}

func TestBridge_DeleteToastAndNewChat(t *testing.T) {
	f := setup(t)
	f.waitFor(t, bridge.TypeSessions, nil)

	require.NoError(t, f.client.Send(bridge.TypeChatLoad, bridge.SessionPayload{SessionID: "s1"}))
	f.waitFor(t, bridge.TypeState, stateMatches(t, func(s chat.Snapshot) bool {
		return s.CurrentSessionID == "s1" && !s.IsLoading
	}))

	require.NoError(t, f.client.Send(bridge.TypeChatDelete, bridge.SessionPayload{SessionID: "s1"}))
	msg := f.waitFor(t, bridge.TypeToast, nil)
	var toast bridge.ToastPayload
	require.NoError(t, msg.Decode(&toast))
	assert.Equal(t, notify.LevelSuccess, toast.Level)
	assert.Equal(t, chat.ChatDeleted, toast.Message)

	require.NoError(t, f.client.Send(bridge.TypeChatNew, nil))
	require.NoError(t, f.client.Send(bridge.TypePing, nil))
	f.waitFor(t, bridge.TypePong, nil)
}

func TestBridge_HealthAndOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := bridge.NewHub()
	r := bridge.NewRouter(hub)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","clients":0}`, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-Websocket-Version", "13")
	req.Header.Set("Sec-Websocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
