package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saivighnesh2190/KLU-RAG-AGENT/server/internal/model"
	"github.com/saivighnesh2190/KLU-RAG-AGENT/server/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubChatService struct {
	chatFn    func(message string, sessionID *string) (*service.ChatResult, error)
	historyFn func(id string) (*service.HistoryResult, error)
	clearFn   func(id string) error
	listFn    func() ([]service.SessionSummary, error)
}

func (s *stubChatService) Chat(_ context.Context, message string, sessionID *string) (*service.ChatResult, error) {
	return s.chatFn(message, sessionID)
}

func (s *stubChatService) History(_ context.Context, id string) (*service.HistoryResult, error) {
	return s.historyFn(id)
}

func (s *stubChatService) Clear(_ context.Context, id string) error {
	return s.clearFn(id)
}

func (s *stubChatService) ListSessions(_ context.Context) ([]service.SessionSummary, error) {
	return s.listFn()
}

func newRouter(svc ChatService, checks map[string]Check) *gin.Engine {
	r := gin.New()
	api := r.Group("/api")
	NewChatHandler(svc).RegisterRoutes(api)
	NewHealthHandler("1.0.0", checks).RegisterRoutes(api)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSendMessage(t *testing.T) {
	var gotMessage string
	var gotSession *string
	svc := &stubChatService{chatFn: func(message string, sessionID *string) (*service.ChatResult, error) {
		gotMessage, gotSession = message, sessionID
		return &service.ChatResult{
			Answer:       "8am to 10pm",
			Sources:      []model.Source{{Type: "document", Name: "handbook.pdf"}},
			SessionID:    "s-1",
			ResponseTime: 1.23,
			Timestamp:    "2024-03-01T09:00:01.234",
		}, nil
	}}
	r := newRouter(svc, nil)

	w := do(r, http.MethodPost, "/api/chat", `{"message":"Library timings","session_id":null}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Library timings", gotMessage)
	assert.Nil(t, gotSession)
	assert.JSONEq(t, `{
		"answer": "8am to 10pm",
		"sources": [{"type": "document", "name": "handbook.pdf"}],
		"session_id": "s-1",
		"response_time": 1.23,
		"timestamp": "2024-03-01T09:00:01.234"
	}`, w.Body.String())

	do(r, http.MethodPost, "/api/chat", `{"message":"again","session_id":"s-1"}`)
	require.NotNil(t, gotSession)
	assert.Equal(t, "s-1", *gotSession)
}

func TestSendMessage_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		detail string
	}{
		{"invalid json", `{"message":`, nil, http.StatusBadRequest, `{"detail":"Invalid request body"}`},
		{"empty", `{"message":""}`, service.ErrEmptyMessage, http.StatusBadRequest, `{"detail":"Message cannot be empty"}`},
		{"generator", `{"message":"hi"}`, errors.New("upstream timeout"), http.StatusInternalServerError, `{"detail":"Error processing message: upstream timeout"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubChatService{chatFn: func(string, *string) (*service.ChatResult, error) {
				return nil, tt.err
			}}
			w := do(newRouter(svc, nil), http.MethodPost, "/api/chat", tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.JSONEq(t, tt.detail, w.Body.String())
		})
	}
}

func TestSendMessage_Middleware(t *testing.T) {
	called := false
	svc := &stubChatService{chatFn: func(string, *string) (*service.ChatResult, error) {
		called = true
		return &service.ChatResult{}, nil
	}}
	r := gin.New()
	NewChatHandler(svc).RegisterRoutes(r.Group("/api"), func(c *gin.Context) {
		c.AbortWithStatus(http.StatusTooManyRequests)
	})

	w := do(r, http.MethodPost, "/api/chat", `{"message":"hi"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.False(t, called)

	// 其他接口不经过该中间件
	svc.listFn = func() ([]service.SessionSummary, error) { return nil, nil }
	w = do(r, http.MethodGet, "/api/chat/sessions", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetHistory(t *testing.T) {
	svc := &stubChatService{historyFn: func(id string) (*service.HistoryResult, error) {
		if id != "s-1" {
			return nil, service.ErrSessionNotFound
		}
		return &service.HistoryResult{
			SessionID: "s-1",
			Messages: []service.HistoryMessage{
				{Role: "user", Content: "hi", Sources: []model.Source{}, Timestamp: "2024-03-01T09:00:00"},
			},
		}, nil
	}}
	r := newRouter(svc, nil)

	w := do(r, http.MethodGet, "/api/chat/history/s-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"session_id":"s-1","messages":[{"role":"user","content":"hi","sources":[],"timestamp":"2024-03-01T09:00:00"}]}`, w.Body.String())

	w = do(r, http.MethodGet, "/api/chat/history/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"detail":"Session nope not found"}`, w.Body.String())

	svc.historyFn = func(string) (*service.HistoryResult, error) { return nil, errors.New("db down") }
	w = do(r, http.MethodGet, "/api/chat/history/s-1", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestClearHistory(t *testing.T) {
	svc := &stubChatService{clearFn: func(id string) error {
		if id != "s-1" {
			return service.ErrSessionNotFound
		}
		return nil
	}}
	r := newRouter(svc, nil)

	w := do(r, http.MethodDelete, "/api/chat/history/s-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"message":"Session s-1 cleared"}`, w.Body.String())

	w = do(r, http.MethodDelete, "/api/chat/history/s-2", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"detail":"Session s-2 not found"}`, w.Body.String())
}

func TestListSessions(t *testing.T) {
	svc := &stubChatService{listFn: func() ([]service.SessionSummary, error) { return nil, nil }}
	r := newRouter(svc, nil)

	w := do(r, http.MethodGet, "/api/chat/sessions", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	svc.listFn = func() ([]service.SessionSummary, error) {
		return []service.SessionSummary{{SessionID: "s-1", Title: "New Chat", MessageCount: 0, CreatedAt: "c", LastMessageAt: "l"}}, nil
	}
	w = do(r, http.MethodGet, "/api/chat/sessions", "")
	assert.JSONEq(t, `[{"session_id":"s-1","title":"New Chat","message_count":0,"created_at":"c","last_message_at":"l"}]`, w.Body.String())

	svc.listFn = func() ([]service.SessionSummary, error) { return nil, errors.New("db down") }
	w = do(r, http.MethodGet, "/api/chat/sessions", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"detail":"Failed to list sessions"}`, w.Body.String())
}

func TestHealth(t *testing.T) {
	r := newRouter(&stubChatService{}, map[string]Check{
		"database": func(context.Context) error { return nil },
		"cache":    func(context.Context) error { return errors.New("connection refused") },
	})

	w := do(r, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","version":"1.0.0"}`, w.Body.String())

	w = do(r, http.MethodGet, "/api/health/ready", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ready":false,"checks":{"database":true,"cache":false}}`, w.Body.String())
}

func TestReady_AllPassing(t *testing.T) {
	r := newRouter(&stubChatService{}, map[string]Check{
		"database": func(context.Context) error { return nil },
	})

	w := do(r, http.MethodGet, "/api/health/ready", "")
	assert.JSONEq(t, `{"ready":true,"checks":{"database":true}}`, w.Body.String())
}
