package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"

	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/chat"
	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/notify"
)

// Conversation 桥接需要的控制器能力，*chat.Controller 实现了该接口
type Conversation interface {
	Snapshot() chat.Snapshot
	Subscribe(fn func(chat.Snapshot)) func()
	SendMessage(ctx context.Context, content string) error
	LoadSession(ctx context.Context, id string) error
	StartNewChat()
	DeleteSession(ctx context.Context, id string) error
}

// SessionList 桥接需要的会话列表能力，*chat.SessionStore 实现了该接口
type SessionList interface {
	Sessions() []chat.Session
	Subscribe(fn func([]chat.Session)) func()
	RefreshAsync()
}

// Hub 管理所有浏览器连接
// 控制器的快照和会话列表变化会广播给每个连接；
// Hub 同时实现 notify.Notifier，提示消息也以 toast 广播出去。
type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex

	conv        Conversation
	sessions    SessionList
	unsubscribe []func()

	ctx      context.Context
	commands sync.WaitGroup
}

// NewHub 创建 Hub 实例
// 控制器创建时需要 Hub 作为 Notifier，所以先创建 Hub，再用 Bind 绑定
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		ctx:        context.Background(),
	}
}

// Bind 绑定控制器和会话列表，必须在 Run 之前调用
func (h *Hub) Bind(conv Conversation, sessions SessionList) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conv = conv
	h.sessions = sessions
	h.unsubscribe = append(h.unsubscribe,
		conv.Subscribe(func(s chat.Snapshot) {
			h.broadcast(NewMessage(TypeState, s))
		}),
		sessions.Subscribe(func(list []chat.Session) {
			h.broadcast(NewMessage(TypeSessions, &SessionsPayload{Sessions: list}))
		}),
	)
}

// Run 启动 Hub 主循环，ctx 结束时关闭所有连接
func (h *Hub) Run(ctx context.Context) {
	h.mu.Lock()
	h.ctx = ctx
	h.mu.Unlock()

	defer h.shutdown()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-ctx.Done():
			return
		}
	}
}

// Register 注册连接
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.Close()
	}
}

// Unregister 注销连接
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ClientCount 当前连接数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Wait 等待已派发的命令执行完
func (h *Hub) Wait() {
	h.commands.Wait()
}

// Success 广播成功提示
func (h *Hub) Success(message string) {
	h.broadcast(NewMessage(TypeToast, &ToastPayload{Level: notify.LevelSuccess, Message: message}))
}

// Error 广播错误提示
func (h *Hub) Error(message string) {
	h.broadcast(NewMessage(TypeToast, &ToastPayload{Level: notify.LevelError, Message: message}))
}

func (h *Hub) registerClient(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	conv, sessions := h.conv, h.sessions
	count := len(h.clients)
	h.mu.Unlock()

	// 新连接先拿到完整状态
	if conv != nil {
		c.SendMessage(NewMessage(TypeState, conv.Snapshot()))
	}
	if sessions != nil {
		c.SendMessage(NewMessage(TypeSessions, &SessionsPayload{Sessions: sessions.Sessions()}))
	}
	log.Printf("Bridge client registered: clients=%d", count)
}

func (h *Hub) unregisterClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	c.Close()
	log.Printf("Bridge client unregistered: clients=%d", len(h.clients))
}

func (h *Hub) shutdown() {
	close(h.done)

	h.mu.Lock()
	for c := range h.clients {
		c.Close()
		delete(h.clients, c)
	}
	unsubscribe := h.unsubscribe
	h.unsubscribe = nil
	h.mu.Unlock()

	for _, fn := range unsubscribe {
		fn()
	}
}

func (h *Hub) broadcast(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to encode bridge message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.sendRaw(data)
	}
}

// ==================== 命令分发 ====================

// dispatch 处理浏览器发来的命令
// 会阻塞的操作在独立 goroutine 中执行，不占用读循环
func (h *Hub) dispatch(c *Client, msg *inbound) {
	h.mu.RLock()
	conv, sessions, ctx := h.conv, h.sessions, h.ctx
	h.mu.RUnlock()

	if msg.Type == TypePing {
		c.SendMessage(NewMessage(TypePong, nil))
		return
	}
	if conv == nil || sessions == nil {
		c.SendMessage(NewMessage(TypeError, &ErrorPayload{Command: msg.Type, Message: "bridge not ready"}))
		return
	}

	switch msg.Type {
	case TypeChatSend:
		var p SendPayload
		if !decodePayload(c, msg, &p) {
			return
		}
		h.run(c, msg.Type, func() error { return conv.SendMessage(ctx, p.Content) })

	case TypeChatLoad:
		var p SessionPayload
		if !decodePayload(c, msg, &p) {
			return
		}
		h.run(c, msg.Type, func() error { return conv.LoadSession(ctx, p.SessionID) })

	case TypeChatNew:
		conv.StartNewChat()

	case TypeChatDelete:
		var p SessionPayload
		if !decodePayload(c, msg, &p) {
			return
		}
		h.run(c, msg.Type, func() error { return conv.DeleteSession(ctx, p.SessionID) })

	case TypeSessionsRefresh:
		sessions.RefreshAsync()

	default:
		log.Printf("Unknown bridge message type: %s", msg.Type)
		c.SendMessage(NewMessage(TypeError, &ErrorPayload{Command: msg.Type, Message: "unknown message type"}))
	}
}

func (h *Hub) run(c *Client, command string, fn func() error) {
	h.commands.Add(1)
	go func() {
		defer h.commands.Done()
		if err := fn(); err != nil {
			reportError(c, command, err)
		}
	}()
}

// reportError 把校验错误回给发起命令的连接
// 远程失败已经通过 toast 广播，被取代的加载不需要提示
func reportError(c *Client, command string, err error) {
	var opErr *chat.OperationError
	if errors.As(err, &opErr) || errors.Is(err, chat.ErrSuperseded) {
		return
	}
	c.SendMessage(NewMessage(TypeError, &ErrorPayload{Command: command, Message: err.Error()}))
}

func decodePayload(c *Client, msg *inbound, out interface{}) bool {
	if len(msg.Payload) == 0 {
		c.SendMessage(NewMessage(TypeError, &ErrorPayload{Command: msg.Type, Message: "missing payload"}))
		return false
	}
	if err := json.Unmarshal(msg.Payload, out); err != nil {
		c.SendMessage(NewMessage(TypeError, &ErrorPayload{Command: msg.Type, Message: "invalid payload"}))
		return false
	}
	return true
}
