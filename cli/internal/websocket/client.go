// Package websocket 连接本地桥接服务的 WebSocket 客户端
// klu watch 用它实时查看对话状态
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/bridge"
)

// pingInterval 应用层心跳间隔
const pingInterval = 30 * time.Second

// Message 收到的消息，Payload 按 Type 再解析
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
	MessageID string          `json:"message_id,omitempty"`
}

// Decode 解析 Payload
func (m *Message) Decode(out interface{}) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("消息 %s 没有 payload", m.Type)
	}
	return json.Unmarshal(m.Payload, out)
}

// Client WebSocket 客户端
type Client struct {
	conn      *websocket.Conn
	url       string
	sendChan  chan []byte
	done      chan struct{}
	mu        sync.Mutex
	writeMu   sync.Mutex
	isRunning bool
	onMessage func(*Message) // 消息回调
	onClose   func()         // 连接关闭回调
}

// NewClient 创建客户端
// bridgeURL: 桥接服务地址（如 http://127.0.0.1:8765）
func NewClient(bridgeURL string) *Client {
	wsURL := strings.Replace(bridgeURL, "http://", "ws://", 1)
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)
	if !strings.HasPrefix(wsURL, "ws://") && !strings.HasPrefix(wsURL, "wss://") {
		wsURL = "ws://" + wsURL
	}
	wsURL = strings.TrimRight(wsURL, "/") + "/ws"

	return &Client{
		url:      wsURL,
		sendChan: make(chan []byte, 64),
		done:     make(chan struct{}),
	}
}

// URL 返回 WebSocket 地址
func (c *Client) URL() string {
	return c.url
}

// OnMessage 设置消息回调，需在 Connect 前调用
func (c *Client) OnMessage(handler func(*Message)) {
	c.onMessage = handler
}

// OnClose 设置连接关闭回调，需在 Connect 前调用
func (c *Client) OnClose(handler func()) {
	c.onClose = handler
}

// Connect 连接桥接服务
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return fmt.Errorf("客户端已在运行")
	}
	c.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("连接失败: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.isRunning = true
	c.done = make(chan struct{})
	c.mu.Unlock()

	go c.readPump()
	go c.writePump()
	return nil
}

// Done 连接关闭时关闭
func (c *Client) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Disconnect 断开连接
func (c *Client) Disconnect() {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return
	}
	c.isRunning = false
	close(c.done)
	conn := c.conn
	onClose := c.onClose
	c.mu.Unlock()

	c.writeMu.Lock()
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	conn.Close()

	if onClose != nil {
		onClose()
	}
}

// Send 发送一条命令
func (c *Client) Send(msgType string, payload interface{}) error {
	data, err := json.Marshal(bridge.NewMessage(msgType, payload))
	if err != nil {
		return err
	}

	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	select {
	case c.sendChan <- data:
		return nil
	case <-done:
		return fmt.Errorf("连接已关闭")
	default:
		return fmt.Errorf("发送缓冲区已满")
	}
}

// IsRunning 检查是否正在运行
func (c *Client) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isRunning
}

func (c *Client) readPump() {
	defer c.Disconnect()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] read error: %v", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("[WS] failed to parse message: %v", err)
			continue
		}

		if c.onMessage != nil {
			c.onMessage(&msg)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	defer func() {
		ticker.Stop()
		c.Disconnect()
	}()

	for {
		select {
		case <-done:
			return

		case data := <-c.sendChan:
			if err := c.write(data); err != nil {
				log.Printf("[WS] failed to send message: %v", err)
				return
			}

		case <-ticker.C:
			data, _ := json.Marshal(bridge.NewMessage(bridge.TypePing, nil))
			if err := c.write(data); err != nil {
				log.Printf("[WS] failed to send ping: %v", err)
				return
			}
		}
	}
}

func (c *Client) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}
