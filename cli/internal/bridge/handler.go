package bridge

import (
	"log"
	"net"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WebSocket 升级器配置
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     localOrigin,
}

// localOrigin 只接受本机页面发起的连接
func localOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Handler 处理 WebSocket 连接
type Handler struct {
	hub *Hub
}

// NewHandler 创建 WebSocket Handler
func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// HandleWS 处理浏览器连接
// 路由: GET /ws
func (h *Handler) HandleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}

	client := NewClient(h.hub, conn)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

// Health 存活检查
// 路由: GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "clients": h.hub.ClientCount()})
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws", h.HandleWS)
	r.GET("/health", h.Health)
}

// NewRouter 创建桥接服务的 gin 引擎
func NewRouter(hub *Hub) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	NewHandler(hub).RegisterRoutes(r)
	return r
}
