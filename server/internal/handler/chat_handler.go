// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/saivighnesh2190/KLU-RAG-AGENT/server/internal/middleware"
	"github.com/saivighnesh2190/KLU-RAG-AGENT/server/internal/service"
	"github.com/saivighnesh2190/KLU-RAG-AGENT/server/pkg/response"
)

// ChatService 对话处理器依赖的业务接口
type ChatService interface {
	Chat(ctx context.Context, message string, sessionID *string) (*service.ChatResult, error)
	History(ctx context.Context, sessionID string) (*service.HistoryResult, error)
	Clear(ctx context.Context, sessionID string) error
	ListSessions(ctx context.Context) ([]service.SessionSummary, error)
}

// ChatHandler 对话请求处理器
type ChatHandler struct {
	chatService ChatService
}

// NewChatHandler 创建 ChatHandler 实例
func NewChatHandler(chatService ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

// ChatRequest 发送消息请求
type ChatRequest struct {
	Message   string  `json:"message"`
	SessionID *string `json:"session_id"`
}

// ClearResponse 清空会话响应
type ClearResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// RegisterRoutes 注册对话相关路由
// 参数:
//   - rg: 路由组（通常是 /api）
//   - sendMiddleware: 只作用于发送消息接口的中间件，如限流
func (h *ChatHandler) RegisterRoutes(rg *gin.RouterGroup, sendMiddleware ...gin.HandlerFunc) {
	chat := rg.Group("/chat")
	{
		chat.POST("", append(sendMiddleware, h.SendMessage)...)
		chat.GET("/history/:session_id", h.GetHistory)
		chat.DELETE("/history/:session_id", h.ClearHistory)
		chat.GET("/sessions", h.ListSessions)
	}
}

// SendMessage 发送消息并获取回答
// @Summary 发送消息
// @Tags 对话
// @Accept json
// @Produce json
// @Param body body ChatRequest true "消息"
// @Success 200 {object} service.ChatResult
// @Router /api/chat [post]
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.chatService.Chat(c.Request.Context(), req.Message, req.SessionID)
	if err != nil {
		if errors.Is(err, service.ErrEmptyMessage) {
			response.BadRequest(c, "Message cannot be empty")
			return
		}
		log.Printf("Chat failed: %v", err)
		response.InternalError(c, fmt.Sprintf("Error processing message: %v", err))
		return
	}

	middleware.ObserveChatResponse(result.ResponseTime)
	response.Success(c, result)
}

// GetHistory 获取会话历史
// @Summary 获取会话历史
// @Tags 对话
// @Produce json
// @Param session_id path string true "会话ID"
// @Success 200 {object} service.HistoryResult
// @Router /api/chat/history/{session_id} [get]
func (h *ChatHandler) GetHistory(c *gin.Context) {
	sessionID := c.Param("session_id")

	history, err := h.chatService.History(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			response.NotFound(c, fmt.Sprintf("Session %s not found", sessionID))
			return
		}
		log.Printf("Failed to load history for %s: %v", sessionID, err)
		response.InternalError(c, "Failed to load chat history")
		return
	}

	response.Success(c, history)
}

// ClearHistory 删除会话
// @Summary 删除会话
// @Tags 对话
// @Produce json
// @Param session_id path string true "会话ID"
// @Success 200 {object} ClearResponse
// @Router /api/chat/history/{session_id} [delete]
func (h *ChatHandler) ClearHistory(c *gin.Context) {
	sessionID := c.Param("session_id")

	if err := h.chatService.Clear(c.Request.Context(), sessionID); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			response.NotFound(c, fmt.Sprintf("Session %s not found", sessionID))
			return
		}
		log.Printf("Failed to clear session %s: %v", sessionID, err)
		response.InternalError(c, "Failed to clear session")
		return
	}

	response.Success(c, ClearResponse{
		Success: true,
		Message: fmt.Sprintf("Session %s cleared", sessionID),
	})
}

// ListSessions 获取会话列表
// @Summary 获取会话列表
// @Tags 对话
// @Produce json
// @Success 200 {array} service.SessionSummary
// @Router /api/chat/sessions [get]
func (h *ChatHandler) ListSessions(c *gin.Context) {
	sessions, err := h.chatService.ListSessions(c.Request.Context())
	if err != nil {
		log.Printf("Failed to list sessions: %v", err)
		response.InternalError(c, "Failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []service.SessionSummary{}
	}
	response.Success(c, sessions)
}
