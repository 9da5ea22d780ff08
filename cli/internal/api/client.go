// Package api 封装与 KLU Agent 对话服务的 HTTP API 交互
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout AI 回答可能较慢，默认给 60 秒
const DefaultTimeout = 60 * time.Second

// Client 对话服务 API 客户端
// baseURL: 例如 http://localhost:8000/api
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient 创建 API 客户端
// timeout 为 0 时使用 DefaultTimeout
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BaseURL 返回服务地址
func (c *Client) BaseURL() string {
	return c.baseURL
}

// --- 对话 ---

// Source 回答引用的证据来源
type Source struct {
	Type    string `json:"type"` // document / database
	Name    string `json:"name"`
	Snippet string `json:"snippet,omitempty"`
}

// ChatRequest 发送消息请求
// SessionID 为 nil 时序列化为 null，表示开启新会话
type ChatRequest struct {
	Message   string  `json:"message"`
	SessionID *string `json:"session_id"`
}

// ChatResponse 发送消息响应
type ChatResponse struct {
	Answer       string   `json:"answer"`
	Sources      []Source `json:"sources"`
	SessionID    string   `json:"session_id"`
	ResponseTime float64  `json:"response_time"`
	Timestamp    string   `json:"timestamp"`
}

// SendMessage 发送一条消息，sessionID 为空时由服务端创建新会话
func (c *Client) SendMessage(ctx context.Context, message, sessionID string) (*ChatResponse, error) {
	body := ChatRequest{Message: message}
	if sessionID != "" {
		body.SessionID = &sessionID
	}
	var result ChatResponse
	if err := c.post(ctx, "/chat", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// --- 会话历史 ---

// HistoryMessage 历史记录中的一条消息
type HistoryMessage struct {
	Role      string   `json:"role"`
	Content   string   `json:"content"`
	Sources   []Source `json:"sources,omitempty"`
	Timestamp string   `json:"timestamp"`
}

// HistoryResponse 会话历史响应
type HistoryResponse struct {
	SessionID string           `json:"session_id"`
	Messages  []HistoryMessage `json:"messages"`
}

// GetHistory 获取会话完整历史
func (c *Client) GetHistory(ctx context.Context, sessionID string) (*HistoryResponse, error) {
	var result HistoryResponse
	if err := c.get(ctx, "/chat/history/"+url.PathEscape(sessionID), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ClearResponse 删除会话响应
type ClearResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ClearHistory 删除会话及其历史
func (c *Client) ClearHistory(ctx context.Context, sessionID string) (*ClearResponse, error) {
	var result ClearResponse
	if err := c.delete(ctx, "/chat/history/"+url.PathEscape(sessionID), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SessionSummary 会话列表项
type SessionSummary struct {
	SessionID     string `json:"session_id"`
	Title         string `json:"title"`
	MessageCount  int    `json:"message_count"`
	CreatedAt     string `json:"created_at"`
	LastMessageAt string `json:"last_message_at"`
}

// GetSessions 获取全部会话，顺序由服务端决定（最近活跃在前）
func (c *Client) GetSessions(ctx context.Context) ([]SessionSummary, error) {
	var result []SessionSummary
	if err := c.get(ctx, "/chat/sessions", &result); err != nil {
		return nil, err
	}
	if result == nil {
		result = []SessionSummary{}
	}
	return result, nil
}

// --- 健康检查 ---

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Health 检查服务是否存活
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var result HealthResponse
	if err := c.get(ctx, "/health", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ReadinessResponse 就绪检查响应
type ReadinessResponse struct {
	Ready  bool            `json:"ready"`
	Checks map[string]bool `json:"checks"`
}

// Ready 检查服务依赖是否就绪
func (c *Client) Ready(ctx context.Context) (*ReadinessResponse, error) {
	var result ReadinessResponse
	if err := c.get(ctx, "/health/ready", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// --- 通用请求封装 ---

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("编码请求失败: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) delete(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// 没有收到任何响应
		return &Error{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{StatusCode: resp.StatusCode, Err: fmt.Errorf("读取响应失败: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newStatusError(resp.StatusCode, respBody)
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &Error{StatusCode: resp.StatusCode, Err: fmt.Errorf("解析响应失败: %w", err)}
	}
	return nil
}
