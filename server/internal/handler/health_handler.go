package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/saivighnesh2190/KLU-RAG-AGENT/server/pkg/response"
)

// Check 依赖项检查，返回 nil 表示可用
type Check func(ctx context.Context) error

// HealthHandler 健康检查处理器
type HealthHandler struct {
	version string
	checks  map[string]Check
	timeout time.Duration
}

// NewHealthHandler 创建 HealthHandler 实例
// 参数:
//   - version: 服务版本号
//   - checks: 就绪检查项，key 为检查名称（如 database、cache）
func NewHealthHandler(version string, checks map[string]Check) *HealthHandler {
	return &HealthHandler{
		version: version,
		checks:  checks,
		timeout: 3 * time.Second,
	}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ReadinessResponse 就绪检查响应
type ReadinessResponse struct {
	Ready  bool            `json:"ready"`
	Checks map[string]bool `json:"checks"`
}

// RegisterRoutes 注册健康检查路由
func (h *HealthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.Health)
	rg.GET("/health/ready", h.Ready)
}

// Health 存活检查
func (h *HealthHandler) Health(c *gin.Context) {
	response.Success(c, HealthResponse{Status: "ok", Version: h.version})
}

// Ready 就绪检查
// 任意一项检查失败时 ready 为 false，状态码仍为 200
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	result := ReadinessResponse{Ready: true, Checks: make(map[string]bool, len(h.checks))}
	for name, check := range h.checks {
		ok := check(ctx) == nil
		result.Checks[name] = ok
		if !ok {
			result.Ready = false
		}
	}
	response.Success(c, result)
}
