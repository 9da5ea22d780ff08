// Package response 提供统一的 HTTP 响应格式
// 成功时直接返回数据本身，失败时返回 {"detail": "..."}
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse 错误响应结构
type ErrorResponse struct {
	Detail string `json:"detail"` // 错误描述
}

// Success 返回成功响应
// 参数:
//   - c: Gin 上下文
//   - data: 响应数据，原样序列化
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Error 返回错误响应
// 参数:
//   - c: Gin 上下文
//   - httpCode: HTTP 状态码
//   - detail: 错误信息
func Error(c *gin.Context, httpCode int, detail string) {
	c.AbortWithStatusJSON(httpCode, ErrorResponse{Detail: detail})
}

// BadRequest 返回 400 错误（请求参数错误）
func BadRequest(c *gin.Context, detail string) {
	Error(c, http.StatusBadRequest, detail)
}

// NotFound 返回 404 错误（资源不存在）
func NotFound(c *gin.Context, detail string) {
	Error(c, http.StatusNotFound, detail)
}

// TooManyRequests 返回 429 错误（请求过于频繁）
func TooManyRequests(c *gin.Context, detail string) {
	Error(c, http.StatusTooManyRequests, detail)
}

// InternalError 返回 500 错误（服务器内部错误）
func InternalError(c *gin.Context, detail string) {
	Error(c, http.StatusInternalServerError, detail)
}
