// Package middleware 提供 HTTP 请求的中间件
package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORSConfig 对话接口的跨域配置
// 接口是匿名的，按会话ID区分，不需要 Cookie，因此不发送 Allow-Credentials
type CORSConfig struct {
	AllowOrigins []string // 浏览器界面所在的来源，来自 server.cors；包含 "*" 时允许任意来源
	AllowMethods []string
	AllowHeaders []string
	MaxAge       int // 预检结果缓存秒数
}

// DefaultCORSConfig 对话接口的跨域配置
// 只开放 GET/POST/DELETE，请求体只有 JSON
// 不传 origins 时允许任意来源
func DefaultCORSConfig(origins ...string) CORSConfig {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       86400,
	}
}

// allowedOrigin 返回应写入 Access-Control-Allow-Origin 的值，不允许时返回空串
func (cfg CORSConfig) allowedOrigin(origin string) string {
	if origin == "" {
		return ""
	}
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			return "*"
		}
		if strings.EqualFold(strings.TrimSuffix(o, "/"), origin) {
			return origin
		}
	}
	return ""
}

// CORSMiddleware 创建 CORS 中间件
// 来源不在白名单时不写任何 CORS 头，由浏览器拦截；预检请求一律 204 结束
func CORSMiddleware(cfg CORSConfig) gin.HandlerFunc {
	methods := strings.Join(cfg.AllowMethods, ", ")
	headers := strings.Join(cfg.AllowHeaders, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)

	return func(c *gin.Context) {
		allow := cfg.allowedOrigin(c.GetHeader("Origin"))
		if allow != "" && allow != "*" {
			// 响应随 Origin 变化，避免被缓存给其它来源
			c.Header("Vary", "Origin")
		}
		if allow != "" {
			c.Header("Access-Control-Allow-Origin", allow)
		}

		if c.Request.Method != http.MethodOptions {
			c.Next()
			return
		}

		if allow != "" {
			c.Header("Access-Control-Allow-Methods", methods)
			c.Header("Access-Control-Allow-Headers", headers)
			if cfg.MaxAge > 0 {
				c.Header("Access-Control-Max-Age", maxAge)
			}
		}
		c.AbortWithStatus(http.StatusNoContent)
	}
}
