// Package middleware 提供 HTTP 请求的中间件
package middleware

import (
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// LoggerMiddleware 创建请求日志中间件
// 记录每个请求的方法、路径、状态码和耗时
// 返回:
//   - gin.HandlerFunc: Gin 中间件函数
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		statusCode := c.Writer.Status()
		logLine := formatLogLine(
			statusCode,
			time.Since(start),
			c.ClientIP(),
			c.Request.Method,
			path,
			c.Errors.ByType(gin.ErrorTypePrivate).String(),
		)

		// 根据状态码选择日志级别
		switch {
		case statusCode >= 500:
			log.Printf("[ERROR] %s", logLine)
		case statusCode >= 400:
			log.Printf("[WARN] %s", logLine)
		default:
			log.Printf("[INFO] %s", logLine)
		}
	}
}

// formatLogLine 格式化日志行
func formatLogLine(statusCode int, latency time.Duration, clientIP, method, path, errorMessage string) string {
	// 小于 1ms 显示原始精度，小于 1s 精确到微秒，否则精确到毫秒
	switch {
	case latency < time.Millisecond:
	case latency < time.Second:
		latency = latency.Truncate(time.Microsecond)
	default:
		latency = latency.Truncate(time.Millisecond)
	}

	logLine := fmt.Sprintf("%s | %-12s | %-15s | %-7s | %s",
		statusLabel(statusCode), latency, clientIP, method, path)

	if errorMessage != "" {
		logLine += " | " + errorMessage
	}
	return logLine
}

// statusLabel 状态码加上分类标记
func statusLabel(code int) string {
	switch {
	case code >= 200 && code < 300:
		return fmt.Sprintf("[%d OK]", code)
	case code >= 300 && code < 400:
		return fmt.Sprintf("[%d REDIRECT]", code)
	case code >= 400 && code < 500:
		return fmt.Sprintf("[%d CLIENT_ERR]", code)
	default:
		return fmt.Sprintf("[%d SERVER_ERR]", code)
	}
}
