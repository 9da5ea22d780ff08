package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/saivighnesh2190/KLU-RAG-AGENT/server/pkg/response"
)

// 超过该数量的客户端时清理长时间未出现的限流器
const maxTrackedClients = 10000

// RateLimiter 按客户端 IP 的令牌桶限流
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	limit   rate.Limit
	burst   int
	idle    time.Duration
	now     func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter 创建限流器
// 参数:
//   - requestsPerSecond: 每秒补充的令牌数
//   - burst: 令牌桶容量
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*clientLimiter),
		limit:   rate.Limit(requestsPerSecond),
		burst:   burst,
		idle:    10 * time.Minute,
		now:     time.Now,
	}
}

// Allow 判断该客户端的请求是否放行
func (rl *RateLimiter) Allow(clientID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cl, ok := rl.clients[clientID]
	if !ok {
		if len(rl.clients) >= maxTrackedClients {
			rl.evictLocked(now)
		}
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[clientID] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

func (rl *RateLimiter) evictLocked(now time.Time) {
	for id, cl := range rl.clients {
		if now.Sub(cl.lastSeen) > rl.idle {
			delete(rl.clients, id)
		}
	}
}

// RateLimitMiddleware 创建限流中间件
// 超出限制时返回 429
// 返回:
//   - gin.HandlerFunc: Gin 中间件函数
func RateLimitMiddleware(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			response.TooManyRequests(c, "Too many requests, please slow down")
			return
		}
		c.Next()
	}
}
