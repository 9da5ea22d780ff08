package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Janitor 定期删除长时间没有活动的会话
type Janitor struct {
	cron    *cron.Cron
	chat    *ChatService
	maxIdle time.Duration
	timeout time.Duration
	now     func() time.Time
}

// NewJanitor 创建清理任务
// 参数:
//   - chat: 对话服务
//   - schedule: cron 表达式，如 "@hourly" 或 "0 3 * * *"
//   - maxIdle: 超过该时长没有新消息的会话会被删除
//
// 返回:
//   - *Janitor: 清理任务，调用 Start 后开始调度
//   - error: cron 表达式无效
func NewJanitor(chat *ChatService, schedule string, maxIdle time.Duration) (*Janitor, error) {
	if maxIdle <= 0 {
		return nil, fmt.Errorf("无效的闲置时长: %s", maxIdle)
	}

	j := &Janitor{
		cron:    cron.New(),
		chat:    chat,
		maxIdle: maxIdle,
		timeout: time.Minute,
		now:     time.Now,
	}

	if _, err := j.cron.AddFunc(schedule, j.run); err != nil {
		return nil, fmt.Errorf("无效的 cron 表达式 %q: %w", schedule, err)
	}
	return j, nil
}

// Start 开始调度
func (j *Janitor) Start() {
	j.cron.Start()
	log.Printf("Janitor started, max idle %s", j.maxIdle)
}

// Stop 停止调度，返回的 context 在正在执行的任务结束后关闭
func (j *Janitor) Stop() context.Context {
	return j.cron.Stop()
}

// RunOnce 立即执行一次清理
func (j *Janitor) RunOnce(ctx context.Context) (int, error) {
	return j.chat.PurgeIdle(ctx, j.now().Add(-j.maxIdle))
}

func (j *Janitor) run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	n, err := j.RunOnce(ctx)
	if err != nil {
		log.Printf("Janitor: failed to purge idle sessions: %v", err)
		return
	}
	if n > 0 {
		log.Printf("Janitor: purged %d idle sessions", n)
	}
}
