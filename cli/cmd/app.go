package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/api"
	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/chat"
	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/config"
	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/notify"
	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/storage"
)

// app 一次命令执行用到的全部组件
type app struct {
	client   *api.Client
	store    storage.Store
	sessions *chat.SessionStore
	ctrl     *chat.Controller
}

// newApp 组装客户端、存储、会话列表和控制器
// notifier 为 nil 时提示输出到终端
func newApp(ctx context.Context, notifier chat.Notifier) (*app, error) {
	c := config.Get()
	client := api.NewClient(config.GetServerURL(), c.Server.Timeout)

	store, err := storage.Open(ctx, config.StorageOptions())
	if err != nil {
		return nil, fmt.Errorf("打开本地存储失败: %w", err)
	}

	if notifier == nil {
		notifier = notify.Multi{notify.NewConsole(os.Stdout, c.UI.Color), notify.Log{}}
	}

	sessions := chat.NewSessionStore(client)
	ctrl := chat.NewController(ctx, client, store,
		chat.WithNotifier(notifier),
		chat.WithSessionRefresher(sessions),
	)

	return &app{
		client:   client,
		store:    store,
		sessions: sessions,
		ctrl:     ctrl,
	}, nil
}

// Close 等待后台刷新并关闭存储
func (a *app) Close() {
	a.sessions.Wait()
	if err := a.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "关闭本地存储失败: %v\n", err)
	}
}
