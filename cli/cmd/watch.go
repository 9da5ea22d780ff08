package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/bridge"
	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/chat"
	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/config"
	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/notify"
	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/websocket"
)

var watchCmd = &cobra.Command{
	Use:   "watch [bridge-url]",
	Short: "实时查看桥接服务中的对话",
	Long: `连接正在运行的 klu bridge，实时打印对话状态、会话列表和提示。

不指定地址时使用 bridge.addr。`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	target := "http://" + config.Get().Bridge.Addr
	if len(args) == 1 {
		target = args[0]
	}

	color := config.Get().UI.Color
	w := &watcher{out: os.Stdout, color: color, now: time.Now}

	client := websocket.NewClient(target)
	client.OnMessage(w.handle)

	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Connect(dialCtx); err != nil {
		return fmt.Errorf("连接桥接服务失败: %w", err)
	}
	defer client.Disconnect()

	fmt.Printf("👀 正在查看 %s (按 Ctrl+C 退出)\n\n", client.URL())

	select {
	case <-ctx.Done():
	case <-client.Done():
		fmt.Println("桥接服务已断开")
	}
	return nil
}

// watcher 打印桥接服务推送的消息
type watcher struct {
	out   io.Writer
	color bool
	now   func() time.Time

	// 已打印的消息数，只打印新增部分
	printed int
	session string
}

func (w *watcher) handle(msg *websocket.Message) {
	switch msg.Type {
	case bridge.TypeState:
		var snap chat.Snapshot
		if err := msg.Decode(&snap); err != nil {
			return
		}
		w.renderState(snap)

	case bridge.TypeSessions:
		var p bridge.SessionsPayload
		if err := msg.Decode(&p); err != nil {
			return
		}
		fmt.Fprintf(w.out, "── %d 个会话 ──\n", len(p.Sessions))
		printSessions(w.out, p.Sessions, w.session, w.now(), w.color)

	case bridge.TypeToast:
		var p bridge.ToastPayload
		if err := msg.Decode(&p); err != nil {
			return
		}
		fmt.Fprintln(w.out, notify.Format(p.Level, p.Message, w.color))
	}
}

func (w *watcher) renderState(snap chat.Snapshot) {
	switched := w.session != "" && snap.CurrentSessionID != w.session
	if switched || len(snap.Messages) < w.printed {
		// 切换了会话或新建对话，重新打印
		w.printed = 0
		label := snap.CurrentSessionID
		if label == "" {
			label = "新对话"
		}
		fmt.Fprintf(w.out, "── %s ──\n", label)
	}
	w.session = snap.CurrentSessionID
	for _, m := range snap.Messages[w.printed:] {
		printMessage(w.out, m, w.color)
	}
	w.printed = len(snap.Messages)
	if snap.IsLoading {
		fmt.Fprintf(w.out, "… %s\n", snap.Phase)
	}
}
