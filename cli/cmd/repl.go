package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/chat"
)

const replHelp = `命令:
  /sessions          列出会话
  /load <id|#n>      切换到会话
  /new               新建对话
  /delete <id|#n>    删除会话
  /history           显示当前对话
  /status            显示当前状态
  /help              显示帮助
  /quit              退出
其他输入会作为消息发送`

// repl 交互式对话
type repl struct {
	ctrl     *chat.Controller
	sessions *chat.SessionStore
	out      io.Writer
	color    bool
	now      func() time.Time

	serverURL string
	backend   string

	// 最近一次 /sessions 的结果，用于 #n 引用
	listed []chat.Session
}

// handle 处理一行输入，返回是否退出
func (r *repl) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		r.send(ctx, line)
		return false
	}

	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "/quit", "/exit", "/q":
		return true

	case "/help", "/?":
		fmt.Fprintln(r.out, replHelp)

	case "/sessions", "/ls":
		r.listSessions(ctx)

	case "/load", "/open":
		id, err := r.sessionArg(args)
		if err != nil {
			fmt.Fprintf(r.out, "✗ %v\n", err)
			return false
		}
		r.load(ctx, id)

	case "/new":
		r.ctrl.StartNewChat()
		fmt.Fprintln(r.out, "✓ 已开始新对话")

	case "/delete", "/rm":
		id, err := r.sessionArg(args)
		if err != nil {
			fmt.Fprintf(r.out, "✗ %v\n", err)
			return false
		}
		// 失败时控制器已经提示
		_ = r.ctrl.DeleteSession(ctx, id)

	case "/history":
		r.printHistory()

	case "/status":
		r.printStatus()

	default:
		fmt.Fprintf(r.out, "✗ 未知命令 %s，输入 /help 查看帮助\n", cmd)
	}
	return false
}

func (r *repl) send(ctx context.Context, content string) {
	err := r.ctrl.SendMessage(ctx, content)
	switch {
	case errors.Is(err, chat.ErrBusy), errors.Is(err, chat.ErrEmptyMessage):
		fmt.Fprintf(r.out, "✗ %v\n", err)
		return
	}

	// 成功和失败都会追加一条助手消息
	snap := r.ctrl.Snapshot()
	if n := len(snap.Messages); n > 0 && snap.Messages[n-1].Role == chat.RoleAssistant {
		printMessage(r.out, snap.Messages[n-1], r.color)
	}
}

func (r *repl) load(ctx context.Context, id string) {
	if err := r.ctrl.LoadSession(ctx, id); err != nil {
		var opErr *chat.OperationError
		if !errors.As(err, &opErr) {
			fmt.Fprintf(r.out, "✗ %v\n", err)
		}
		return
	}
	r.printHistory()
}

func (r *repl) listSessions(ctx context.Context) {
	if err := r.sessions.Refresh(ctx); err != nil {
		fmt.Fprintf(r.out, "✗ 获取会话列表失败: %s\n", chat.Describe(err))
	}
	r.listed = r.sessions.Sessions()
	printSessions(r.out, r.listed, r.ctrl.CurrentSessionID(), r.now(), r.color)
}

// sessionArg 解析会话参数: 会话ID，或 /sessions 列表中的编号（#2 或 2）
func (r *repl) sessionArg(args []string) (string, error) {
	if len(args) == 0 {
		return "", errors.New("需要会话ID或编号")
	}
	return resolveSessionRef(args[0], r.listed)
}

func resolveSessionRef(ref string, listed []chat.Session) (string, error) {
	numbered := strings.HasPrefix(ref, "#")
	n, err := strconv.Atoi(strings.TrimPrefix(ref, "#"))
	if err != nil {
		return ref, nil
	}
	if n >= 1 && n <= len(listed) {
		return listed[n-1].SessionID, nil
	}
	if !numbered {
		// 纯数字也可能是会话ID
		return ref, nil
	}
	return "", fmt.Errorf("没有编号 #%d 的会话，先运行 /sessions", n)
}

func (r *repl) printHistory() {
	snap := r.ctrl.Snapshot()
	if len(snap.Messages) == 0 {
		fmt.Fprintln(r.out, "（当前对话为空）")
		return
	}
	for _, m := range snap.Messages {
		printMessage(r.out, m, r.color)
	}
}

func (r *repl) printStatus() {
	snap := r.ctrl.Snapshot()
	session := snap.CurrentSessionID
	if session == "" {
		session = "（新对话）"
	}
	fmt.Fprintf(r.out, "服务地址: %s\n", r.serverURL)
	fmt.Fprintf(r.out, "本地存储: %s\n", r.backend)
	fmt.Fprintf(r.out, "当前会话: %s\n", session)
	fmt.Fprintf(r.out, "消息数量: %d\n", len(snap.Messages))
	fmt.Fprintf(r.out, "状态: %s\n", snap.Phase)
}
