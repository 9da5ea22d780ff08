package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/config"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "进入交互式对话",
	Long: `进入交互式对话。

启动时恢复上次的会话；输入 /help 查看可用命令。`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

// lineReader 读取一行输入
type lineReader interface {
	ReadLine(prompt string) (string, error)
	Close()
}

// linerReader 终端下使用 liner，支持方向键和历史记录
type linerReader struct {
	line        *liner.State
	historyFile string
}

func newLinerReader(historyFile string) *linerReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	return &linerReader{line: line, historyFile: historyFile}
}

func (r *linerReader) ReadLine(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

func (r *linerReader) Close() {
	if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
		r.line.WriteHistory(f)
		f.Close()
	}
	r.line.Close()
}

// scanReader 非终端输入（管道、重定向）
type scanReader struct {
	scanner *bufio.Scanner
}

func (r *scanReader) ReadLine(string) (string, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

func (r *scanReader) Close() {}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	c := config.Get()
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if interactive {
		printBanner()
	}

	// 恢复上次的会话
	if err := a.ctrl.Restore(ctx); err == nil && interactive {
		if snap := a.ctrl.Snapshot(); snap.CurrentSessionID != "" {
			fmt.Printf("已恢复会话 %s（%d 条消息），/history 查看\n\n", snap.CurrentSessionID, len(snap.Messages))
		}
	}
	a.sessions.RefreshAsync()

	var reader lineReader
	if interactive {
		reader = newLinerReader(filepath.Join(config.Dir(), "history"))
	} else {
		reader = &scanReader{scanner: bufio.NewScanner(os.Stdin)}
	}
	defer reader.Close()

	r := &repl{
		ctrl:      a.ctrl,
		sessions:  a.sessions,
		out:       os.Stdout,
		color:     c.UI.Color && interactive,
		now:       time.Now,
		serverURL: config.GetServerURL(),
		backend:   config.StorageOptions().Backend,
	}

	for {
		line, err := reader.ReadLine("you› ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				if interactive {
					fmt.Println("\n再见！")
				}
				return nil
			}
			return err
		}
		if r.handle(ctx, line) {
			fmt.Println("再见！")
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func printBanner() {
	fmt.Println()
	fmt.Println("╔════════════════════════════════════════════════╗")
	fmt.Println("║             🎓 KLU Agent CLI 客户端             ║")
	fmt.Println("║                                                ║")
	fmt.Println("║      校园知识问答  ·  输入 /help 查看命令         ║")
	fmt.Println("╚════════════════════════════════════════════════╝")
	fmt.Println()
}
