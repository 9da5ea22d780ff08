package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/chat"
	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/config"
)

var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"ls"},
	Short:   "列出所有会话",
	Long:    `列出服务端保存的所有会话，最近活跃的排在前面。带 * 的是当前会话。`,
	Args:    cobra.NoArgs,
	RunE:    runSessions,
}

var deleteCmd = &cobra.Command{
	Use:     "delete <session-id>",
	Aliases: []string{"rm"},
	Short:   "删除会话",
	Long:    `删除服务端的会话及其全部消息。删除的是当前会话时，下次对话从新会话开始。`,
	Args:    cobra.ExactArgs(1),
	RunE:    runDelete,
}

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "开始新对话",
	Long:  `清除本地记录的当前会话，下次运行 klu 时从新对话开始。服务端的会话不受影响。`,
	Args:  cobra.NoArgs,
	RunE:  runNew,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(newCmd)
}

func runSessions(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), config.Get().Server.Timeout)
	defer cancel()

	a, err := newApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.sessions.Refresh(ctx); err != nil {
		return fmt.Errorf("获取会话列表失败: %s", chat.Describe(err))
	}
	printSessions(os.Stdout, a.sessions.Sessions(), a.ctrl.CurrentSessionID(), time.Now(), config.Get().UI.Color)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), config.Get().Server.Timeout)
	defer cancel()

	a, err := newApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	// 成功和失败都由控制器提示
	if err := a.ctrl.DeleteSession(ctx, args[0]); err != nil {
		return fmt.Errorf("删除会话失败: %w", err)
	}
	return nil
}

func runNew(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer a.Close()

	a.ctrl.StartNewChat()
	fmt.Println("✓ 已开始新对话")
	return nil
}
