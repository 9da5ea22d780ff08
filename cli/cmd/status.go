package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/chat"
	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "显示当前状态",
	Long: `显示当前状态和配置信息。

包括：
- 对话服务地址和连通性
- 本地存储后端
- 当前会话`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	a, err := newApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Println("╔════════════════════════════════════════════════╗")
	fmt.Println("║             KLU Agent 状态信息                   ║")
	fmt.Println("╠════════════════════════════════════════════════╣")
	fmt.Printf("║  服务地址: %s\n", config.GetServerURL())

	if health, err := a.client.Health(ctx); err != nil {
		fmt.Printf("║  服务状态: ✗ %s\n", chat.Describe(err))
	} else {
		fmt.Printf("║  服务状态: ✓ %s (v%s)\n", health.Status, health.Version)
		if ready, err := a.client.Ready(ctx); err == nil {
			for name, ok := range ready.Checks {
				mark := "✓"
				if !ok {
					mark = "✗"
				}
				fmt.Printf("║    %s %s\n", mark, name)
			}
		}
	}

	fmt.Printf("║  本地存储: %s\n", config.StorageOptions().Backend)
	fmt.Printf("║  配置文件: %s\n", config.Path())

	if id := a.ctrl.CurrentSessionID(); id != "" {
		fmt.Printf("║  当前会话: %s\n", id)
	} else {
		fmt.Println("║  当前会话: （新对话）")
	}

	fmt.Println("╚════════════════════════════════════════════════╝")
	return nil
}
