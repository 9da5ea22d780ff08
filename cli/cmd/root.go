// Package cmd 实现 CLI 命令
package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "klu",
	Short: "KLU Agent - 校园知识问答命令行客户端",
	Long: `KLU Agent CLI 客户端

与 KLU Agent 对话服务交互：提问、查看和切换历史会话、导出对话记录。

直接运行即可进入交互式对话。`,
	SilenceUsage: true,
	RunE:         runChat,
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// 全局参数
	rootCmd.PersistentFlags().StringP("server", "s", "", "对话服务地址 (默认: "+config.DefaultServerURL+")")
	rootCmd.PersistentFlags().Bool("no-color", false, "关闭彩色输出")
}

func initConfig() {
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "初始化配置失败: %v\n", err)
		os.Exit(1)
	}

	// 如果指定了服务地址，覆盖配置
	if server, _ := rootCmd.PersistentFlags().GetString("server"); server != "" {
		config.SetServerURL(server)
	}
	if noColor, _ := rootCmd.PersistentFlags().GetBool("no-color"); noColor {
		config.Get().UI.Color = false
	}

	// 日志写入文件，避免和对话输出混在一起
	f, err := os.OpenFile(config.LogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "打开日志文件失败: %v\n", err)
		return
	}
	log.SetOutput(f)
}
