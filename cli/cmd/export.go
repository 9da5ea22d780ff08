package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/api"
	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/chat"
	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/config"
	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/export"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export [session-id]",
	Short: "导出会话记录",
	Long: `导出会话的完整记录，支持 json、yaml、markdown。

不指定会话时导出当前会话；不指定 --output 时输出到标准输出。`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "markdown", "导出格式: json, yaml, markdown")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "输出文件")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	exporter, err := export.NewExporter(exportFormat)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), config.Get().Server.Timeout)
	defer cancel()

	a, err := newApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	id := a.ctrl.CurrentSessionID()
	if len(args) == 1 {
		id = args[0]
	}
	if id == "" {
		return fmt.Errorf("没有当前会话，请指定会话ID")
	}

	var w io.Writer = os.Stdout
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("创建输出文件失败: %w", err)
		}
		defer f.Close()
		w = f
	}

	if err := exportSession(ctx, a.client, a.sessions, id, exporter, w); err != nil {
		return err
	}
	if exportOutput != "" {
		fmt.Fprintf(os.Stderr, "✓ 已导出到 %s\n", exportOutput)
	}
	return nil
}

// exportSession 拉取历史并按格式写出，标题取自会话列表
func exportSession(ctx context.Context, client *api.Client, sessions *chat.SessionStore, id string, exporter export.Exporter, w io.Writer) error {
	hist, err := client.GetHistory(ctx, id)
	if err != nil {
		return fmt.Errorf("获取会话历史失败: %s", chat.Describe(err))
	}

	title := ""
	if err := sessions.Refresh(ctx); err == nil {
		for _, s := range sessions.Sessions() {
			if s.SessionID == id {
				title = s.Title
				break
			}
		}
	}
	return exporter.Export(export.FromHistory(title, hist), w)
}
