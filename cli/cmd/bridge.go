package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/bridge"
	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/chat"
	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/config"
	"github.com/saivighnesh2190/KLU-RAG-AGENT/cli/internal/notify"
)

var bridgeAddr string

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "启动浏览器桥接服务",
	Long: `在本机启动 WebSocket 桥接服务，浏览器界面通过 ws://<addr>/ws 连接。

浏览器和终端共用同一个对话控制器和本地存储。`,
	Args: cobra.NoArgs,
	RunE: runBridge,
}

func init() {
	bridgeCmd.Flags().StringVar(&bridgeAddr, "addr", "", "监听地址 (默认读取 bridge.addr)")
	rootCmd.AddCommand(bridgeCmd)
}

func runBridge(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := bridgeAddr
	if addr == "" {
		addr = config.Get().Bridge.Addr
	}

	// Hub 先创建，作为控制器的提示通道
	hub := bridge.NewHub()
	a, err := newApp(ctx, notify.Multi{hub, notify.Log{}})
	if err != nil {
		return err
	}
	defer a.Close()

	hub.Bind(a.ctrl, a.sessions)
	if err := a.ctrl.Restore(ctx); err != nil && !errors.Is(err, chat.ErrSuperseded) {
		log.Printf("Failed to restore session: %v", err)
	}
	a.sessions.RefreshAsync()

	hubCtx, cancelHub := context.WithCancel(context.Background())
	defer cancelHub()
	go hub.Run(hubCtx)

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:    addr,
		Handler: bridge.NewRouter(hub),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	fmt.Printf("🌐 桥接服务已启动: ws://%s/ws\n", addr)
	fmt.Printf("   对话服务: %s\n", config.GetServerURL())
	fmt.Println("   (按 Ctrl+C 退出)")

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("桥接服务异常退出: %w", err)
		}
	}

	fmt.Println("\n正在关闭桥接服务...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Bridge shutdown error: %v", err)
	}
	cancelHub()
	hub.Wait()

	fmt.Println("✅ 已关闭")
	return nil
}
