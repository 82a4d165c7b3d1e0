package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/simpchat/simp-go/internal/chat"
	"github.com/simpchat/simp-go/internal/config"
	"github.com/simpchat/simp-go/internal/observe"
	"github.com/simpchat/simp-go/internal/transport"
	"github.com/simpchat/simp-go/pkg/logger"
)

func main() {
	cfg := config.Load()
	host := cfg.Host
	port := cfg.Port

	root := &cobra.Command{
		Use:           "simp-server",
		Short:         "SIMP 服务端，绑定到已知地址等待对端发起聊天",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg, host, port)
		},
	}
	root.Flags().StringVar(&host, "host", cfg.Host, "The host to listen on")
	root.Flags().IntVar(&port, "port", cfg.Port, "The port to listen on")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, host string, port int) error {
	logger.SetLevel(cfg.LogLevel)
	if cfg.MetricsAddr != "" {
		go func() {
			if err := observe.StartHTTP(cfg.MetricsAddr); err != nil {
				logger.S().Warnw("metrics server exit", "err", err)
			}
		}()
	}

	conn, err := transport.Listen(host, port)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess := &chat.Session{ID: uuid.New().String(), Host: host, Port: port, Username: "Server"}
	loop := chat.NewLoop(conn, sess, chat.NewStdioPrompter(), chat.Options{
		ChatTimeout: cfg.ChatTimeout,
		ReadBuffer:  cfg.ReadBuffer,
	})

	err = loop.Run(ctx)
	if ctx.Err() != nil {
		fmt.Println("Exiting...")
		time.Sleep(time.Second)
		return nil
	}
	return err
}
