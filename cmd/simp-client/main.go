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
		Use:           "simp-client",
		Short:         "SIMP 客户端，向服务端发起握手并开始聊天",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg, host, port)
		},
	}
	root.Flags().StringVar(&host, "host", cfg.Host, "The host to connect to")
	root.Flags().IntVar(&port, "port", cfg.Port, "The port to connect to")

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

	prompter := chat.NewStdioPrompter()
	username, err := prompter.AskText("Insert username: ")
	if err != nil {
		return err
	}

	peer, err := transport.Resolve(host, port)
	if err != nil {
		return err
	}
	conn, err := transport.Open()
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess := &chat.Session{ID: uuid.New().String(), Host: host, Port: port, Username: username}
	loop := chat.NewLoop(conn, sess, prompter, chat.Options{
		ChatTimeout: cfg.ChatTimeout,
		ReadBuffer:  cfg.ReadBuffer,
	})

	ok, err := loop.Connect(peer)
	if err != nil {
		return err
	}
	if !ok {
		// 用户选择不连接，直接退出
		return nil
	}

	err = loop.Run(ctx)
	if ctx.Err() != nil {
		fmt.Println("Exiting...")
		time.Sleep(time.Second)
		return nil
	}
	return err
}
