package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ppra-watch/tender-sentinel/internal/app"
	"github.com/ppra-watch/tender-sentinel/internal/config"
	"github.com/ppra-watch/tender-sentinel/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "sendall run failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.InfoObj("sendall starting", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sender, err := app.NewSendAll(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize sendall", "error", err)
		return err
	}

	if _, err := sender.Run(ctx); err != nil {
		return fmt.Errorf("sendall run: %w", err)
	}

	return nil
}
