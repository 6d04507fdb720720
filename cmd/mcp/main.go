package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/aromabox/adapter/cli"
	"github.com/felixgeelhaar/aromabox/internal/app"
	mcpinternal "github.com/felixgeelhaar/aromabox/internal/mcp"
	sharedDomain "github.com/felixgeelhaar/aromabox/internal/shared/domain"
	"github.com/felixgeelhaar/aromabox/pkg/config"
	"github.com/felixgeelhaar/aromabox/pkg/observability"
)

func main() {
	logger := observability.NewLogger(observability.DefaultLogConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger = observability.NewLogger(observability.LogConfig{
		Level:          cfg.LogLevel,
		Format:         observability.LogFormat(cfg.LogFormat),
		ServiceName:    "aromabox-mcp",
		ServiceVersion: cli.Version,
	})

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	accountID, err := sharedDomain.ParseAccountID(cfg.AccountID)
	if err != nil {
		logger.Error("invalid AROMABOX_ACCOUNT_ID", "error", err)
		os.Exit(1)
	}

	if cfg.OutboxProcessorEnabled {
		go container.OutboxProcessor.Run(ctx)
	}

	cliApp := mcpinternal.NewCLIApp(container, accountID.UUID())

	if err := mcpinternal.Serve(ctx, cfg, cliApp, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
