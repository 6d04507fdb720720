package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/aromabox/adapter/cli"
	"github.com/felixgeelhaar/aromabox/adapter/cli/catalog"
	"github.com/felixgeelhaar/aromabox/adapter/cli/mcp"
	"github.com/felixgeelhaar/aromabox/adapter/cli/plan"
	"github.com/felixgeelhaar/aromabox/adapter/cli/subscription"
	"github.com/felixgeelhaar/aromabox/internal/app"
	sharedDomain "github.com/felixgeelhaar/aromabox/internal/shared/domain"
	"github.com/felixgeelhaar/aromabox/pkg/config"
	"github.com/felixgeelhaar/aromabox/pkg/observability"
)

func main() {
	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	logger := observability.NewLogger(observability.DefaultLogConfig())

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger = observability.NewLogger(observability.LogConfig{
		Level:          cfg.LogLevel,
		Format:         observability.LogFormat(cfg.LogFormat),
		ServiceName:    "aromabox",
		ServiceVersion: cli.Version,
	})
	cli.SetLogger(logger)

	var cliApp *cli.App
	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		if !cfg.IsDevelopment() {
			logger.Error("failed to initialize container", "error", err)
			os.Exit(1)
		}
		// version and help still work without storage
		logger.Warn("failed to initialize container, running in limited mode", "error", err)
	} else {
		defer container.Close()

		if cfg.OutboxProcessorEnabled {
			go container.OutboxProcessor.Run(ctx)
		} else {
			logger.Debug("outbox processor disabled in CLI")
		}

		accountID, err := sharedDomain.ParseAccountID(cfg.AccountID)
		if err != nil {
			logger.Error("invalid AROMABOX_ACCOUNT_ID", "error", err)
			os.Exit(1)
		}
		cliApp = cli.NewApp(container, accountID.UUID())
	}

	cli.SetApp(cliApp)

	cli.AddCommand(subscription.Cmd)
	cli.AddCommand(plan.Cmd)
	cli.AddCommand(catalog.Cmd)
	cli.AddCommand(mcp.Cmd)

	cli.ExecuteContext(ctx)
}
