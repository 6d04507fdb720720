package mcp

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/aromabox/adapter/cli"
	"github.com/felixgeelhaar/aromabox/pkg/observability"
	"github.com/felixgeelhaar/mcp-go"
)

func registerCoreTools(srv *mcp.Server, deps ToolDependencies) error {
	app := deps.App

	srv.Tool("cli.health").
		Description("Check storage and cache connectivity").
		Handler(func(ctx context.Context, input struct{}) (observability.Report, error) {
			if app == nil {
				return observability.Report{}, errors.New("app not initialized")
			}
			if app.Health == nil {
				return observability.Report{Status: observability.HealthStatusHealthy}, nil
			}
			return app.Health.Run(ctx), nil
		})

	srv.Tool("cli.version").
		Description("Get CLI version information").
		Handler(func(ctx context.Context, input struct{}) (map[string]string, error) {
			return map[string]string{
				"version":   cli.Version,
				"commit":    cli.Commit,
				"buildDate": cli.BuildDate,
			}, nil
		})

	return nil
}
