package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/usphq/usp/cmd/usp/commands"
	"github.com/usphq/usp/internal/app"
	authService "github.com/usphq/usp/internal/auth/service"
	"github.com/usphq/usp/internal/config"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Start the HTTP server",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunServer(ctx, version)
			},
		},
		{
			Name:  "migrate",
			Usage: "Run database migrations",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunMigrations(container.Logger(), cfg.DBDriver, cfg.DBConnectionString)
			},
		},
		{
			Name:  "hash-bootstrap-credential",
			Usage: "Hash an operator credential for BOOTSTRAP_CREDENTIAL_HASH (reads from stdin)",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunHashBootstrapCredential(authService.NewSecretService(), commands.DefaultIO())
			},
		},
	}
}
