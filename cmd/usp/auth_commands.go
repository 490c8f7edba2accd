package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/usphq/usp/cmd/usp/commands"
	"github.com/usphq/usp/internal/app"
	"github.com/usphq/usp/internal/config"
)

func getAuthCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-principal",
			Usage: "Create a principal and print its one-time login secret",
			Flags: []cli.Flag{
				shareFlag(),
				&cli.StringFlag{
					Name:     "name",
					Aliases:  []string{"n"},
					Required: true,
					Usage:    "Unique principal name",
				},
				&cli.StringSliceFlag{
					Name:     "role",
					Aliases:  []string{"r"},
					Required: true,
					Usage:    "Role to assign; repeatable",
				},
				&cli.StringSliceFlag{
					Name:    "attribute",
					Aliases: []string{"a"},
					Usage:   "Attribute as key=value; repeatable",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				sealUC, err := container.SealUseCase()
				if err != nil {
					return err
				}
				if err := commands.Unseal(ctx, sealUC, cfg.UnsealAutoEnabled, cmd.StringSlice("share")); err != nil {
					return err
				}

				principalUC, err := container.PrincipalUseCase()
				if err != nil {
					return err
				}

				attributes, err := commands.ParseAttributes(cmd.StringSlice("attribute"))
				if err != nil {
					return err
				}

				return commands.RunCreatePrincipal(
					ctx,
					principalUC,
					container.Logger(),
					os.Stdout,
					cmd.String("name"),
					cmd.StringSlice("role"),
					attributes,
				)
			},
		},
	}
}
