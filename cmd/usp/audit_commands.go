package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/usphq/usp/cmd/usp/commands"
)

// shareFlag is shared by commands that must unseal in-process before touching
// encrypted state.
func shareFlag() *cli.StringSliceFlag {
	return &cli.StringSliceFlag{
		Name:    "share",
		Aliases: []string{"s"},
		Usage:   "Base64 unseal share; repeat up to the threshold (omit to use KMS auto-unseal)",
	}
}

func getAuditCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "audit",
			Usage: "Audit chain operations",
			Commands: []*cli.Command{
				{
					Name:  "verify",
					Usage: "Verify the integrity of the whole audit chain",
					Flags: []cli.Flag{
						shareFlag(),
						&cli.StringFlag{
							Name:    "format",
							Aliases: []string{"f"},
							Value:   "text",
							Usage:   "Output format: 'text' or 'json'",
						},
					},
					Action: func(ctx context.Context, cmd *cli.Command) error {
						return withUnsealedAudit(ctx, cmd.StringSlice("share"), func(env *auditEnv) error {
							return commands.RunVerifyChain(ctx, env.auditUC, env.logger, env.writer, cmd.String("format"))
						})
					},
				},
				{
					Name:  "ack",
					Usage: "Acknowledge a broken audit chain and resume writes",
					Flags: []cli.Flag{
						shareFlag(),
						&cli.StringFlag{
							Name:     "principal-id",
							Aliases:  []string{"p"},
							Required: true,
							Usage:    "ID of the operator acknowledging the break",
						},
						&cli.StringFlag{
							Name:  "correlation-id",
							Usage: "Correlation ID for the acknowledgement record",
						},
					},
					Action: func(ctx context.Context, cmd *cli.Command) error {
						return withUnsealedAudit(ctx, cmd.StringSlice("share"), func(env *auditEnv) error {
							return commands.RunAcknowledgeChain(
								ctx,
								env.auditUC,
								env.logger,
								env.writer,
								cmd.String("principal-id"),
								cmd.String("correlation-id"),
							)
						})
					},
				},
				{
					Name:  "export",
					Usage: "Export audit records as newline-delimited JSON",
					Flags: []cli.Flag{
						&cli.IntFlag{
							Name:  "from-seq",
							Value: 1,
							Usage: "First sequence number to export",
						},
					},
					Action: func(ctx context.Context, cmd *cli.Command) error {
						return withAudit(ctx, func(env *auditEnv) error {
							return commands.RunExportAudit(ctx, env.auditUC, env.logger, env.writer, int64(cmd.Int("from-seq")))
						})
					},
				},
				{
					Name:  "prune",
					Usage: "Delete audit records older than the retention window",
					Flags: []cli.Flag{
						&cli.IntFlag{
							Name:     "days",
							Aliases:  []string{"d"},
							Required: true,
							Usage:    "Delete records older than this many days",
						},
						&cli.BoolFlag{
							Name:    "dry-run",
							Aliases: []string{"n"},
							Value:   false,
							Usage:   "Show how many records would be deleted without deleting",
						},
						&cli.StringFlag{
							Name:    "format",
							Aliases: []string{"f"},
							Value:   "text",
							Usage:   "Output format: 'text' or 'json'",
						},
					},
					Action: func(ctx context.Context, cmd *cli.Command) error {
						return withAudit(ctx, func(env *auditEnv) error {
							return commands.RunPruneAudit(
								ctx,
								env.auditUC,
								env.logger,
								env.writer,
								int64(cmd.Int("days")),
								cmd.Bool("dry-run"),
								cmd.String("format"),
							)
						})
					},
				},
			},
		},
	}
}
