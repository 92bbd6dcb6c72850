// Package main provides a one-shot workflow runner for scripts and cron jobs.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/flowmate/flowmate/pkg/cmd"
	"github.com/flowmate/flowmate/pkg/log"
	"github.com/flowmate/flowmate/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

var errRunFailed = errors.New("workflow run failed")

func main() {
	logger := log.WithModule("exec")

	command := &cli.Command{
		Name:      "flowmate-exec",
		Usage:     "Run a single workflow and print its execution record",
		ArgsUsage: "<workflow-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL (memory when empty, file://, redis://, postgres://)",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "plugins-path",
				Usage:   "Path to the directory containing capability plugins",
				Sources: cli.EnvVars("PLUGINS_PATH"),
			},
			&cli.DurationFlag{
				Name:    "run-timeout",
				Usage:   "Per-run execution timeout",
				Value:   30 * time.Second,
				Sources: cli.EnvVars("RUN_TIMEOUT"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			workflowID := command.Args().First()
			if workflowID == "" {
				return errors.New("workflow id argument is required")
			}

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			// No event bus for one-shot runs; lifecycle consumers are not around.
			registry, err := cmd.NewRegistry(logger, nil, command.String("plugins-path"))
			if err != nil {
				return err
			}

			executor := workflow.NewExecutor(logger, persistence, registry, nil, command.Duration("run-timeout"))

			record, err := executor.Run(ctx, workflowID)
			if err != nil {
				return err
			}

			output, err := json.MarshalIndent(record, "", "  ")
			if err != nil {
				return err
			}

			fmt.Println(string(output))

			if !record.Succeeded() {
				return errRunFailed
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		logger.Error("Run failed", "error", err)
		os.Exit(1)
	}
}
