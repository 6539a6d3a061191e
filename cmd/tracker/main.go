package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"melee-tracker/internal/cache"
	fxmodules "melee-tracker/internal/fx"
	"melee-tracker/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func main() {
	root := &cobra.Command{
		Use:           "tracker",
		Short:         "Head-to-head tracker for curated melee players",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(scrapeCmd(), reportCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func scrapeCmd() *cobra.Command {
	var skipKnown bool

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Fetch and cache every tracked player's results and profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			var svc *service.ScrapeService
			return withApp(cmd.Context(), &svc, func(ctx context.Context) error {
				return svc.ScrapeAll(ctx, skipKnown)
			})
		},
	}
	cmd.Flags().BoolVar(&skipKnown, "skip", false, "skip players already in the cache")
	return cmd
}

func reportCmd() *cobra.Command {
	var continueOnError bool
	var stdout bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Aggregate head-to-head records and publish the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			var svc *service.ReportService
			return withApp(cmd.Context(), &svc, func(ctx context.Context) error {
				return svc.Run(ctx, service.RunOptions{
					ContinueOnError: continueOnError,
					Stdout:          stdout,
				})
			})
		},
	}
	cmd.Flags().BoolVar(&continueOnError, "skip-failed", false, "skip players whose ingestion fails instead of aborting")
	cmd.Flags().BoolVar(&stdout, "stdout", false, "also print the report tables to the terminal")
	return cmd
}

// withApp builds the fx graph, populates target, runs fn, and tears the
// graph down again. Batch commands start and stop within one call; there
// is no long-running server.
func withApp[T any](ctx context.Context, target *T, fn func(context.Context) error) error {
	var db *sql.DB
	var rdb *cache.Redis

	app := fx.New(
		fxmodules.Module,
		fx.NopLogger,
		fx.Populate(target),
		fx.Populate(&db),
		fx.Populate(&rdb),
	)
	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	runErr := fn(ctx)

	if err := app.Stop(ctx); err != nil && runErr == nil {
		runErr = fmt.Errorf("stop: %w", err)
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil && runErr == nil {
			runErr = fmt.Errorf("close redis: %w", err)
		}
	}
	if db != nil {
		if err := db.Close(); err != nil && runErr == nil {
			runErr = fmt.Errorf("close database: %w", err)
		}
	}
	return runErr
}
