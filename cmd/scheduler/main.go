package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/replenish/internal/app"
	"github.com/andresuchdata/replenish/internal/config"
	"github.com/andresuchdata/replenish/internal/jobs"
	"github.com/andresuchdata/replenish/internal/metrics"
	"github.com/andresuchdata/replenish/internal/repository/memory"
	"github.com/andresuchdata/replenish/internal/repository/postgres"
	"github.com/andresuchdata/replenish/internal/schedule"
	"github.com/andresuchdata/replenish/internal/seed"
	"github.com/andresuchdata/replenish/internal/storage"
	"github.com/andresuchdata/replenish/pkg/logger"
)

func newDataDirFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "data-dir",
		Usage:   "Directory containing seed CSV files",
		Value:   "./data/seed",
		EnvVars: []string{"SEED_DATA_DIR"},
	}
}

func main() {
	cfg := config.Load()
	logger.Setup(cfg.Server)

	cliApp := &cli.App{
		Name:  "scheduler",
		Usage: "Run the daily replenishment jobs for every region",
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "Create or update the database schema",
				Action: func(c *cli.Context) error {
					return withDB(cfg, func(db *postgres.DB) error {
						return db.Migrate(c.Context)
					})
				},
			},
			{
				Name:  "seed",
				Usage: "Load reference data and stock fixtures from CSV files",
				Flags: []cli.Flag{newDataDirFlag()},
				Action: func(c *cli.Context) error {
					ds, err := seed.Load(c.String("data-dir"))
					if err != nil {
						return err
					}
					return withDB(cfg, func(db *postgres.DB) error {
						if err := db.Migrate(c.Context); err != nil {
							return err
						}
						return ds.Write(c.Context, db)
					})
				},
			},
			{
				Name:  "tick",
				Usage: "Run a single orchestrator invocation and print its report",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Run against seed data in memory, writing documents to a temp dir",
					},
					newDataDirFlag(),
				},
				Action: func(c *cli.Context) error {
					if c.Bool("dry-run") {
						return dryRun(c.Context, cfg, c.String("data-dir"))
					}
					return withDB(cfg, func(db *postgres.DB) error {
						orch, deps, err := newOrchestrator(c.Context, cfg, db)
						if err != nil {
							return err
						}
						defer deps.Close()
						report, err := orch.Tick(c.Context)
						if err != nil {
							return err
						}
						return printReport(report)
					})
				},
			},
			{
				Name:  "run",
				Usage: "Tick on the configured interval until interrupted",
				Action: func(c *cli.Context) error {
					ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
					defer stop()
					return withDB(cfg, func(db *postgres.DB) error {
						orch, deps, err := newOrchestrator(ctx, cfg, db)
						if err != nil {
							return err
						}
						defer deps.Close()
						return runLoop(ctx, orch, cfg.Scheduler.TickInterval)
					})
				},
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("scheduler failed")
	}
}

func withDB(cfg *config.Config, fn func(db *postgres.DB) error) error {
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	return fn(db)
}

func newOrchestrator(ctx context.Context, cfg *config.Config, db *postgres.DB) (*jobs.Orchestrator, *app.Deps, error) {
	deps, err := app.NewDeps(ctx, cfg, postgres.NewRepository(db), metrics.New(prometheus.DefaultRegisterer))
	if err != nil {
		return nil, nil, err
	}
	return app.NewOrchestrator(deps, cfg.Scheduler), deps, nil
}

// runLoop ticks immediately and then every interval. A tick that fails to
// list regions is logged and retried on the next interval.
func runLoop(ctx context.Context, orch *jobs.Orchestrator, interval time.Duration) error {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	lg := logger.Component("scheduler")
	lg.Info().Dur("interval", interval).Msg("scheduler started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		report, err := orch.Tick(ctx)
		if err != nil {
			lg.Error().Err(err).Msg("tick failed")
		} else {
			lg.Info().Str("tick_id", report.TickID).Int("regions", len(report.Regions)).
				Dur("duration", report.Duration).Msg("tick finished")
		}

		select {
		case <-ctx.Done():
			lg.Info().Msg("scheduler stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// dryRun ticks over the seed data in memory. Alerts and order sync are
// disabled so nothing leaves the process.
func dryRun(ctx context.Context, cfg *config.Config, dataDir string) error {
	ds, err := seed.Load(dataDir)
	if err != nil {
		return err
	}
	repo := memory.New()
	if err := ds.Into(ctx, repo); err != nil {
		return err
	}

	dir, err := os.MkdirTemp("", "replenish-dry-run-")
	if err != nil {
		return err
	}
	store, err := storage.NewLocalStorage(dir)
	if err != nil {
		return err
	}
	log.Info().Str("dir", dir).Msg("dry run documents directory")

	deps := &app.Deps{
		Repo:    repo,
		Calc:    schedule.NewCalculator(nil),
		Metrics: metrics.NewNoop(),
		Storage: store,
	}
	report, err := app.NewOrchestrator(deps, cfg.Scheduler).Tick(ctx)
	if err != nil {
		return err
	}
	return printReport(report)
}

func printReport(report jobs.Report) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
