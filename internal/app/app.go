// Package app wires configuration into the orchestrator and its jobs.
package app

import (
	"context"
	"fmt"

	"github.com/andresuchdata/replenish/internal/cache"
	"github.com/andresuchdata/replenish/internal/commerce"
	"github.com/andresuchdata/replenish/internal/config"
	"github.com/andresuchdata/replenish/internal/jobs"
	"github.com/andresuchdata/replenish/internal/metrics"
	"github.com/andresuchdata/replenish/internal/notify"
	"github.com/andresuchdata/replenish/internal/repository"
	"github.com/andresuchdata/replenish/internal/schedule"
	"github.com/andresuchdata/replenish/internal/storage"
)

// Deps are the collaborators shared by every job of one process.
type Deps struct {
	Repo    repository.Repository
	Calc    *schedule.Calculator
	Reports cache.ReportCache
	Locker  cache.RunLocker
	Metrics *metrics.Metrics
	Storage storage.ObjectStorage
	Sender  notify.Sender
	Fetcher jobs.OrderFetcher
	Cache   *cache.Client
}

// Close releases the redis connection, if any.
func (d *Deps) Close() error {
	return d.Cache.Close()
}

// NewDeps builds the external collaborators from cfg around repo.
func NewDeps(ctx context.Context, cfg *config.Config, repo repository.Repository, m *metrics.Metrics) (*Deps, error) {
	redisClient, err := cache.Connect(ctx, cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("document storage: %w", err)
	}

	return &Deps{
		Repo:    repo,
		Calc:    schedule.NewCalculator(nil),
		Reports: cache.NewReportCache(redisClient),
		Locker:  cache.NewRunLocker(redisClient),
		Cache:   redisClient,
		Metrics: m,
		Storage: store,
		Sender:  notify.NewSlackSender(cfg.Notify.Timeout, cfg.Notify.MaxItems),
		Fetcher: commerce.NewClient(cfg.Commerce),
	}, nil
}

// Options maps the scheduler config onto orchestrator options.
func Options(cfg config.SchedulerConfig) jobs.Options {
	return jobs.Options{
		JobTimeout:    cfg.JobTimeout,
		RegionWorkers: cfg.RegionWorkers,
		StaleRunAfter: cfg.StaleRunAfter,
	}
}

// NewOrchestrator registers the daily jobs in execution order: analytics,
// documents, then order sync. A nil Fetcher leaves order sync out.
func NewOrchestrator(d *Deps, cfg config.SchedulerConfig) *jobs.Orchestrator {
	list := []jobs.Job{
		jobs.NewAnalyticsJob(d.Repo, d.Calc, d.Sender, d.Reports, cfg.SKUWorkers),
		jobs.NewDocumentsJob(d.Repo, d.Calc, d.Storage),
	}
	if d.Fetcher != nil {
		list = append(list, jobs.NewSyncJob(d.Repo, d.Calc, d.Fetcher))
	}
	return jobs.NewOrchestrator(d.Repo, d.Calc, d.Locker, d.Metrics, Options(cfg), list...)
}
