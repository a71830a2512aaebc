package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/replenish/internal/cache"
	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/metrics"
	"github.com/andresuchdata/replenish/internal/repository"
	"github.com/andresuchdata/replenish/internal/schedule"
)

// lockMargin is how long the run lock outlives the job timeout.
const lockMargin = time.Minute

// Orchestrator runs every job for every active region once per tick.
type Orchestrator struct {
	repo    repository.Repository
	calc    *schedule.Calculator
	locker  cache.RunLocker
	metrics *metrics.Metrics
	jobs    []Job
	opts    Options
}

// NewOrchestrator creates a new Orchestrator. Jobs of a region run in the given order.
func NewOrchestrator(repo repository.Repository, calc *schedule.Calculator, locker cache.RunLocker,
	m *metrics.Metrics, opts Options, jobs ...Job) *Orchestrator {
	if locker == nil {
		locker = cache.NewNoopRunLocker()
	}
	if m == nil {
		m = metrics.NewNoop()
	}
	defaults := DefaultOptions()
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = defaults.JobTimeout
	}
	if opts.RegionWorkers < 1 {
		opts.RegionWorkers = 1
	}
	// A RUNNING row younger than the longest possible run is still live.
	if floor := opts.JobTimeout + lockMargin; opts.StaleRunAfter > 0 && opts.StaleRunAfter < floor {
		log.Warn().Dur("stale_run_after", opts.StaleRunAfter).Dur("raised_to", floor).
			Msg("stale run threshold below job timeout")
		opts.StaleRunAfter = floor
	}
	return &Orchestrator{
		repo:    repo,
		calc:    calc,
		locker:  locker,
		metrics: m,
		jobs:    jobs,
		opts:    opts,
	}
}

// Tick processes all active regions. Only a failure to list regions is
// returned; everything else is recorded per region and job.
func (o *Orchestrator) Tick(ctx context.Context) (Report, error) {
	report := Report{TickID: uuid.NewString(), StartedAt: o.calc.Now().UTC()}
	started := time.Now()

	regions, err := o.repo.ListActiveRegions(ctx)
	if err != nil {
		return report, fmt.Errorf("list active regions: %w", err)
	}

	logger := log.With().Str("tick_id", report.TickID).Logger()
	logger.Info().Int("regions", len(regions)).Msg("tick started")

	results := make([]RegionReport, len(regions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.RegionWorkers)
	for i, region := range regions {
		g.Go(func() error {
			results[i] = o.processRegionSafe(gctx, region)
			return nil
		})
	}
	_ = g.Wait()

	report.Regions = results
	report.Duration = time.Since(started)
	report.DurationMS = report.Duration.Milliseconds()
	logger.Info().Dur("duration", report.Duration).Msg("tick finished")
	return report, nil
}

// processRegionSafe keeps a panic outside a job body (gating, claim,
// finalize) confined to its region.
func (o *Orchestrator) processRegionSafe(ctx context.Context, region domain.Region) (rr RegionReport) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Int64("region_id", region.ID).Interface("panic", r).Msg("region processing panicked")
			rr.RegionID, rr.RegionName = region.ID, region.Name
			rr.Err = fmt.Sprintf("panic: %v", r)
		}
	}()
	return o.processRegion(ctx, region)
}

func (o *Orchestrator) processRegion(ctx context.Context, region domain.Region) RegionReport {
	rr := RegionReport{RegionID: region.ID, RegionName: region.Name}
	logger := log.With().Int64("region_id", region.ID).Str("region", region.Name).Logger()

	if !region.Active {
		return rr
	}

	date, runToday, err := o.regionDay(region)
	if err != nil {
		rr.ConfigErr = err.Error()
		o.metrics.RecordConfigError(region.Name)
		logger.Error().Err(err).Str("error_kind", "config").Msg("region skipped")
		return rr
	}
	rr.Date = date

	for _, job := range o.jobs {
		if !runToday {
			rr.Outcomes = append(rr.Outcomes, o.skip(job, SkipNotRunDay))
			continue
		}
		outcome, err := o.runJob(ctx, region, date, job)
		if err != nil {
			// Only configuration problems surface here; they abort the region.
			rr.ConfigErr = err.Error()
			o.metrics.RecordConfigError(region.Name)
			logger.Error().Err(err).Str("error_kind", "config").Str("job", string(job.Name())).Msg("region aborted")
			return rr
		}
		rr.Outcomes = append(rr.Outcomes, outcome)
	}
	return rr
}

// regionDay validates the region and resolves its local date and run-day flag.
func (o *Orchestrator) regionDay(region domain.Region) (civil.Date, bool, error) {
	if err := o.calc.ValidateRegion(region); err != nil {
		return civil.Date{}, false, err
	}
	date, err := o.calc.TodayInRegion(region.Timezone)
	if err != nil {
		return civil.Date{}, false, err
	}
	runToday, err := o.calc.ShouldRunToday(region.RunDays, region.Timezone)
	if err != nil {
		return civil.Date{}, false, err
	}
	return date, runToday, nil
}

func (o *Orchestrator) skip(job Job, reason string) Outcome {
	o.metrics.RecordSkip(string(job.Name()), reason)
	return Outcome{Job: job.Name(), Status: OutcomeSkipped, Reason: reason}
}

// runJob gates, claims and executes one job. The returned error is non-nil
// only for configuration errors; job failures are reported in the Outcome.
func (o *Orchestrator) runJob(ctx context.Context, region domain.Region, date civil.Date, job Job) (Outcome, error) {
	name := job.Name()
	logger := log.With().
		Str("job", string(name)).
		Int64("region_id", region.ID).
		Str("run_date", date.String()).
		Logger()

	if trigger := job.TriggerTime(region); trigger != "" {
		past, err := o.calc.IsPastScheduledTime(trigger, region.Timezone)
		if err != nil {
			return Outcome{}, err
		}
		if !past {
			return o.skip(job, SkipBeforeTrigger), nil
		}
	}

	if !job.Repeatable() {
		done, err := o.repo.HasSucceeded(ctx, name, region.ID, date)
		if err != nil {
			logger.Error().Err(err).Msg("success check failed")
			return o.fail(job, err), nil
		}
		if done {
			return o.skip(job, SkipAlreadySucceeded), nil
		}
	}

	release, ok, err := o.locker.Acquire(ctx, cache.RunLockKey(string(name), region.ID), o.opts.JobTimeout+lockMargin)
	if err != nil {
		logger.Error().Err(err).Msg("run lock failed")
		return o.fail(job, err), nil
	}
	if !ok {
		return o.skip(job, SkipLocked), nil
	}
	defer release(context.WithoutCancel(ctx))

	if o.opts.StaleRunAfter > 0 {
		cutoff := o.calc.Now().Add(-o.opts.StaleRunAfter)
		n, err := o.repo.FailStaleRuns(ctx, name, region.ID, date, cutoff)
		if err != nil {
			logger.Warn().Err(err).Msg("stale run recovery failed")
		} else if n > 0 {
			logger.Warn().Int("runs", n).Msg("abandoned runs finalized as FAILED")
		}
	}

	run := &domain.JobRun{
		JobName:   name,
		RegionID:  region.ID,
		RunDate:   date,
		StartedAt: o.calc.Now().UTC(),
	}
	claimed, err := o.repo.ClaimJobRun(ctx, run, !job.Repeatable())
	if err != nil {
		logger.Error().Err(err).Msg("claim failed")
		return o.fail(job, err), nil
	}
	if !claimed {
		return o.skip(job, SkipClaimLost), nil
	}

	started := time.Now()
	msg, runErr := o.execute(ctx, job, RunContext{Region: region, Date: date, RunID: run.ID})
	elapsed := time.Since(started)

	status := domain.JobSuccess
	if runErr != nil {
		status = domain.JobFailed
		msg = runErr.Error()
	}

	// The body's context may have expired; the run must still be finalized.
	if err := o.repo.FinishJobRun(context.WithoutCancel(ctx), run.ID, status, msg, elapsed); err != nil {
		logger.Error().Err(err).Int64("run_id", run.ID).Msg("could not finalize job run")
	}
	o.metrics.RecordJobRun(string(name), string(status), elapsed)

	event := logger.Info()
	if runErr != nil {
		event = logger.Error().Err(runErr)
	}
	event.Int64("run_id", run.ID).
		Str("status", string(status)).
		Dur("duration", elapsed).
		Msg("job run finished")

	return Outcome{
		Job:        name,
		Status:     OutcomeStatus(status),
		Message:    msg,
		RunID:      run.ID,
		Duration:   elapsed,
		DurationMS: elapsed.Milliseconds(),
	}, nil
}

func (o *Orchestrator) fail(job Job, err error) Outcome {
	o.metrics.RecordJobRun(string(job.Name()), string(domain.JobFailed), 0)
	return Outcome{Job: job.Name(), Status: OutcomeFailed, Message: err.Error()}
}

// execute runs the body under the job timeout. Panics and an expired
// deadline both count as failures.
func (o *Orchestrator) execute(ctx context.Context, job Job, rc RunContext) (msg string, err error) {
	ctx, cancel := context.WithTimeout(ctx, o.opts.JobTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	msg, err = job.Run(ctx, rc)
	if err == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("job exceeded %s: %w", o.opts.JobTimeout, ctx.Err())
	}
	return msg, err
}
