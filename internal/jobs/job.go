package jobs

import (
	"context"
	"time"

	"cloud.google.com/go/civil"

	"github.com/andresuchdata/replenish/internal/domain"
)

// Job defines the interface that every scheduled job must implement
type Job interface {
	// Name is the job_name recorded on every run
	Name() domain.JobName

	// Repeatable jobs run on every tick; the others succeed at most once per region-local day
	Repeatable() bool

	// TriggerTime returns the region-local HH:MM before which the job is not attempted.
	// An empty string means the job is not time-gated.
	TriggerTime(region domain.Region) string

	// Run executes the job body and returns a short summary for the run record
	Run(ctx context.Context, rc RunContext) (string, error)
}

// RunContext is what a job body knows about the run it executes in.
type RunContext struct {
	Region domain.Region
	Date   civil.Date
	RunID  int64
}

// Options holds the orchestrator tuning knobs
type Options struct {
	JobTimeout    time.Duration // Max wall time of one job body
	RegionWorkers int           // Regions processed concurrently; 1 is sequential
	StaleRunAfter time.Duration // RUNNING rows older than this are finalized FAILED
}

// DefaultOptions returns sensible defaults
func DefaultOptions() Options {
	return Options{
		JobTimeout:    10 * time.Minute,
		RegionWorkers: 1,
		StaleRunAfter: 2 * time.Hour,
	}
}

// OutcomeStatus is how a job attempt ended within one tick.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "SUCCESS"
	OutcomeFailed  OutcomeStatus = "FAILED"
	OutcomeSkipped OutcomeStatus = "SKIPPED"
)

// Skip reasons
const (
	SkipNotRunDay        = "not_run_day"
	SkipBeforeTrigger    = "before_trigger_time"
	SkipAlreadySucceeded = "already_succeeded"
	SkipClaimLost        = "claim_lost"
	SkipLocked           = "locked"
)

// Outcome is the result of one job for one region in a tick.
type Outcome struct {
	Job      domain.JobName `json:"job"`
	Status   OutcomeStatus  `json:"status"`
	Reason   string         `json:"reason,omitempty"`
	Message  string         `json:"message,omitempty"`
	RunID    int64          `json:"run_id,omitempty"`

	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"duration_ms"`
}

// RegionReport collects the outcomes of one region. ConfigErr is set when the
// region was aborted before any job was attempted.
type RegionReport struct {
	RegionID   int64      `json:"region_id"`
	RegionName string     `json:"region_name"`
	Date       civil.Date `json:"date"`
	ConfigErr  string     `json:"config_error,omitempty"`
	Err        string     `json:"error,omitempty"`
	Outcomes   []Outcome  `json:"outcomes"`
}

// Report is the result of one orchestrator invocation.
type Report struct {
	TickID     string         `json:"tick_id"`
	StartedAt  time.Time      `json:"started_at"`
	Duration   time.Duration  `json:"-"`
	DurationMS int64          `json:"duration_ms"`
	Regions    []RegionReport `json:"regions"`
}
