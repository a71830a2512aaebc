package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/repository"
)

const uniqueViolation = "23505"

func (r *Repository) HasSucceeded(ctx context.Context, job domain.JobName, regionID int64, date civil.Date) (bool, error) {
	var ok bool
	err := r.db.GetContext(ctx, &ok, `
		SELECT EXISTS (
			SELECT 1 FROM job_runs
			WHERE job_name = $1 AND region_id = $2 AND run_date = $3::date AND status = 'SUCCESS'
		)`, string(job), regionID, dateParam(date))
	if err != nil {
		return false, fmt.Errorf("check job %s success: %w", job, err)
	}
	return ok, nil
}

// ClaimJobRun relies on the partial unique index over exclusive RUNNING and
// SUCCESS rows, so two schedulers racing for the same slot cannot both win.
func (r *Repository) ClaimJobRun(ctx context.Context, run *domain.JobRun, exclusive bool) (bool, error) {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	run.Status = domain.JobRunning

	query := `
		INSERT INTO job_runs (job_name, region_id, run_date, ran_at_utc, status, exclusive)
		VALUES ($1, $2, $3::date, $4, 'RUNNING', $5)`
	if exclusive {
		query += `
		ON CONFLICT (job_name, region_id, run_date) WHERE exclusive AND status IN ('RUNNING', 'SUCCESS')
		DO NOTHING`
	}
	query += `
		RETURNING job_run_id`

	err := r.db.QueryRowxContext(ctx, query,
		string(run.JobName), run.RegionID, dateParam(run.RunDate), run.StartedAt.UTC(), exclusive,
	).Scan(&run.ID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return false, nil
	}
	return false, fmt.Errorf("claim job %s: %w", run.JobName, err)
}

func (r *Repository) FinishJobRun(ctx context.Context, id int64, status domain.JobStatus, message string, d time.Duration) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE job_runs
		SET status = $2, message = $3, duration_ms = $4
		WHERE job_run_id = $1 AND status = 'RUNNING'`,
		id, string(status), message, d.Milliseconds())
	if err != nil {
		return fmt.Errorf("finish job run %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM job_runs WHERE job_run_id = $1)`, id); err != nil {
		return fmt.Errorf("finish job run %d: %w", id, err)
	}
	if !exists {
		return repository.ErrNotFound
	}
	return nil
}

func (r *Repository) FailStaleRuns(ctx context.Context, job domain.JobName, regionID int64, date civil.Date, cutoff time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE job_runs
		SET status = 'FAILED', message = 'abandoned'
		WHERE job_name = $1 AND region_id = $2 AND run_date = $3::date
		  AND status = 'RUNNING' AND ran_at_utc < $4`,
		string(job), regionID, dateParam(date), cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("fail stale runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

type jobRunRow struct {
	ID         int64     `db:"job_run_id"`
	JobName    string    `db:"job_name"`
	RegionID   int64     `db:"region_id"`
	RunDate    time.Time `db:"run_date"`
	RanAt      time.Time `db:"ran_at_utc"`
	Status     string    `db:"status"`
	Message    string    `db:"message"`
	DurationMS int64     `db:"duration_ms"`
}

func (r *Repository) ListJobRuns(ctx context.Context, regionID int64, limit int) ([]domain.JobRun, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []jobRunRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT job_run_id, job_name, region_id, run_date, ran_at_utc, status, message, duration_ms
		FROM job_runs
		WHERE region_id = $1
		ORDER BY ran_at_utc DESC, job_run_id DESC
		LIMIT $2`, regionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list job runs: %w", err)
	}
	out := make([]domain.JobRun, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.JobRun{
			ID:        row.ID,
			JobName:   domain.JobName(row.JobName),
			RegionID:  row.RegionID,
			RunDate:   dateOf(row.RunDate),
			StartedAt: row.RanAt,
			Status:    domain.JobStatus(row.Status),
			Message:   row.Message,
			Duration:  time.Duration(row.DurationMS) * time.Millisecond,
		})
	}
	return out, nil
}
