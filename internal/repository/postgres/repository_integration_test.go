package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/semaphore"

	"github.com/andresuchdata/replenish/internal/domain"
)

// openTestDB connects to DATABASE_URL when INTEGRATION_TESTS=1 and resets the schema.
func openTestDB(t *testing.T) *Repository {
	t.Helper()
	if os.Getenv("INTEGRATION_TESTS") != "1" {
		t.Skip("set INTEGRATION_TESTS=1 and DATABASE_URL to run")
	}
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	conn, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	ctx := context.Background()
	if _, err := conn.ExecContext(ctx, `DROP SCHEMA public CASCADE; CREATE SCHEMA public;`); err != nil {
		t.Fatalf("reset schema: %v", err)
	}
	db := &DB{DB: conn, sem: semaphore.NewWeighted(4)}
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := conn.ExecContext(ctx, `
		INSERT INTO regions (name, timezone) VALUES ('Jakarta', 'Asia/Jakarta');
		INSERT INTO skus (sku_code, name, pack_size, moq) VALUES ('SKU-1', 'Widget', 6, 12);`); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return NewRepository(db)
}

func TestClaimJobRunExclusiveSlot(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()
	date := civil.Date{Year: 2025, Month: time.March, Day: 5}

	first := &domain.JobRun{JobName: domain.JobDailyAnalytics, RegionID: 1, RunDate: date}
	claimed, err := repo.ClaimJobRun(ctx, first, true)
	if err != nil || !claimed {
		t.Fatalf("first claim = %v, %v; want true, nil", claimed, err)
	}

	second := &domain.JobRun{JobName: domain.JobDailyAnalytics, RegionID: 1, RunDate: date}
	claimed, err = repo.ClaimJobRun(ctx, second, true)
	if err != nil || claimed {
		t.Fatalf("second claim = %v, %v; want false, nil", claimed, err)
	}

	if err := repo.FinishJobRun(ctx, first.ID, domain.JobFailed, "boom", time.Second); err != nil {
		t.Fatalf("finish: %v", err)
	}
	claimed, err = repo.ClaimJobRun(ctx, second, true)
	if err != nil || !claimed {
		t.Fatalf("retry after failure = %v, %v; want true, nil", claimed, err)
	}

	// Finishing a terminal run again must not change it.
	if err := repo.FinishJobRun(ctx, first.ID, domain.JobSuccess, "", 0); err != nil {
		t.Fatalf("refinish: %v", err)
	}
	runs, err := repo.ListJobRuns(ctx, 1, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, r := range runs {
		if r.ID == first.ID && r.Status != domain.JobFailed {
			t.Errorf("terminal run status changed to %s", r.Status)
		}
	}
}

func TestFactsAreWriteOnce(t *testing.T) {
	repo := openTestDB(t)
	ctx := context.Background()
	date := civil.Date{Year: 2025, Month: time.March, Day: 5}

	f := domain.Forecast{RegionID: 1, SKUID: 1, Date: date, Rate30: 1, Rate60: 2, Rate90: 3, RateUsed: 1, Calculated: time.Now()}
	if err := repo.SaveForecast(ctx, f); err != nil {
		t.Fatalf("save: %v", err)
	}
	f.RateUsed = 9
	if err := repo.SaveForecast(ctx, f); err != nil {
		t.Fatalf("resave: %v", err)
	}

	got, err := repo.ListForecasts(ctx, 1, date)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].RateUsed != 1 || got[0].Date != date {
		t.Fatalf("forecasts = %+v, want one row with the first rate", got)
	}
}
