package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/repository"
	"github.com/andresuchdata/replenish/internal/repository/memory"
	"github.com/andresuchdata/replenish/internal/schedule"
)

// mapCache is an in-process ReportCache that counts hits.
type mapCache struct {
	items map[string]any
	hits  int
}

func (m *mapCache) Get(_ context.Context, key string, dest any) (bool, error) {
	v, ok := m.items[key]
	if !ok {
		return false, nil
	}
	m.hits++
	switch d := dest.(type) {
	case *[]domain.Recommendation:
		*d = v.([]domain.Recommendation)
	case *[]domain.DeadstockRisk:
		*d = v.([]domain.DeadstockRisk)
	case *[]domain.Forecast:
		*d = v.([]domain.Forecast)
	default:
		return false, errors.New("unsupported type")
	}
	return true, nil
}

func (m *mapCache) Set(_ context.Context, key string, value any) error {
	m.items[key] = value
	return nil
}

func (m *mapCache) InvalidateRegion(context.Context, int64) error {
	m.items = map[string]any{}
	return nil
}

var date = civil.Date{Year: 2025, Month: time.January, Day: 15}

func seed(t *testing.T) (*memory.Store, domain.Region) {
	t.Helper()
	repo := memory.New()
	region := repo.AddRegion(domain.Region{Name: "Jakarta", Timezone: "Asia/Jakarta", RunDays: "Mon", AnalyticsTime: "06:00", DocsTime: "07:00", Active: true})
	ctx := context.Background()
	for i, p := range []domain.Priority{domain.PriorityHigh, domain.PriorityLow, domain.PriorityHigh} {
		rec := domain.Recommendation{RegionID: region.ID, SKUID: int64(i + 1), Date: date, Priority: p}
		if err := repo.SaveRecommendation(ctx, rec); err != nil {
			t.Fatalf("SaveRecommendation: %v", err)
		}
	}
	return repo, region
}

func TestRecommendationsFilterAndCache(t *testing.T) {
	repo, region := seed(t)
	c := &mapCache{items: map[string]any{}}
	svc := NewReportService(repo, schedule.NewCalculator(nil), c)
	ctx := context.Background()

	tests := []struct {
		priority string
		want     int
	}{
		{"", 3},
		{"high", 2},
		{"LOW", 1},
		{"MEDIUM", 0},
	}
	for _, tt := range tests {
		got, err := svc.Recommendations(ctx, region.ID, date, tt.priority)
		if err != nil {
			t.Fatalf("Recommendations(%q): %v", tt.priority, err)
		}
		if len(got) != tt.want {
			t.Errorf("Recommendations(%q) = %d rows, want %d", tt.priority, len(got), tt.want)
		}
	}

	if _, err := svc.Recommendations(ctx, region.ID, date, "HIGH"); err != nil {
		t.Fatalf("Recommendations: %v", err)
	}
	if c.hits != 1 {
		t.Errorf("cache hits = %d, want 1 (\"high\" and \"HIGH\" share a key)", c.hits)
	}
}

func TestResolveDateDefaultsToRegionToday(t *testing.T) {
	repo, region := seed(t)
	// 20:00 UTC on the 15th is already the 16th in Jakarta.
	calc := schedule.NewCalculator(schedule.FixedClock(time.Date(2025, 1, 15, 20, 0, 0, 0, time.UTC)))
	svc := NewReportService(repo, calc, nil)

	_, got, err := svc.ResolveDate(context.Background(), region.ID, nil)
	if err != nil {
		t.Fatalf("ResolveDate: %v", err)
	}
	if want := (civil.Date{Year: 2025, Month: time.January, Day: 16}); got != want {
		t.Errorf("ResolveDate = %s, want %s", got, want)
	}

	if _, _, err := svc.ResolveDate(context.Background(), 999, nil); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("unknown region err = %v, want ErrNotFound", err)
	}
}

func TestKPIMissingIsNotFound(t *testing.T) {
	repo, region := seed(t)
	svc := NewReportService(repo, schedule.NewCalculator(nil), nil)
	if _, err := svc.KPI(context.Background(), region.ID, date); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("KPI err = %v, want ErrNotFound", err)
	}
}
