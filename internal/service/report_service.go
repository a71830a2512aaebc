package service

import (
	"context"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish/internal/cache"
	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/repository"
	"github.com/andresuchdata/replenish/internal/schedule"
)

const defaultJobRunLimit = 50

// ReportService serves the stored daily facts of a region.
type ReportService struct {
	repo  repository.Repository
	calc  *schedule.Calculator
	cache cache.ReportCache
}

func NewReportService(repo repository.Repository, calc *schedule.Calculator, cacheImpl cache.ReportCache) *ReportService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopReportCache()
	}
	return &ReportService{repo: repo, calc: calc, cache: cacheImpl}
}

// ResolveDate returns date when set, otherwise today in the region's timezone.
func (s *ReportService) ResolveDate(ctx context.Context, regionID int64, date *civil.Date) (domain.Region, civil.Date, error) {
	region, err := s.repo.GetRegion(ctx, regionID)
	if err != nil {
		return domain.Region{}, civil.Date{}, err
	}
	if date != nil {
		return region, *date, nil
	}
	today, err := s.calc.TodayInRegion(region.Timezone)
	if err != nil {
		return domain.Region{}, civil.Date{}, err
	}
	return region, today, nil
}

// cached reads key into dest, falling back to load and storing its result.
func cached[T any](ctx context.Context, c cache.ReportCache, key string, load func() (T, error)) (T, error) {
	var out T
	if ok, err := c.Get(ctx, key, &out); err == nil && ok {
		return out, nil
	} else if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("report cache get failed")
	}

	out, err := load()
	if err != nil {
		return out, err
	}

	if err := c.Set(ctx, key, out); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("report cache set failed")
	}
	return out, nil
}

func (s *ReportService) JobRuns(ctx context.Context, regionID int64, limit int) ([]domain.JobRun, error) {
	if limit <= 0 {
		limit = defaultJobRunLimit
	}
	if _, err := s.repo.GetRegion(ctx, regionID); err != nil {
		return nil, err
	}
	runs, err := s.repo.ListJobRuns(ctx, regionID, limit)
	if err != nil {
		return nil, err
	}
	if runs == nil {
		runs = make([]domain.JobRun, 0)
	}
	return runs, nil
}

// Recommendations optionally keeps a single priority.
func (s *ReportService) Recommendations(ctx context.Context, regionID int64, date civil.Date, priority string) ([]domain.Recommendation, error) {
	priority = strings.ToUpper(strings.TrimSpace(priority))
	key := cache.ReportKey("recommendations", regionID, date.String(), priority)
	return cached(ctx, s.cache, key, func() ([]domain.Recommendation, error) {
		recs, err := s.repo.ListRecommendations(ctx, regionID, date)
		if err != nil {
			return nil, err
		}
		out := make([]domain.Recommendation, 0, len(recs))
		for _, r := range recs {
			if priority == "" || string(r.Priority) == priority {
				out = append(out, r)
			}
		}
		return out, nil
	})
}

// Deadstock optionally keeps a single risk level.
func (s *ReportService) Deadstock(ctx context.Context, regionID int64, date civil.Date, risk string) ([]domain.DeadstockRisk, error) {
	risk = strings.ToUpper(strings.TrimSpace(risk))
	key := cache.ReportKey("deadstock", regionID, date.String(), risk)
	return cached(ctx, s.cache, key, func() ([]domain.DeadstockRisk, error) {
		risks, err := s.repo.ListDeadstockRisks(ctx, regionID, date)
		if err != nil {
			return nil, err
		}
		out := make([]domain.DeadstockRisk, 0, len(risks))
		for _, r := range risks {
			if risk == "" || string(r.RiskLevel) == risk {
				out = append(out, r)
			}
		}
		return out, nil
	})
}

func (s *ReportService) Forecasts(ctx context.Context, regionID int64, date civil.Date) ([]domain.Forecast, error) {
	key := cache.ReportKey("forecasts", regionID, date.String())
	return cached(ctx, s.cache, key, func() ([]domain.Forecast, error) {
		out, err := s.repo.ListForecasts(ctx, regionID, date)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = make([]domain.Forecast, 0)
		}
		return out, nil
	})
}

// KPI returns repository.ErrNotFound until analytics has run for the date.
func (s *ReportService) KPI(ctx context.Context, regionID int64, date civil.Date) (domain.EmergencyKPI, error) {
	return s.repo.GetEmergencyKPI(ctx, regionID, date)
}

func (s *ReportService) Documents(ctx context.Context, regionID int64, date civil.Date) ([]domain.Document, error) {
	docs, err := s.repo.ListDocuments(ctx, regionID, date)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = make([]domain.Document, 0)
	}
	return docs, nil
}
