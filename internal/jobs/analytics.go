package jobs

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/replenish/internal/cache"
	"github.com/andresuchdata/replenish/internal/deadstock"
	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/forecast"
	"github.com/andresuchdata/replenish/internal/inventory"
	"github.com/andresuchdata/replenish/internal/notify"
	"github.com/andresuchdata/replenish/internal/replenishment"
	"github.com/andresuchdata/replenish/internal/repository"
	"github.com/andresuchdata/replenish/internal/schedule"
)

// AnalyticsJob computes the daily forecasts, recommendations, deadstock
// risks and emergency KPI of a region, then sends alerts.
type AnalyticsJob struct {
	repo       repository.Repository
	calc       *schedule.Calculator
	forecasts  *forecast.Engine
	stock      *inventory.Aggregator
	reorder    *replenishment.Calculator
	risks      *deadstock.Analyzer
	sender     notify.Sender
	reports    cache.ReportCache
	skuWorkers int
}

// NewAnalyticsJob wires the analytics engines over repo. A nil sender
// disables alerts and a nil reports cache disables invalidation.
func NewAnalyticsJob(repo repository.Repository, calc *schedule.Calculator, sender notify.Sender,
	reports cache.ReportCache, skuWorkers int) *AnalyticsJob {
	if skuWorkers < 1 {
		skuWorkers = 1
	}
	if reports == nil {
		reports = cache.NewNoopReportCache()
	}
	engine := forecast.NewEngine(repo, calc)
	return &AnalyticsJob{
		repo:       repo,
		calc:       calc,
		forecasts:  engine,
		stock:      inventory.NewAggregator(repo),
		reorder:    replenishment.NewCalculator(),
		risks:      deadstock.NewAnalyzer(repo, engine, calc),
		sender:     sender,
		reports:    reports,
		skuWorkers: skuWorkers,
	}
}

func (j *AnalyticsJob) Name() domain.JobName { return domain.JobDailyAnalytics }

func (j *AnalyticsJob) Repeatable() bool { return false }

func (j *AnalyticsJob) TriggerTime(region domain.Region) string { return region.AnalyticsTime }

func (j *AnalyticsJob) Run(ctx context.Context, rc RunContext) (string, error) {
	skus, err := j.repo.ListActiveSKUs(ctx)
	if err != nil {
		return "", fmt.Errorf("list skus: %w", err)
	}

	// Forecasts strictly precede the computations that read them.
	forecasts, err := j.computeForecasts(ctx, rc, skus)
	if err != nil {
		return "", err
	}

	recs, err := j.computeRecommendations(ctx, rc, skus, forecasts)
	if err != nil {
		return "", err
	}

	risks, err := j.computeDeadstock(ctx, rc, skus)
	if err != nil {
		return "", err
	}

	kpi, err := j.computeKPI(ctx, rc)
	if err != nil {
		return "", err
	}

	j.sendAlerts(ctx, rc.Region, recs, risks)

	if err := j.reports.InvalidateRegion(ctx, rc.Region.ID); err != nil {
		log.Warn().Err(err).Int64("region_id", rc.Region.ID).Msg("report cache invalidation failed")
	}

	return fmt.Sprintf("%d skus, %d recommendations, %d deadstock risks, %d orders",
		len(skus), len(recs), len(risks), kpi.TotalOrders), nil
}

// forEachSKU runs fn for every index of skus with at most skuWorkers in flight.
// A panic in fn fails the batch like an error; it never leaves the worker.
func (j *AnalyticsJob) forEachSKU(ctx context.Context, skus []domain.SKU, fn func(ctx context.Context, i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.skuWorkers)
	for i := range skus {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic in sku %s: %v", skus[i].Code, r)
				}
			}()
			return fn(gctx, i)
		})
	}
	return g.Wait()
}

func (j *AnalyticsJob) computeForecasts(ctx context.Context, rc RunContext, skus []domain.SKU) ([]domain.Forecast, error) {
	out := make([]domain.Forecast, len(skus))
	err := j.forEachSKU(ctx, skus, func(ctx context.Context, i int) error {
		f, err := j.forecasts.Compute(ctx, rc.Region.ID, skus[i].ID, rc.Date)
		if err != nil {
			return fmt.Errorf("forecast %s: %w", skus[i].Code, err)
		}
		if err := j.repo.SaveForecast(ctx, f); err != nil {
			return err
		}
		out[i] = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (j *AnalyticsJob) computeRecommendations(ctx context.Context, rc RunContext, skus []domain.SKU,
	forecasts []domain.Forecast) ([]domain.Recommendation, error) {
	out := make([]domain.Recommendation, len(skus))
	now := j.calc.Now().UTC()
	err := j.forEachSKU(ctx, skus, func(ctx context.Context, i int) error {
		sku := skus[i]
		summary, err := j.stock.Summarize(ctx, rc.Region.ID, sku.ID)
		if err != nil {
			return err
		}
		onHand := max(0, summary.Available)
		m := j.reorder.Calculate(sku, onHand, forecasts[i].RateUsed)

		rec := domain.Recommendation{
			RegionID:       rc.Region.ID,
			SKUID:          sku.ID,
			SKUCode:        sku.Code,
			SKUName:        sku.Name,
			Date:           rc.Date,
			OnHandQty:      onHand,
			DailyRate:      forecasts[i].RateUsed,
			ROP:            m.ROP,
			RecommendedQty: m.RecommendedQty,
			AdjustedQty:    m.AdjustedQty,
			Priority:       m.Priority,
			Calculated:     now,
		}
		if err := j.repo.SaveRecommendation(ctx, rec); err != nil {
			return err
		}
		out[i] = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (j *AnalyticsJob) computeDeadstock(ctx context.Context, rc RunContext, skus []domain.SKU) ([]domain.DeadstockRisk, error) {
	perSKU := make([][]domain.DeadstockRisk, len(skus))
	err := j.forEachSKU(ctx, skus, func(ctx context.Context, i int) error {
		risks, err := j.risks.Analyze(ctx, rc.Region.ID, skus[i], rc.Date)
		if err != nil {
			return err
		}
		for _, r := range risks {
			if err := j.repo.SaveDeadstockRisk(ctx, r); err != nil {
				return err
			}
		}
		perSKU[i] = risks
		return nil
	})
	if err != nil {
		return nil, err
	}

	var all []domain.DeadstockRisk
	for _, risks := range perSKU {
		all = append(all, risks...)
	}
	return all, nil
}

// computeKPI counts the orders placed on the region-local run date by type.
func (j *AnalyticsJob) computeKPI(ctx context.Context, rc RunContext) (domain.EmergencyKPI, error) {
	from, to, err := j.calc.DayBounds(rc.Date, rc.Region.Timezone)
	if err != nil {
		return domain.EmergencyKPI{}, err
	}
	orders, err := j.repo.ListOrders(ctx, rc.Region.ID, from, to)
	if err != nil {
		return domain.EmergencyKPI{}, fmt.Errorf("list orders: %w", err)
	}

	kpi := domain.EmergencyKPI{RegionID: rc.Region.ID, Date: rc.Date, TotalOrders: len(orders)}
	for _, o := range orders {
		switch o.OrderType {
		case domain.OrderEmergency:
			kpi.EmergencyOrders++
		case domain.OrderExtra:
			kpi.ExtraOrders++
		case domain.OrderRegular:
			kpi.RegularOrders++
		}
	}
	if kpi.TotalOrders > 0 {
		kpi.EmergencyRate = float64(kpi.EmergencyOrders) / float64(kpi.TotalOrders)
	}
	if err := j.repo.SaveEmergencyKPI(ctx, kpi); err != nil {
		return domain.EmergencyKPI{}, err
	}
	return kpi, nil
}

// sendAlerts never fails the job; delivery errors are logged.
func (j *AnalyticsJob) sendAlerts(ctx context.Context, region domain.Region, recs []domain.Recommendation, risks []domain.DeadstockRisk) {
	if j.sender == nil || region.SlackWebhookURL == "" {
		return
	}
	for _, alert := range []notify.Alert{
		notify.StockoutAlert(region.Name, recs),
		notify.DeadstockAlert(region.Name, risks),
	} {
		if len(alert.Items) == 0 {
			continue
		}
		if err := j.sender.Send(ctx, region.SlackWebhookURL, alert); err != nil {
			log.Warn().Err(err).
				Int64("region_id", region.ID).
				Str("alert", string(alert.Kind)).
				Msg("alert delivery failed")
		}
	}
}
