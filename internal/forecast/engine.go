package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"cloud.google.com/go/civil"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/schedule"
)

// Trailing windows, in days, the forecast is computed over.
const (
	Window30 = 30
	Window60 = 60
	Window90 = 90
)

// MovementSource totals outbound stock movements.
type MovementSource interface {
	SumOutbound(ctx context.Context, regionID, skuID int64, since time.Time) (int, error)
}

// Engine derives consumption rates from the OUT movement ledger.
type Engine struct {
	movements MovementSource
	calc      *schedule.Calculator
}

func NewEngine(movements MovementSource, calc *schedule.Calculator) *Engine {
	return &Engine{movements: movements, calc: calc}
}

// DailyRate is the OUT quantity of the trailing windowDays divided by windowDays.
func (e *Engine) DailyRate(ctx context.Context, regionID, skuID int64, windowDays int) (float64, error) {
	if windowDays <= 0 {
		return 0, fmt.Errorf("window must be positive, got %d", windowDays)
	}
	since := e.calc.Now().AddDate(0, 0, -windowDays)
	total, err := e.movements.SumOutbound(ctx, regionID, skuID, since)
	if err != nil {
		return 0, fmt.Errorf("sum outbound for sku %d over %dd: %w", skuID, windowDays, err)
	}
	if total <= 0 {
		return 0, nil
	}
	return float64(total) / float64(windowDays), nil
}

// Compute returns the 30/60/90-day rates and uses the smallest of them.
func (e *Engine) Compute(ctx context.Context, regionID, skuID int64, date civil.Date) (domain.Forecast, error) {
	f := domain.Forecast{RegionID: regionID, SKUID: skuID, Date: date}

	var err error
	if f.Rate30, err = e.DailyRate(ctx, regionID, skuID, Window30); err != nil {
		return domain.Forecast{}, err
	}
	if f.Rate60, err = e.DailyRate(ctx, regionID, skuID, Window60); err != nil {
		return domain.Forecast{}, err
	}
	if f.Rate90, err = e.DailyRate(ctx, regionID, skuID, Window90); err != nil {
		return domain.Forecast{}, err
	}
	f.RateUsed = RateUsed(f.Rate30, f.Rate60, f.Rate90)
	f.Calculated = e.calc.Now().UTC()
	return f, nil
}

// RateUsed picks the most conservative of the three rates.
func RateUsed(r30, r60, r90 float64) float64 {
	return math.Min(r30, math.Min(r60, r90))
}
