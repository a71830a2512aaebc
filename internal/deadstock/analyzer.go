package deadstock

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/forecast"
	"github.com/andresuchdata/replenish/internal/schedule"
)

// HorizonDays bounds how far ahead of expiry lots are scored.
const HorizonDays = 180

// LotSource lists the AVAILABLE lots of a SKU with a positive quantity.
type LotSource interface {
	ListAvailableLots(ctx context.Context, regionID, skuID int64) ([]domain.Lot, error)
}

// RateSource supplies the trailing daily consumption rate.
type RateSource interface {
	DailyRate(ctx context.Context, regionID, skuID int64, windowDays int) (float64, error)
}

// Assessment is the scoring of a single lot.
type Assessment struct {
	ExpectedConsume  float64
	ExpectedLeftover float64
	Level            domain.RiskLevel
	Action           domain.RiskAction
}

// Assess scores a lot of qty units expiring in daysLeft days at dailyRate.
// ok is false when the lot is outside the scoring horizon.
func Assess(daysLeft, qty int, dailyRate float64) (a Assessment, ok bool) {
	if daysLeft < 0 || daysLeft > HorizonDays {
		return Assessment{}, false
	}

	a.ExpectedConsume = dailyRate * float64(daysLeft)
	a.ExpectedLeftover = float64(qty) - a.ExpectedConsume

	switch {
	case daysLeft <= 150 && a.ExpectedLeftover > 0:
		a.Level = domain.RiskHigh
		switch {
		case daysLeft <= 30:
			a.Action = domain.ActionPromoUrgent
		case daysLeft <= 60:
			a.Action = domain.ActionPromo
		case daysLeft <= 90:
			a.Action = domain.ActionBundle
		default:
			a.Action = domain.ActionStopPurchase
		}
	case daysLeft <= 120 && a.ExpectedLeftover > float64(qty)*0.5:
		a.Level, a.Action = domain.RiskMed, domain.ActionMonitorClosely
	default:
		a.Level, a.Action = domain.RiskLow, domain.ActionMonitor
	}
	return a, true
}

// Analyzer scores every lot of expiry-managed SKUs in a region.
type Analyzer struct {
	lots  LotSource
	rates RateSource
	calc  *schedule.Calculator
}

func NewAnalyzer(lots LotSource, rates RateSource, calc *schedule.Calculator) *Analyzer {
	return &Analyzer{lots: lots, rates: rates, calc: calc}
}

// Analyze returns one risk row per in-horizon lot of sku. Inactive or
// non-expiry-managed SKUs yield nothing.
func (a *Analyzer) Analyze(ctx context.Context, regionID int64, sku domain.SKU, date civil.Date) ([]domain.DeadstockRisk, error) {
	if !sku.Active || !sku.ExpiryManaged {
		return nil, nil
	}

	lots, err := a.lots.ListAvailableLots(ctx, regionID, sku.ID)
	if err != nil {
		return nil, fmt.Errorf("list lots for sku %s: %w", sku.Code, err)
	}
	if len(lots) == 0 {
		return nil, nil
	}

	rate, err := a.rates.DailyRate(ctx, regionID, sku.ID, forecast.Window30)
	if err != nil {
		return nil, err
	}

	now := a.calc.Now().UTC()
	var risks []domain.DeadstockRisk
	for _, lot := range lots {
		if lot.Status != domain.LotAvailable || lot.ExpiryDate == nil || lot.Qty <= 0 {
			continue
		}
		daysLeft := a.calc.DaysToExpiry(*lot.ExpiryDate)
		assessment, ok := Assess(daysLeft, lot.Qty, rate)
		if !ok {
			continue
		}
		risks = append(risks, domain.DeadstockRisk{
			RegionID:         regionID,
			SKUID:            sku.ID,
			SKUCode:          sku.Code,
			SKUName:          sku.Name,
			LotID:            lot.ID,
			LotCode:          lot.Code,
			Date:             date,
			ExpiryDate:       *lot.ExpiryDate,
			DaysToExpiry:     daysLeft,
			CurrentQty:       lot.Qty,
			ExpectedConsume:  assessment.ExpectedConsume,
			ExpectedLeftover: assessment.ExpectedLeftover,
			RiskLevel:        assessment.Level,
			SuggestedAction:  assessment.Action,
			Calculated:       now,
		})
	}
	return risks, nil
}
