package postgres

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/andresuchdata/replenish/internal/domain"
)

// Facts are write-once: a conflicting natural key leaves the stored row as is.

func (r *Repository) SaveForecast(ctx context.Context, f domain.Forecast) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO forecast (region_id, sku_id, forecast_date, daily_rate_30, daily_rate_60,
			daily_rate_90, daily_rate_used, calculated_at_utc)
		VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8)
		ON CONFLICT (region_id, sku_id, forecast_date) DO NOTHING`,
		f.RegionID, f.SKUID, dateParam(f.Date), f.Rate30, f.Rate60, f.Rate90, f.RateUsed, f.Calculated.UTC())
	if err != nil {
		return fmt.Errorf("save forecast sku %d: %w", f.SKUID, err)
	}
	return nil
}

func (r *Repository) SaveRecommendation(ctx context.Context, rec domain.Recommendation) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO replenishment_recommendations (region_id, sku_id, recommendation_date, sku_code,
			sku_name, on_hand_qty, daily_rate, rop, recommended_qty, adjusted_qty, priority, calculated_at_utc)
		VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (region_id, sku_id, recommendation_date) DO NOTHING`,
		rec.RegionID, rec.SKUID, dateParam(rec.Date), rec.SKUCode, rec.SKUName, rec.OnHandQty,
		rec.DailyRate, rec.ROP, rec.RecommendedQty, rec.AdjustedQty, string(rec.Priority), rec.Calculated.UTC())
	if err != nil {
		return fmt.Errorf("save recommendation sku %d: %w", rec.SKUID, err)
	}
	return nil
}

func (r *Repository) SaveDeadstockRisk(ctx context.Context, risk domain.DeadstockRisk) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO deadstock_risk (region_id, sku_id, lot_id, analysis_date, sku_code, sku_name, lot_code,
			expiry_date, days_to_expiry, current_qty, expected_consume, expected_leftover, risk_level,
			suggested_action, calculated_at_utc)
		VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8::date, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (region_id, sku_id, lot_id, analysis_date) DO NOTHING`,
		risk.RegionID, risk.SKUID, risk.LotID, dateParam(risk.Date), risk.SKUCode, risk.SKUName, risk.LotCode,
		dateParam(risk.ExpiryDate), risk.DaysToExpiry, risk.CurrentQty, risk.ExpectedConsume,
		risk.ExpectedLeftover, string(risk.RiskLevel), string(risk.SuggestedAction), risk.Calculated.UTC())
	if err != nil {
		return fmt.Errorf("save deadstock risk lot %d: %w", risk.LotID, err)
	}
	return nil
}

func (r *Repository) SaveEmergencyKPI(ctx context.Context, k domain.EmergencyKPI) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO emergency_kpi_daily (region_id, kpi_date, total_orders, emergency_orders,
			extra_orders, regular_orders, emergency_rate)
		VALUES ($1, $2::date, $3, $4, $5, $6, $7)
		ON CONFLICT (region_id, kpi_date) DO NOTHING`,
		k.RegionID, dateParam(k.Date), k.TotalOrders, k.EmergencyOrders, k.ExtraOrders, k.RegularOrders, k.EmergencyRate)
	if err != nil {
		return fmt.Errorf("save emergency kpi: %w", err)
	}
	return nil
}

type forecastRow struct {
	RegionID   int64     `db:"region_id"`
	SKUID      int64     `db:"sku_id"`
	Date       time.Time `db:"forecast_date"`
	Rate30     float64   `db:"daily_rate_30"`
	Rate60     float64   `db:"daily_rate_60"`
	Rate90     float64   `db:"daily_rate_90"`
	RateUsed   float64   `db:"daily_rate_used"`
	Calculated time.Time `db:"calculated_at_utc"`
}

func (r *Repository) ListForecasts(ctx context.Context, regionID int64, date civil.Date) ([]domain.Forecast, error) {
	var rows []forecastRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT region_id, sku_id, forecast_date, daily_rate_30, daily_rate_60, daily_rate_90,
		       daily_rate_used, calculated_at_utc
		FROM forecast
		WHERE region_id = $1 AND forecast_date = $2::date
		ORDER BY sku_id`, regionID, dateParam(date))
	if err != nil {
		return nil, fmt.Errorf("list forecasts: %w", err)
	}
	out := make([]domain.Forecast, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Forecast{
			RegionID:   row.RegionID,
			SKUID:      row.SKUID,
			Date:       dateOf(row.Date),
			Rate30:     row.Rate30,
			Rate60:     row.Rate60,
			Rate90:     row.Rate90,
			RateUsed:   row.RateUsed,
			Calculated: row.Calculated,
		})
	}
	return out, nil
}

type recommendationRow struct {
	RegionID       int64     `db:"region_id"`
	SKUID          int64     `db:"sku_id"`
	Date           time.Time `db:"recommendation_date"`
	SKUCode        string    `db:"sku_code"`
	SKUName        string    `db:"sku_name"`
	OnHandQty      int       `db:"on_hand_qty"`
	DailyRate      float64   `db:"daily_rate"`
	ROP            int       `db:"rop"`
	RecommendedQty int       `db:"recommended_qty"`
	AdjustedQty    int       `db:"adjusted_qty"`
	Priority       string    `db:"priority"`
	Calculated     time.Time `db:"calculated_at_utc"`
}

func (r *Repository) ListRecommendations(ctx context.Context, regionID int64, date civil.Date) ([]domain.Recommendation, error) {
	var rows []recommendationRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT region_id, sku_id, recommendation_date, sku_code, sku_name, on_hand_qty, daily_rate,
		       rop, recommended_qty, adjusted_qty, priority, calculated_at_utc
		FROM replenishment_recommendations
		WHERE region_id = $1 AND recommendation_date = $2::date
		ORDER BY sku_id`, regionID, dateParam(date))
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	out := make([]domain.Recommendation, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Recommendation{
			RegionID:       row.RegionID,
			SKUID:          row.SKUID,
			SKUCode:        row.SKUCode,
			SKUName:        row.SKUName,
			Date:           dateOf(row.Date),
			OnHandQty:      row.OnHandQty,
			DailyRate:      row.DailyRate,
			ROP:            row.ROP,
			RecommendedQty: row.RecommendedQty,
			AdjustedQty:    row.AdjustedQty,
			Priority:       domain.Priority(row.Priority),
			Calculated:     row.Calculated,
		})
	}
	return out, nil
}

type riskRow struct {
	RegionID         int64     `db:"region_id"`
	SKUID            int64     `db:"sku_id"`
	LotID            int64     `db:"lot_id"`
	Date             time.Time `db:"analysis_date"`
	SKUCode          string    `db:"sku_code"`
	SKUName          string    `db:"sku_name"`
	LotCode          string    `db:"lot_code"`
	ExpiryDate       time.Time `db:"expiry_date"`
	DaysToExpiry     int       `db:"days_to_expiry"`
	CurrentQty       int       `db:"current_qty"`
	ExpectedConsume  float64   `db:"expected_consume"`
	ExpectedLeftover float64   `db:"expected_leftover"`
	RiskLevel        string    `db:"risk_level"`
	SuggestedAction  string    `db:"suggested_action"`
	Calculated       time.Time `db:"calculated_at_utc"`
}

func (r *Repository) ListDeadstockRisks(ctx context.Context, regionID int64, date civil.Date) ([]domain.DeadstockRisk, error) {
	var rows []riskRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT region_id, sku_id, lot_id, analysis_date, sku_code, sku_name, lot_code, expiry_date,
		       days_to_expiry, current_qty, expected_consume, expected_leftover, risk_level,
		       suggested_action, calculated_at_utc
		FROM deadstock_risk
		WHERE region_id = $1 AND analysis_date = $2::date
		ORDER BY sku_id, lot_id`, regionID, dateParam(date))
	if err != nil {
		return nil, fmt.Errorf("list deadstock risks: %w", err)
	}
	out := make([]domain.DeadstockRisk, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.DeadstockRisk{
			RegionID:         row.RegionID,
			SKUID:            row.SKUID,
			SKUCode:          row.SKUCode,
			SKUName:          row.SKUName,
			LotID:            row.LotID,
			LotCode:          row.LotCode,
			Date:             dateOf(row.Date),
			ExpiryDate:       dateOf(row.ExpiryDate),
			DaysToExpiry:     row.DaysToExpiry,
			CurrentQty:       row.CurrentQty,
			ExpectedConsume:  row.ExpectedConsume,
			ExpectedLeftover: row.ExpectedLeftover,
			RiskLevel:        domain.RiskLevel(row.RiskLevel),
			SuggestedAction:  domain.RiskAction(row.SuggestedAction),
			Calculated:       row.Calculated,
		})
	}
	return out, nil
}

type kpiRow struct {
	RegionID        int64     `db:"region_id"`
	Date            time.Time `db:"kpi_date"`
	TotalOrders     int       `db:"total_orders"`
	EmergencyOrders int       `db:"emergency_orders"`
	ExtraOrders     int       `db:"extra_orders"`
	RegularOrders   int       `db:"regular_orders"`
	EmergencyRate   float64   `db:"emergency_rate"`
}

func (r *Repository) GetEmergencyKPI(ctx context.Context, regionID int64, date civil.Date) (domain.EmergencyKPI, error) {
	var row kpiRow
	err := r.db.GetContext(ctx, &row, `
		SELECT region_id, kpi_date, total_orders, emergency_orders, extra_orders, regular_orders, emergency_rate
		FROM emergency_kpi_daily
		WHERE region_id = $1 AND kpi_date = $2::date`, regionID, dateParam(date))
	if err != nil {
		return domain.EmergencyKPI{}, notFound(err)
	}
	return domain.EmergencyKPI{
		RegionID:        row.RegionID,
		Date:            dateOf(row.Date),
		TotalOrders:     row.TotalOrders,
		EmergencyOrders: row.EmergencyOrders,
		ExtraOrders:     row.ExtraOrders,
		RegularOrders:   row.RegularOrders,
		EmergencyRate:   row.EmergencyRate,
	}, nil
}
