package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/andresuchdata/replenish/internal/domain"
)

func (r *Repository) ListActiveRegions(ctx context.Context) ([]domain.Region, error) {
	var regions []domain.Region
	err := r.db.SelectContext(ctx, &regions, `
		SELECT region_id, name, timezone, run_days, analytics_time, docs_time,
		       slack_webhook_url, shop_domain, admin_token, store_match_method, active
		FROM regions
		WHERE active
		ORDER BY region_id`)
	if err != nil {
		return nil, fmt.Errorf("list active regions: %w", err)
	}
	return regions, nil
}

func (r *Repository) GetRegion(ctx context.Context, id int64) (domain.Region, error) {
	var region domain.Region
	err := r.db.GetContext(ctx, &region, `
		SELECT region_id, name, timezone, run_days, analytics_time, docs_time,
		       slack_webhook_url, shop_domain, admin_token, store_match_method, active
		FROM regions
		WHERE region_id = $1`, id)
	if err != nil {
		return domain.Region{}, notFound(err)
	}
	return region, nil
}

func (r *Repository) GetLocation(ctx context.Context, id int64) (domain.Location, error) {
	var loc domain.Location
	err := r.db.GetContext(ctx, &loc, `
		SELECT location_id, region_id, name, active
		FROM locations
		WHERE location_id = $1`, id)
	if err != nil {
		return domain.Location{}, notFound(err)
	}
	return loc, nil
}

func (r *Repository) ListActiveStores(ctx context.Context, regionID int64) ([]domain.Store, error) {
	var stores []domain.Store
	err := r.db.SelectContext(ctx, &stores, `
		SELECT store_id, region_id, store_name, customer_id, store_code, match_address_key, active
		FROM stores
		WHERE region_id = $1 AND active
		ORDER BY store_id`, regionID)
	if err != nil {
		return nil, fmt.Errorf("list stores for region %d: %w", regionID, err)
	}
	return stores, nil
}

type assignmentRow struct {
	StoreID       int64        `db:"store_id"`
	EffectiveFrom time.Time    `db:"effective_from"`
	EffectiveTo   sql.NullTime `db:"effective_to"`
	domain.Route
}

func (r *Repository) ListStoreRouteAssignments(ctx context.Context, storeID int64) ([]domain.RouteAssignment, error) {
	var rows []assignmentRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT sr.store_id, sr.effective_from, sr.effective_to,
		       rt.route_id, rt.region_id, rt.name, rt.active_days, rt.cutoff_time, rt.active
		FROM store_routes sr
		JOIN routes rt ON rt.route_id = sr.route_id
		WHERE sr.store_id = $1
		ORDER BY sr.effective_from, rt.route_id`, storeID)
	if err != nil {
		return nil, fmt.Errorf("list routes for store %d: %w", storeID, err)
	}

	out := make([]domain.RouteAssignment, 0, len(rows))
	for _, row := range rows {
		a := domain.RouteAssignment{
			StoreID:       row.StoreID,
			Route:         row.Route,
			EffectiveFrom: dateOf(row.EffectiveFrom),
		}
		if row.EffectiveTo.Valid {
			to := dateOf(row.EffectiveTo.Time)
			a.EffectiveTo = &to
		}
		out = append(out, a)
	}
	return out, nil
}

const skuColumns = `sku_id, sku_code, name, pack_size, moq, lead_time_days, safety_stock_days,
	expiry_managed, abc_grade, active`

func (r *Repository) ListActiveSKUs(ctx context.Context) ([]domain.SKU, error) {
	var skus []domain.SKU
	if err := r.db.SelectContext(ctx, &skus, `SELECT `+skuColumns+` FROM skus WHERE active ORDER BY sku_code`); err != nil {
		return nil, fmt.Errorf("list active skus: %w", err)
	}
	return skus, nil
}

func (r *Repository) GetSKUByCode(ctx context.Context, code string) (domain.SKU, error) {
	var sku domain.SKU
	if err := r.db.GetContext(ctx, &sku, `SELECT `+skuColumns+` FROM skus WHERE sku_code = $1`, code); err != nil {
		return domain.SKU{}, notFound(err)
	}
	return sku, nil
}
