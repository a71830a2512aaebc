package seed

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/andresuchdata/replenish/internal/repository/memory"
	"github.com/andresuchdata/replenish/internal/repository/postgres"
)

// Into copies the dataset into an in-memory repository.
func (ds *Dataset) Into(ctx context.Context, store *memory.Store) error {
	for _, r := range ds.Regions {
		store.AddRegion(r)
	}
	for _, l := range ds.Locations {
		store.AddLocation(l)
	}
	for _, s := range ds.SKUs {
		store.AddSKU(s)
	}
	for _, s := range ds.Stores {
		store.AddStore(s)
	}
	for _, a := range ds.Assignments {
		store.AssignRoute(a)
	}
	for i := range ds.Inventory {
		rec := ds.Inventory[i]
		if err := store.InsertInventory(ctx, &rec); err != nil {
			return err
		}
	}
	for _, l := range ds.Lots {
		store.AddLot(l)
	}
	for _, m := range ds.Movements {
		store.AddMovement(m)
	}
	return nil
}

// serialTables are reset after explicit-id inserts so later inserts do not collide.
var serialTables = []struct{ table, column string }{
	{"regions", "region_id"},
	{"locations", "location_id"},
	{"skus", "sku_id"},
	{"stores", "store_id"},
	{"routes", "route_id"},
	{"inventory", "inventory_id"},
	{"lots", "lot_id"},
	{"movements", "movement_id"},
}

// Write inserts the dataset in one transaction. Rows whose key already
// exists are left untouched, so seeding twice is harmless.
func (ds *Dataset) Write(ctx context.Context, db *postgres.DB) error {
	return db.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, r := range ds.Regions {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO regions (region_id, name, timezone, run_days, analytics_time, docs_time,
					slack_webhook_url, shop_domain, admin_token, store_match_method, active)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
				ON CONFLICT (region_id) DO NOTHING`,
				r.ID, r.Name, r.Timezone, r.RunDays, r.AnalyticsTime, r.DocsTime,
				r.SlackWebhookURL, r.ShopDomain, r.AdminToken, string(r.StoreMatchMethod), r.Active,
			); err != nil {
				return fmt.Errorf("failed to insert region %d: %w", r.ID, err)
			}
		}

		for _, l := range ds.Locations {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO locations (location_id, region_id, name, active)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (location_id) DO NOTHING`,
				l.ID, l.RegionID, l.Name, l.Active,
			); err != nil {
				return fmt.Errorf("failed to insert location %d: %w", l.ID, err)
			}
		}

		for _, s := range ds.SKUs {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO skus (sku_id, sku_code, name, pack_size, moq, lead_time_days,
					safety_stock_days, expiry_managed, abc_grade, active)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
				ON CONFLICT DO NOTHING`,
				s.ID, s.Code, s.Name, s.PackSize, s.MOQ, s.LeadTimeDays,
				s.SafetyStockDays, s.ExpiryManaged, s.ABCGrade, s.Active,
			); err != nil {
				return fmt.Errorf("failed to insert sku %s: %w", s.Code, err)
			}
		}

		for _, s := range ds.Stores {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO stores (store_id, region_id, store_name, customer_id, store_code, match_address_key, active)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (store_id) DO NOTHING`,
				s.ID, s.RegionID, s.Name, s.CustomerID, s.StoreCode, s.MatchAddressKey, s.Active,
			); err != nil {
				return fmt.Errorf("failed to insert store %d: %w", s.ID, err)
			}
		}

		for _, r := range ds.Routes {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO routes (route_id, region_id, name, active_days, cutoff_time, active)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (route_id) DO NOTHING`,
				r.ID, r.RegionID, r.Name, r.ActiveDays, r.CutoffTime, r.Active,
			); err != nil {
				return fmt.Errorf("failed to insert route %d: %w", r.ID, err)
			}
		}

		for _, a := range ds.Assignments {
			var to any
			if a.EffectiveTo != nil {
				to = a.EffectiveTo.String()
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO store_routes (store_id, route_id, effective_from, effective_to)
				VALUES ($1, $2, $3::date, $4::date)
				ON CONFLICT DO NOTHING`,
				a.StoreID, a.Route.ID, a.EffectiveFrom.String(), to,
			); err != nil {
				return fmt.Errorf("failed to insert route assignment for store %d: %w", a.StoreID, err)
			}
		}

		for _, rec := range ds.Inventory {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO inventory (inventory_id, region_id, location_id, sku_id, on_hand_qty, reserved_qty)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT DO NOTHING`,
				rec.ID, rec.RegionID, rec.LocationID, rec.SKUID, rec.OnHandQty, rec.ReservedQty,
			); err != nil {
				return fmt.Errorf("failed to insert inventory %d: %w", rec.ID, err)
			}
		}

		for _, l := range ds.Lots {
			var expiry any
			if l.ExpiryDate != nil {
				expiry = l.ExpiryDate.String()
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO lots (lot_id, region_id, location_id, sku_id, lot_code, expiry_date, qty, lot_status)
				VALUES ($1, $2, $3, $4, $5, $6::date, $7, $8)
				ON CONFLICT (lot_id) DO NOTHING`,
				l.ID, l.RegionID, l.LocationID, l.SKUID, l.Code, expiry, l.Qty, string(l.Status),
			); err != nil {
				return fmt.Errorf("failed to insert lot %s: %w", l.Code, err)
			}
		}

		for _, m := range ds.Movements {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO movements (movement_id, region_id, movement_type, sku_id,
					from_location_id, to_location_id, qty, reason, created_at_utc)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
				ON CONFLICT (movement_id) DO NOTHING`,
				m.ID, m.RegionID, string(m.Type), m.SKUID, m.FromLocationID, m.ToLocationID, m.Qty, m.Reason, m.CreatedAt,
			); err != nil {
				return fmt.Errorf("failed to insert movement %d: %w", m.ID, err)
			}
		}

		for _, s := range serialTables {
			query := fmt.Sprintf(
				"SELECT setval(pg_get_serial_sequence('%s', '%s'), COALESCE(MAX(%s), 0) + 1, false) FROM %s",
				s.table, s.column, s.column, s.table,
			)
			if _, err := tx.ExecContext(ctx, query); err != nil {
				return fmt.Errorf("failed to reset %s sequence: %w", s.table, err)
			}
		}
		return nil
	})
}
