package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/andresuchdata/replenish/internal/domain"
)

const inventoryColumns = `inventory_id, region_id, location_id, sku_id, on_hand_qty, reserved_qty, updated_at_utc`

func (r *Repository) ListInventory(ctx context.Context, regionID, skuID int64) ([]domain.InventoryRecord, error) {
	var recs []domain.InventoryRecord
	err := r.db.SelectContext(ctx, &recs, `
		SELECT `+inventoryColumns+`
		FROM inventory
		WHERE region_id = $1 AND sku_id = $2
		ORDER BY location_id`, regionID, skuID)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	return recs, nil
}

func (r *Repository) FindInventory(ctx context.Context, regionID, locationID, skuID int64) (domain.InventoryRecord, error) {
	var rec domain.InventoryRecord
	err := r.db.GetContext(ctx, &rec, `
		SELECT `+inventoryColumns+`
		FROM inventory
		WHERE region_id = $1 AND location_id = $2 AND sku_id = $3`, regionID, locationID, skuID)
	if err != nil {
		return domain.InventoryRecord{}, notFound(err)
	}
	return rec, nil
}

func (r *Repository) IncrementOnHand(ctx context.Context, inventoryID int64, delta int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE inventory
		SET on_hand_qty = on_hand_qty + $2, updated_at_utc = now()
		WHERE inventory_id = $1`, inventoryID, delta)
	if err != nil {
		return fmt.Errorf("increment inventory %d: %w", inventoryID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(sql.ErrNoRows)
	}
	return nil
}

func (r *Repository) InsertInventory(ctx context.Context, rec *domain.InventoryRecord) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO inventory (region_id, location_id, sku_id, on_hand_qty, reserved_qty, updated_at_utc)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING inventory_id`,
		rec.RegionID, rec.LocationID, rec.SKUID, rec.OnHandQty, rec.ReservedQty, rec.UpdatedAt,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("insert inventory: %w", err)
	}
	return nil
}

type lotRow struct {
	ID         int64        `db:"lot_id"`
	RegionID   int64        `db:"region_id"`
	LocationID int64        `db:"location_id"`
	SKUID      int64        `db:"sku_id"`
	Code       string       `db:"lot_code"`
	ExpiryDate sql.NullTime `db:"expiry_date"`
	Qty        int          `db:"qty"`
	Status     string       `db:"lot_status"`
}

func (row lotRow) toDomain() domain.Lot {
	lot := domain.Lot{
		ID:         row.ID,
		RegionID:   row.RegionID,
		LocationID: row.LocationID,
		SKUID:      row.SKUID,
		Code:       row.Code,
		Qty:        row.Qty,
		Status:     domain.LotStatus(row.Status),
	}
	if row.ExpiryDate.Valid {
		d := dateOf(row.ExpiryDate.Time)
		lot.ExpiryDate = &d
	}
	return lot
}

func (r *Repository) ListAvailableLots(ctx context.Context, regionID, skuID int64) ([]domain.Lot, error) {
	var rows []lotRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT lot_id, region_id, location_id, sku_id, lot_code, expiry_date, qty, lot_status
		FROM lots
		WHERE region_id = $1 AND sku_id = $2 AND lot_status = $3 AND qty > 0
		ORDER BY expiry_date NULLS LAST, lot_id`, regionID, skuID, string(domain.LotAvailable))
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	lots := make([]domain.Lot, 0, len(rows))
	for _, row := range rows {
		lots = append(lots, row.toDomain())
	}
	return lots, nil
}

func (r *Repository) SumOutbound(ctx context.Context, regionID, skuID int64, since time.Time) (int, error) {
	var total int
	err := r.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(qty), 0)
		FROM movements
		WHERE region_id = $1 AND sku_id = $2 AND movement_type = $3 AND created_at_utc >= $4`,
		regionID, skuID, string(domain.MovementOut), since.UTC())
	if err != nil {
		return 0, fmt.Errorf("sum outbound movements: %w", err)
	}
	return total, nil
}

func (r *Repository) InsertMovement(ctx context.Context, m *domain.Movement) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO movements (region_id, movement_type, sku_id, from_location_id, to_location_id, qty, reason, created_at_utc)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING movement_id`,
		m.RegionID, string(m.Type), m.SKUID, m.FromLocationID, m.ToLocationID, m.Qty, m.Reason, m.CreatedAt.UTC(),
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}
