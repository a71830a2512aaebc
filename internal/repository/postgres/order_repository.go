package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/andresuchdata/replenish/internal/domain"
)

func (r *Repository) LatestOrderTime(ctx context.Context, regionID int64) (time.Time, bool, error) {
	var latest sql.NullTime
	err := r.db.GetContext(ctx, &latest, `SELECT MAX(order_date_at_utc) FROM orders WHERE region_id = $1`, regionID)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("latest order time: %w", err)
	}
	if !latest.Valid {
		return time.Time{}, false, nil
	}
	return latest.Time.UTC(), true, nil
}

func (r *Repository) OrderExists(ctx context.Context, regionID int64, externalID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (SELECT 1 FROM orders WHERE region_id = $1 AND external_order_id = $2)`,
		regionID, externalID)
	if err != nil {
		return false, fmt.Errorf("order exists: %w", err)
	}
	return exists, nil
}

func (r *Repository) CreateOrder(ctx context.Context, o *domain.Order) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.QueryRowxContext(ctx, `
			INSERT INTO orders (region_id, store_id, external_order_id, order_number, order_date_at_utc,
				order_type, reason, currency, total_amount, status, customer_id, shipping_address_json, tags)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			RETURNING order_id`,
			o.RegionID, o.StoreID, o.ExternalID, o.OrderNumber, o.OrderedAt.UTC(),
			string(o.OrderType), o.Reason, o.Currency, o.TotalAmount, o.Status, o.CustomerID,
			o.ShippingAddress, o.Tags,
		).Scan(&o.ID)
		if err != nil {
			return fmt.Errorf("insert order %s: %w", o.ExternalID, err)
		}

		for i := range o.Lines {
			l := &o.Lines[i]
			l.OrderID = o.ID
			err := tx.QueryRowxContext(ctx, `
				INSERT INTO order_lines (order_id, sku_id, sku_code_snapshot, name_snapshot, qty,
					unit_price_snapshot, external_line_id)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				RETURNING order_line_id`,
				l.OrderID, l.SKUID, l.SKUCode, l.Name, l.Qty, l.UnitPrice, l.ExternalLineID,
			).Scan(&l.ID)
			if err != nil {
				return fmt.Errorf("insert line %s of order %s: %w", l.SKUCode, o.ExternalID, err)
			}
		}
		return nil
	})
}

func (r *Repository) ListOrders(ctx context.Context, regionID int64, from, to time.Time) ([]domain.Order, error) {
	var orders []domain.Order
	err := r.db.SelectContext(ctx, &orders, `
		SELECT order_id, region_id, store_id, external_order_id, order_number, order_date_at_utc,
		       order_type, reason, currency, total_amount, status, customer_id, shipping_address_json, tags
		FROM orders
		WHERE region_id = $1 AND order_date_at_utc >= $2 AND order_date_at_utc < $3
		ORDER BY order_date_at_utc, order_id`, regionID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]int64, len(orders))
	index := make(map[int64]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	var lines []domain.OrderLine
	err = r.db.SelectContext(ctx, &lines, `
		SELECT order_line_id, order_id, sku_id, sku_code_snapshot, name_snapshot, qty,
		       unit_price_snapshot, external_line_id
		FROM order_lines
		WHERE order_id = ANY($1)
		ORDER BY order_id, order_line_id`, pq.Array(ids))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("list order lines: %w", err)
	}
	for _, l := range lines {
		i := index[l.OrderID]
		orders[i].Lines = append(orders[i].Lines, l)
	}
	return orders, nil
}
