package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/repository"
)

// Store is the inventory slice of the data-access layer.
type Store interface {
	ListInventory(ctx context.Context, regionID, skuID int64) ([]domain.InventoryRecord, error)
	FindInventory(ctx context.Context, regionID, locationID, skuID int64) (domain.InventoryRecord, error)
	IncrementOnHand(ctx context.Context, inventoryID int64, delta int) error
	InsertInventory(ctx context.Context, rec *domain.InventoryRecord) error
}

// LocationQty is one location's contribution to a summary.
type LocationQty struct {
	LocationID int64 `json:"location_id"`
	OnHand     int   `json:"on_hand"`
	Reserved   int   `json:"reserved"`
}

// Summary is the stock of a SKU across every location of a region.
// Available is not clamped and can be negative.
type Summary struct {
	OnHand      int           `json:"on_hand"`
	Reserved    int           `json:"reserved"`
	Available   int           `json:"available"`
	PerLocation []LocationQty `json:"per_location"`
}

// Aggregator sums inventory rows and applies stock movements.
type Aggregator struct {
	store Store
}

func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store}
}

// Summarize returns a zero summary when the region holds no rows for the SKU.
func (a *Aggregator) Summarize(ctx context.Context, regionID, skuID int64) (Summary, error) {
	rows, err := a.store.ListInventory(ctx, regionID, skuID)
	if err != nil {
		return Summary{}, fmt.Errorf("list inventory for sku %d: %w", skuID, err)
	}

	var s Summary
	for _, r := range rows {
		s.OnHand += r.OnHandQty
		s.Reserved += r.ReservedQty
		s.PerLocation = append(s.PerLocation, LocationQty{
			LocationID: r.LocationID,
			OnHand:     r.OnHandQty,
			Reserved:   r.ReservedQty,
		})
	}
	s.Available = s.OnHand - s.Reserved
	return s, nil
}

// ApplyMovementDelta adds delta to an existing row, which may go negative.
// A missing row is created with on_hand = max(0, delta) and nothing reserved.
func (a *Aggregator) ApplyMovementDelta(ctx context.Context, regionID, locationID, skuID int64, delta int) error {
	rec, err := a.store.FindInventory(ctx, regionID, locationID, skuID)
	switch {
	case err == nil:
		if err := a.store.IncrementOnHand(ctx, rec.ID, delta); err != nil {
			return fmt.Errorf("update inventory %d: %w", rec.ID, err)
		}
		return nil
	case errors.Is(err, repository.ErrNotFound):
		rec = domain.InventoryRecord{
			RegionID:   regionID,
			LocationID: locationID,
			SKUID:      skuID,
			OnHandQty:  max(0, delta),
		}
		if err := a.store.InsertInventory(ctx, &rec); err != nil {
			return fmt.Errorf("insert inventory for sku %d at location %d: %w", skuID, locationID, err)
		}
		return nil
	default:
		return fmt.Errorf("find inventory for sku %d at location %d: %w", skuID, locationID, err)
	}
}
