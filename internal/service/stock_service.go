package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/inventory"
	"github.com/andresuchdata/replenish/internal/repository"
)

var (
	ErrInvalidTransfer   = errors.New("invalid transfer")
	ErrInsufficientStock = errors.New("insufficient stock at source location")
)

// StockRepository is what stock operations read and write.
type StockRepository interface {
	inventory.Store
	GetRegion(ctx context.Context, id int64) (domain.Region, error)
	GetLocation(ctx context.Context, id int64) (domain.Location, error)
	InsertMovement(ctx context.Context, m *domain.Movement) error
}

// TransferInput moves qty of a SKU between two locations of a region.
type TransferInput struct {
	FromLocationID int64  `json:"from_location_id" validate:"required,gt=0"`
	ToLocationID   int64  `json:"to_location_id" validate:"required,gt=0,nefield=FromLocationID"`
	SKUID          int64  `json:"sku_id" validate:"required,gt=0"`
	Qty            int    `json:"qty" validate:"required,gt=0"`
	Reason         string `json:"reason"`
}

// StockService records stock movements and keeps inventory rows in step.
type StockService struct {
	repo StockRepository
	agg  *inventory.Aggregator
}

func NewStockService(repo StockRepository) *StockService {
	return &StockService{repo: repo, agg: inventory.NewAggregator(repo)}
}

// Transfer records a TRANSFER movement, then decrements the source row and
// increments (or creates) the destination row. Both locations must be active
// locations of the region and the source must already hold at least qty on hand.
func (s *StockService) Transfer(ctx context.Context, regionID int64, in TransferInput) (domain.Movement, error) {
	if err := domain.Validate(in); err != nil {
		return domain.Movement{}, fmt.Errorf("%w: %v", ErrInvalidTransfer, err)
	}
	if _, err := s.repo.GetRegion(ctx, regionID); err != nil {
		return domain.Movement{}, err
	}
	for _, id := range []int64{in.FromLocationID, in.ToLocationID} {
		if err := s.checkLocation(ctx, regionID, id); err != nil {
			return domain.Movement{}, err
		}
	}

	src, err := s.repo.FindInventory(ctx, regionID, in.FromLocationID, in.SKUID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && src.OnHandQty < in.Qty) {
		return domain.Movement{}, ErrInsufficientStock
	}
	if err != nil {
		return domain.Movement{}, err
	}

	reason := in.Reason
	if reason == "" {
		reason = "Manual transfer"
	}
	mv := domain.Movement{
		RegionID:       regionID,
		Type:           domain.MovementTransfer,
		SKUID:          in.SKUID,
		FromLocationID: &in.FromLocationID,
		ToLocationID:   &in.ToLocationID,
		Qty:            in.Qty,
		Reason:         reason,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.repo.InsertMovement(ctx, &mv); err != nil {
		return domain.Movement{}, err
	}
	if err := s.agg.ApplyMovementDelta(ctx, regionID, in.FromLocationID, in.SKUID, -in.Qty); err != nil {
		return domain.Movement{}, err
	}
	if err := s.agg.ApplyMovementDelta(ctx, regionID, in.ToLocationID, in.SKUID, in.Qty); err != nil {
		return domain.Movement{}, err
	}

	log.Info().
		Int64("region_id", regionID).
		Int64("sku_id", in.SKUID).
		Int64("from", in.FromLocationID).
		Int64("to", in.ToLocationID).
		Int("qty", in.Qty).
		Msg("stock transferred")
	return mv, nil
}

func (s *StockService) checkLocation(ctx context.Context, regionID, locationID int64) error {
	loc, err := s.repo.GetLocation(ctx, locationID)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: unknown location %d", ErrInvalidTransfer, locationID)
	}
	if err != nil {
		return err
	}
	if loc.RegionID != regionID || !loc.Active {
		return fmt.Errorf("%w: location %d is not an active location of region %d", ErrInvalidTransfer, locationID, regionID)
	}
	return nil
}

// Summary returns the aggregated stock of a SKU in a region.
func (s *StockService) Summary(ctx context.Context, regionID, skuID int64) (inventory.Summary, error) {
	if _, err := s.repo.GetRegion(ctx, regionID); err != nil {
		return inventory.Summary{}, err
	}
	return s.agg.Summarize(ctx, regionID, skuID)
}
