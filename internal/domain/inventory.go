package domain

import (
	"time"

	"cloud.google.com/go/civil"
)

// Location is a stock holding point (warehouse, hub) of one region.
type Location struct {
	ID       int64  `json:"id" db:"location_id"`
	RegionID int64  `json:"region_id" db:"region_id"`
	Name     string `json:"name" db:"name"`
	Active   bool   `json:"active" db:"active"`
}

// InventoryRecord is the stock of one SKU at one location.
type InventoryRecord struct {
	ID          int64     `json:"id" db:"inventory_id"`
	RegionID    int64     `json:"region_id" db:"region_id"`
	LocationID  int64     `json:"location_id" db:"location_id"`
	SKUID       int64     `json:"sku_id" db:"sku_id"`
	OnHandQty   int       `json:"on_hand_qty" db:"on_hand_qty"`
	ReservedQty int       `json:"reserved_qty" db:"reserved_qty" validate:"gte=0"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at_utc"`
}

// LotStatus is the usability state of a lot.
type LotStatus string

const (
	LotAvailable  LotStatus = "AVAILABLE"
	LotQuarantine LotStatus = "QUARANTINE"
	LotDamaged    LotStatus = "DAMAGED"
	LotExpired    LotStatus = "EXPIRED"
)

// Lot is a batch of a SKU sharing one expiry date.
type Lot struct {
	ID         int64       `json:"id"`
	RegionID   int64       `json:"region_id" validate:"required"`
	LocationID int64       `json:"location_id"`
	SKUID      int64       `json:"sku_id" validate:"required"`
	Code       string      `json:"lot_code" validate:"required"`
	ExpiryDate *civil.Date `json:"expiry_date,omitempty"`
	Qty        int         `json:"qty"`
	Status     LotStatus   `json:"status" validate:"required,oneof=AVAILABLE QUARANTINE DAMAGED EXPIRED"`
}

// MovementType classifies stock movements; only OUT feeds consumption rates.
type MovementType string

const (
	MovementPurchase MovementType = "PURCHASE"
	MovementReceive  MovementType = "RECEIVE"
	MovementOut      MovementType = "OUT"
	MovementReturn   MovementType = "RETURN"
	MovementAdjust   MovementType = "ADJUST"
	MovementWriteOff MovementType = "WRITE_OFF"
	MovementTransfer MovementType = "TRANSFER"
)

// Movement is an immutable stock ledger entry.
type Movement struct {
	ID             int64        `json:"id" db:"movement_id"`
	RegionID       int64        `json:"region_id" db:"region_id"`
	Type           MovementType `json:"movement_type" db:"movement_type"`
	SKUID          int64        `json:"sku_id" db:"sku_id"`
	FromLocationID *int64       `json:"from_location_id,omitempty" db:"from_location_id"`
	ToLocationID   *int64       `json:"to_location_id,omitempty" db:"to_location_id"`
	Qty            int          `json:"qty" db:"qty"`
	Reason         string       `json:"reason,omitempty" db:"reason"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at_utc"`
}
