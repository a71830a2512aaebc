package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderType is assigned once when an order is classified.
type OrderType string

const (
	OrderRegular   OrderType = "REGULAR"
	OrderEmergency OrderType = "EMERGENCY"
	// OrderExtra is only ever set by an operator override.
	OrderExtra OrderType = "EXTRA"
)

// Order is a commerce-platform order owned by a region.
type Order struct {
	ID              int64           `json:"id" db:"order_id"`
	RegionID        int64           `json:"region_id" db:"region_id" validate:"required"`
	StoreID         *int64          `json:"store_id,omitempty" db:"store_id"`
	ExternalID      string          `json:"external_id" db:"external_order_id" validate:"required"`
	OrderNumber     string          `json:"order_number" db:"order_number"`
	OrderedAt       time.Time       `json:"ordered_at" db:"order_date_at_utc" validate:"required"`
	OrderType       OrderType       `json:"order_type" db:"order_type" validate:"required,oneof=REGULAR EMERGENCY EXTRA"`
	Reason          string          `json:"reason,omitempty" db:"reason"`
	Currency        string          `json:"currency" db:"currency"`
	TotalAmount     decimal.Decimal `json:"total_amount" db:"total_amount"`
	Status          string          `json:"status" db:"status"`
	CustomerID      string          `json:"customer_id,omitempty" db:"customer_id"`
	ShippingAddress string          `json:"shipping_address,omitempty" db:"shipping_address_json"`
	Tags            string          `json:"tags,omitempty" db:"tags"`
	Lines           []OrderLine     `json:"lines,omitempty" db:"-"`
}

// OrderLine is a single line item; SKUID is nil when the code is unknown.
type OrderLine struct {
	ID             int64           `json:"id" db:"order_line_id"`
	OrderID        int64           `json:"order_id" db:"order_id"`
	SKUID          *int64          `json:"sku_id,omitempty" db:"sku_id"`
	SKUCode        string          `json:"sku_code" db:"sku_code_snapshot" validate:"required"`
	Name           string          `json:"name" db:"name_snapshot"`
	Qty            int             `json:"qty" db:"qty" validate:"gte=0"`
	UnitPrice      decimal.Decimal `json:"unit_price" db:"unit_price_snapshot"`
	ExternalLineID string          `json:"external_line_id,omitempty" db:"external_line_id"`
}

// NewOrder validates o and its lines.
func NewOrder(o Order) (Order, error) {
	if err := Validate(o); err != nil {
		return Order{}, err
	}
	for _, l := range o.Lines {
		if err := Validate(l); err != nil {
			return Order{}, err
		}
	}
	return o, nil
}
