package domain

// Store is a retail store supplied by a region.
type Store struct {
	ID              int64  `json:"id" db:"store_id"`
	RegionID        int64  `json:"region_id" db:"region_id" validate:"required"`
	Name            string `json:"name" db:"store_name" validate:"required"`
	CustomerID      string `json:"customer_id,omitempty" db:"customer_id"`
	StoreCode       string `json:"store_code,omitempty" db:"store_code"`
	MatchAddressKey string `json:"match_address_key,omitempty" db:"match_address_key"`
	Active          bool   `json:"active" db:"active"`
}
