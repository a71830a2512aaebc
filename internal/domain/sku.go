package domain

// SKU is a stock keeping unit with its ordering constraints.
type SKU struct {
	ID              int64  `json:"id" db:"sku_id"`
	Code            string `json:"code" db:"sku_code" validate:"required"`
	Name            string `json:"name" db:"name"`
	PackSize        int    `json:"pack_size" db:"pack_size" validate:"gte=1"`
	MOQ             int    `json:"moq" db:"moq" validate:"gte=1"`
	LeadTimeDays    int    `json:"lead_time_days" db:"lead_time_days" validate:"gte=0"`
	SafetyStockDays int    `json:"safety_stock_days" db:"safety_stock_days" validate:"gte=0"`
	ExpiryManaged   bool   `json:"expiry_managed" db:"expiry_managed"`
	ABCGrade        string `json:"abc_grade,omitempty" db:"abc_grade" validate:"omitempty,oneof=A B C"`
	Active          bool   `json:"active" db:"active"`
}

// NewSKU validates s.
func NewSKU(s SKU) (SKU, error) {
	if err := Validate(s); err != nil {
		return SKU{}, err
	}
	return s, nil
}
