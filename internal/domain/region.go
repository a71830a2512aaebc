package domain

// StoreMatchMethod selects how incoming orders are mapped to stores.
type StoreMatchMethod string

const (
	MatchByCustomer StoreMatchMethod = "CUSTOMER"
	MatchByAddress  StoreMatchMethod = "ADDRESS"
	MatchByTag      StoreMatchMethod = "TAG"
)

// Region is an operating region with its own timezone and daily job schedule.
type Region struct {
	ID               int64            `json:"id" db:"region_id"`
	Name             string           `json:"name" db:"name" validate:"required"`
	Timezone         string           `json:"timezone" db:"timezone" validate:"required,timezone"`
	RunDays          string           `json:"run_days" db:"run_days" validate:"required,weekdays"`
	AnalyticsTime    string           `json:"analytics_time" db:"analytics_time" validate:"required,hhmm"`
	DocsTime         string           `json:"docs_time" db:"docs_time" validate:"required,hhmm"`
	SlackWebhookURL  string           `json:"-" db:"slack_webhook_url" validate:"omitempty,url"`
	ShopDomain       string           `json:"shop_domain" db:"shop_domain"`
	AdminToken       string           `json:"-" db:"admin_token"`
	StoreMatchMethod StoreMatchMethod `json:"store_match_method" db:"store_match_method" validate:"omitempty,oneof=CUSTOMER ADDRESS TAG"`
	Active           bool             `json:"active" db:"active"`
}

// NewRegion validates r and fills the default match method.
func NewRegion(r Region) (Region, error) {
	if r.StoreMatchMethod == "" {
		r.StoreMatchMethod = MatchByCustomer
	}
	if err := Validate(r); err != nil {
		return Region{}, err
	}
	return r, nil
}
