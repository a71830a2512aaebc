package domain

import (
	"time"

	"cloud.google.com/go/civil"
)

// Forecast is the per-day consumption estimate for a region and SKU.
type Forecast struct {
	RegionID   int64      `json:"region_id"`
	SKUID      int64      `json:"sku_id"`
	Date       civil.Date `json:"forecast_date"`
	Rate30     float64    `json:"daily_rate_30"`
	Rate60     float64    `json:"daily_rate_60"`
	Rate90     float64    `json:"daily_rate_90"`
	RateUsed   float64    `json:"daily_rate_used"`
	Calculated time.Time  `json:"calculated_at"`
}

// Priority ranks a replenishment recommendation.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// Recommendation is the replenishment suggestion for a region and SKU on a date.
type Recommendation struct {
	RegionID       int64      `json:"region_id"`
	SKUID          int64      `json:"sku_id"`
	SKUCode        string     `json:"sku_code"`
	SKUName        string     `json:"sku_name"`
	Date           civil.Date `json:"recommendation_date"`
	OnHandQty      int        `json:"on_hand_qty"`
	DailyRate      float64    `json:"daily_rate"`
	ROP            int        `json:"rop"`
	RecommendedQty int        `json:"recommended_qty"`
	AdjustedQty    int        `json:"adjusted_qty"`
	Priority       Priority   `json:"priority"`
	Calculated     time.Time  `json:"calculated_at"`
}

// RiskLevel is the deadstock tier of a lot.
type RiskLevel string

const (
	RiskHigh RiskLevel = "HIGH"
	RiskMed  RiskLevel = "MED"
	RiskLow  RiskLevel = "LOW"
)

// RiskAction is the suggested response to a deadstock risk.
type RiskAction string

const (
	ActionPromoUrgent    RiskAction = "PROMO_URGENT"
	ActionPromo          RiskAction = "PROMO"
	ActionBundle         RiskAction = "BUNDLE"
	ActionStopPurchase   RiskAction = "STOP_PURCHASE"
	ActionMonitorClosely RiskAction = "MONITOR_CLOSELY"
	ActionMonitor        RiskAction = "MONITOR"
)

// DeadstockRisk scores one lot against its remaining shelf life.
type DeadstockRisk struct {
	RegionID         int64      `json:"region_id"`
	SKUID            int64      `json:"sku_id"`
	SKUCode          string     `json:"sku_code"`
	SKUName          string     `json:"sku_name"`
	LotID            int64      `json:"lot_id"`
	LotCode          string     `json:"lot_code"`
	Date             civil.Date `json:"analysis_date"`
	ExpiryDate       civil.Date `json:"expiry_date"`
	DaysToExpiry     int        `json:"days_to_expiry"`
	CurrentQty       int        `json:"current_qty"`
	ExpectedConsume  float64    `json:"expected_consume"`
	ExpectedLeftover float64    `json:"expected_leftover"`
	RiskLevel        RiskLevel  `json:"risk_level"`
	SuggestedAction  RiskAction `json:"suggested_action"`
	Calculated       time.Time  `json:"calculated_at"`
}

// EmergencyKPI counts a region's orders by type for one day.
type EmergencyKPI struct {
	RegionID        int64      `json:"region_id"`
	Date            civil.Date `json:"kpi_date"`
	TotalOrders     int        `json:"total_orders"`
	EmergencyOrders int        `json:"emergency_orders"`
	ExtraOrders     int        `json:"extra_orders"`
	RegularOrders   int        `json:"regular_orders"`
	EmergencyRate   float64    `json:"emergency_rate"`
}
