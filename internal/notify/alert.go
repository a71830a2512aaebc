package notify

import (
	"context"

	"github.com/andresuchdata/replenish/internal/domain"
)

type AlertKind string

const (
	KindStockout  AlertKind = "STOCKOUT"
	KindDeadstock AlertKind = "DEADSTOCK"
)

// Item is one SKU line of an alert. Stockout alerts fill OnHand and ROP;
// deadstock alerts fill the lot and expiry fields.
type Item struct {
	SKUCode          string  `json:"sku_code"`
	Name             string  `json:"name"`
	OnHand           int     `json:"on_hand,omitempty"`
	ROP              int     `json:"rop,omitempty"`
	LotCode          string  `json:"lot_code,omitempty"`
	DaysToExpiry     int     `json:"days_to_expiry,omitempty"`
	ExpectedLeftover float64 `json:"expected_leftover,omitempty"`
	Action           string  `json:"suggested_action,omitempty"`
}

// Alert is a structured notification for one region.
type Alert struct {
	Kind       AlertKind `json:"kind"`
	RegionName string    `json:"region_name"`
	Items      []Item    `json:"items"`
}

// Sender delivers alerts to a destination such as a Slack webhook.
type Sender interface {
	Send(ctx context.Context, destination string, alert Alert) error
}

// StockoutAlert lists recommendations below half their reorder point.
func StockoutAlert(regionName string, recs []domain.Recommendation) Alert {
	a := Alert{Kind: KindStockout, RegionName: regionName}
	for _, r := range recs {
		if r.Priority != domain.PriorityHigh {
			continue
		}
		a.Items = append(a.Items, Item{SKUCode: r.SKUCode, Name: r.SKUName, OnHand: r.OnHandQty, ROP: r.ROP})
	}
	return a
}

// DeadstockAlert lists HIGH risk lots.
func DeadstockAlert(regionName string, risks []domain.DeadstockRisk) Alert {
	a := Alert{Kind: KindDeadstock, RegionName: regionName}
	for _, r := range risks {
		if r.RiskLevel != domain.RiskHigh {
			continue
		}
		a.Items = append(a.Items, Item{
			SKUCode:          r.SKUCode,
			Name:             r.SKUName,
			LotCode:          r.LotCode,
			DaysToExpiry:     r.DaysToExpiry,
			ExpectedLeftover: r.ExpectedLeftover,
			Action:           string(r.SuggestedAction),
		})
	}
	return a
}
