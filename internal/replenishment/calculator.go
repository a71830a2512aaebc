package replenishment

import (
	"math"

	"github.com/andresuchdata/replenish/internal/domain"
)

// ceilEpsilon absorbs float noise such as 0.1*30 landing just above 3.
const ceilEpsilon = 1e-9

// Metrics is the outcome of one SKU's replenishment calculation.
type Metrics struct {
	ROP            int
	RecommendedQty int
	AdjustedQty    int
	Priority       domain.Priority
}

// Calculator computes reorder points and order quantities.
type Calculator struct{}

func NewCalculator() *Calculator {
	return &Calculator{}
}

// Calculate derives the metrics for a SKU holding onHand units consumed at rateUsed per day.
func (c *Calculator) Calculate(sku domain.SKU, onHand int, rateUsed float64) Metrics {
	m := Metrics{}

	// 1. Reorder point = rate × (lead time + safety stock days)
	m.ROP = ReorderPoint(rateUsed, sku.LeadTimeDays, sku.SafetyStockDays)

	// 2. Raw quantity to get back to the reorder point
	m.RecommendedQty = max(0, m.ROP-onHand)

	// 3. Enforce the supplier minimum, then round up to whole packs
	m.AdjustedQty = AdjustQty(m.RecommendedQty, sku.MOQ, sku.PackSize)

	// 4. Priority from the raw on-hand vs ROP comparison
	m.Priority = PriorityFor(onHand, m.ROP)

	return m
}

// ReorderPoint is ceil(rate × (leadDays + safetyDays)); a zero rate gives zero.
func ReorderPoint(rate float64, leadDays, safetyDays int) int {
	if rate <= 0 {
		return 0
	}
	rop := rate * float64(leadDays+safetyDays)
	return int(math.Ceil(math.Max(0, rop-ceilEpsilon)))
}

// AdjustQty raises a positive raw quantity to moq and rounds it up to a multiple of packSize.
func AdjustQty(raw, moq, packSize int) int {
	if raw <= 0 {
		return 0
	}
	if raw < moq {
		raw = moq
	}
	if packSize < 1 {
		packSize = 1
	}
	return ((raw + packSize - 1) / packSize) * packSize
}

// PriorityFor ranks on-hand stock against the reorder point.
func PriorityFor(onHand, rop int) domain.Priority {
	switch {
	case float64(onHand) < float64(rop)*0.5:
		return domain.PriorityHigh
	case onHand < rop:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}
