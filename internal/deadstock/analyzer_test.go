package deadstock

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/forecast"
	"github.com/andresuchdata/replenish/internal/repository/memory"
	"github.com/andresuchdata/replenish/internal/schedule"
)

func TestAssess(t *testing.T) {
	tests := []struct {
		name       string
		daysLeft   int
		qty        int
		rate       float64
		wantOK     bool
		wantLevel  domain.RiskLevel
		wantAction domain.RiskAction
	}{
		{"urgent promo", 20, 100, 2, true, domain.RiskHigh, domain.ActionPromoUrgent},
		{"promo", 45, 100, 1, true, domain.RiskHigh, domain.ActionPromo},
		{"bundle", 90, 100, 1, true, domain.RiskHigh, domain.ActionBundle},
		{"stop purchase", 150, 200, 1, true, domain.RiskHigh, domain.ActionStopPurchase},
		{"consumed in time", 20, 100, 10, true, domain.RiskLow, domain.ActionMonitor},
		// 151 days is past both the HIGH and MED windows.
		{"beyond high window", 151, 200, 0.66, true, domain.RiskLow, domain.ActionMonitor},
		{"expires today", 0, 10, 5, true, domain.RiskHigh, domain.ActionPromoUrgent},
		{"at horizon", 180, 10, 0, true, domain.RiskLow, domain.ActionMonitor},
		{"beyond horizon", 200, 100, 0, false, "", ""},
		{"already expired", -1, 100, 0, false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, ok := Assess(tt.daysLeft, tt.qty, tt.rate)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if a.Level != tt.wantLevel || a.Action != tt.wantAction {
				t.Errorf("got %s/%s, want %s/%s", a.Level, a.Action, tt.wantLevel, tt.wantAction)
			}
		})
	}
}

func TestAssessWorkedExample(t *testing.T) {
	a, ok := Assess(20, 100, 2)
	if !ok {
		t.Fatal("expected lot to be scored")
	}
	if a.ExpectedConsume != 40 || a.ExpectedLeftover != 60 {
		t.Errorf("consume/leftover = %v/%v, want 40/60", a.ExpectedConsume, a.ExpectedLeftover)
	}
}

// The MED branch is unreachable: a positive leftover within 150 days is HIGH first,
// and leftover above half the quantity is always positive.
func TestAssessNeverMedWithinHighWindow(t *testing.T) {
	for days := 0; days <= 120; days++ {
		a, _ := Assess(days, 100, 0.1)
		if a.Level == domain.RiskMed {
			t.Fatalf("day %d produced MED", days)
		}
	}
}

func TestAnalyze(t *testing.T) {
	now := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	today := civil.DateOf(now)
	store := memory.New()

	sku := store.AddSKU(domain.SKU{Code: "MILK", Name: "Milk", PackSize: 1, MOQ: 1, ExpiryManaged: true, Active: true})
	plain := store.AddSKU(domain.SKU{Code: "SALT", Name: "Salt", PackSize: 1, MOQ: 1, Active: true})

	in20 := today.AddDays(20)
	in200 := today.AddDays(200)
	expired := today.AddDays(-1)
	store.AddLot(domain.Lot{RegionID: 1, SKUID: sku.ID, Code: "L-20", ExpiryDate: &in20, Qty: 100, Status: domain.LotAvailable})
	store.AddLot(domain.Lot{RegionID: 1, SKUID: sku.ID, Code: "L-200", ExpiryDate: &in200, Qty: 100, Status: domain.LotAvailable})
	store.AddLot(domain.Lot{RegionID: 1, SKUID: sku.ID, Code: "L-OLD", ExpiryDate: &expired, Qty: 100, Status: domain.LotAvailable})
	store.AddLot(domain.Lot{RegionID: 1, SKUID: sku.ID, Code: "L-Q", ExpiryDate: &in20, Qty: 100, Status: domain.LotQuarantine})
	store.AddLot(domain.Lot{RegionID: 1, SKUID: sku.ID, Code: "L-NIL", Qty: 100, Status: domain.LotAvailable})
	store.AddLot(domain.Lot{RegionID: 1, SKUID: plain.ID, Code: "S-1", ExpiryDate: &in20, Qty: 5, Status: domain.LotAvailable})
	store.AddMovement(domain.Movement{RegionID: 1, SKUID: sku.ID, Type: domain.MovementOut, Qty: 60, CreatedAt: now.AddDate(0, 0, -3)})

	calc := schedule.NewCalculator(schedule.FixedClock(now))
	an := NewAnalyzer(store, forecast.NewEngine(store, calc), calc)

	risks, err := an.Analyze(context.Background(), 1, sku, today)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(risks) != 1 {
		t.Fatalf("expected 1 scored lot, got %d: %+v", len(risks), risks)
	}
	r := risks[0]
	if r.LotCode != "L-20" || r.DaysToExpiry != 20 || r.ExpectedConsume != 40 || r.ExpectedLeftover != 60 {
		t.Errorf("unexpected risk row %+v", r)
	}
	if r.RiskLevel != domain.RiskHigh || r.SuggestedAction != domain.ActionPromoUrgent {
		t.Errorf("got %s/%s, want HIGH/PROMO_URGENT", r.RiskLevel, r.SuggestedAction)
	}

	risks, err = an.Analyze(context.Background(), 1, plain, today)
	if err != nil {
		t.Fatalf("Analyze plain: %v", err)
	}
	if len(risks) != 0 {
		t.Errorf("non-expiry-managed sku produced %d rows", len(risks))
	}
}
