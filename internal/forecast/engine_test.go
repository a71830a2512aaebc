package forecast

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/repository/memory"
	"github.com/andresuchdata/replenish/internal/schedule"
)

var now = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func out(regionID, skuID int64, qty int, daysAgo int) domain.Movement {
	return domain.Movement{
		RegionID:  regionID,
		SKUID:     skuID,
		Type:      domain.MovementOut,
		Qty:       qty,
		CreatedAt: now.AddDate(0, 0, -daysAgo),
	}
}

func TestDailyRate(t *testing.T) {
	store := memory.New()
	store.AddMovement(out(1, 5, 30, 1))
	store.AddMovement(out(1, 5, 30, 45))
	store.AddMovement(out(1, 5, 90, 80))
	store.AddMovement(out(1, 5, 500, 120))
	store.AddMovement(domain.Movement{RegionID: 1, SKUID: 5, Type: domain.MovementReceive, Qty: 1000, CreatedAt: now.AddDate(0, 0, -2)})
	store.AddMovement(out(2, 5, 999, 1))

	e := NewEngine(store, schedule.NewCalculator(schedule.FixedClock(now)))
	ctx := context.Background()

	tests := []struct {
		window int
		want   float64
	}{
		{30, 1},
		{60, 1},
		{90, 150.0 / 90},
	}
	for _, tt := range tests {
		got, err := e.DailyRate(ctx, 1, 5, tt.window)
		if err != nil {
			t.Fatalf("DailyRate(%d): %v", tt.window, err)
		}
		if got != tt.want {
			t.Errorf("DailyRate(%d) = %v, want %v", tt.window, got, tt.want)
		}
	}
}

func TestDailyRateWithoutMovementIsZero(t *testing.T) {
	e := NewEngine(memory.New(), schedule.NewCalculator(schedule.FixedClock(now)))
	for _, w := range []int{Window30, Window60, Window90} {
		got, err := e.DailyRate(context.Background(), 1, 42, w)
		if err != nil {
			t.Fatalf("DailyRate(%d): %v", w, err)
		}
		if got != 0 {
			t.Errorf("DailyRate(%d) = %v, want 0", w, got)
		}
	}
}

func TestRateUsedIsMinimum(t *testing.T) {
	tests := []struct {
		r30, r60, r90, want float64
	}{
		{2.0, 1.5, 3.0, 1.5},
		{0, 4, 4, 0},
		{1, 1, 1, 1},
		{5, 6, 0.25, 0.25},
	}
	for _, tt := range tests {
		if got := RateUsed(tt.r30, tt.r60, tt.r90); got != tt.want {
			t.Errorf("RateUsed(%v, %v, %v) = %v, want %v", tt.r30, tt.r60, tt.r90, got, tt.want)
		}
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	store := memory.New()
	store.AddMovement(out(1, 5, 60, 10))
	store.AddMovement(out(1, 5, 60, 50))
	e := NewEngine(store, schedule.NewCalculator(schedule.FixedClock(now)))
	date := civil.DateOf(now)

	first, err := e.Compute(context.Background(), 1, 5, date)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	second, err := e.Compute(context.Background(), 1, 5, date)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if first != second {
		t.Errorf("Compute not deterministic: %+v vs %+v", first, second)
	}
	if first.Rate30 != 2 || first.Rate60 != 2 || first.RateUsed != 120.0/90 {
		t.Errorf("unexpected rates %+v", first)
	}
}
