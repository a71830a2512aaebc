package classifier

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/schedule"
)

const reasonStoreNotMatched = "Store not matched - requires manual assignment"

// RouteSource lists the route assignments of a store.
type RouteSource interface {
	ListStoreRouteAssignments(ctx context.Context, storeID int64) ([]domain.RouteAssignment, error)
}

// Input is what the classifier needs to know about an order.
type Input struct {
	RegionID  int64
	StoreID   *int64
	OrderedAt time.Time
	Timezone  string
}

// Result is the classification outcome. Reason is empty for REGULAR orders.
type Result struct {
	Type   domain.OrderType
	Reason string
}

// Classifier decides whether an order falls on one of its store's route days.
type Classifier struct {
	routes RouteSource
	calc   *schedule.Calculator
}

func New(routes RouteSource, calc *schedule.Calculator) *Classifier {
	return &Classifier{routes: routes, calc: calc}
}

// Classify returns REGULAR when an active route of the order's region, assigned
// to the store on the order's region-local date, serves the order's
// region-local weekday, EMERGENCY otherwise.
func (c *Classifier) Classify(ctx context.Context, in Input) (Result, error) {
	if in.StoreID == nil {
		return Result{Type: domain.OrderEmergency, Reason: reasonStoreNotMatched}, nil
	}

	local, err := c.calc.LocalTime(in.OrderedAt, in.Timezone)
	if err != nil {
		return Result{}, err
	}
	day := schedule.WeekdayToken(local.Weekday())
	date := civil.DateOf(local)

	assignments, err := c.routes.ListStoreRouteAssignments(ctx, *in.StoreID)
	if err != nil {
		return Result{}, fmt.Errorf("list routes for store %d: %w", *in.StoreID, err)
	}

	for _, a := range assignments {
		if a.Route.RegionID != in.RegionID || !a.Route.Active || !a.Covers(date) {
			continue
		}
		days, err := domain.ParseWeekdays(a.Route.ActiveDays)
		if err != nil {
			// A broken route cannot serve any day.
			continue
		}
		for _, d := range days {
			if d == day {
				return Result{Type: domain.OrderRegular}, nil
			}
		}
	}

	return Result{
		Type:   domain.OrderEmergency,
		Reason: fmt.Sprintf("Order placed outside regular route schedule (%s)", local.Weekday()),
	}, nil
}
