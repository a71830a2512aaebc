package domain

import "cloud.google.com/go/civil"

// Route is a delivery route served on a fixed set of weekdays.
type Route struct {
	ID         int64  `json:"id" db:"route_id"`
	RegionID   int64  `json:"region_id" db:"region_id" validate:"required"`
	Name       string `json:"name" db:"name" validate:"required"`
	ActiveDays string `json:"active_days" db:"active_days" validate:"required,weekdays"`
	CutoffTime string `json:"cutoff_time,omitempty" db:"cutoff_time" validate:"omitempty,hhmm"`
	Active     bool   `json:"active" db:"active"`
}

// RouteAssignment binds a store to a route for a date window.
// A nil EffectiveTo means the assignment is open-ended.
type RouteAssignment struct {
	StoreID       int64       `json:"store_id"`
	Route         Route       `json:"route"`
	EffectiveFrom civil.Date  `json:"effective_from"`
	EffectiveTo   *civil.Date `json:"effective_to,omitempty"`
}

// Covers reports whether d falls inside the assignment window (inclusive on both ends).
func (a RouteAssignment) Covers(d civil.Date) bool {
	if d.Before(a.EffectiveFrom) {
		return false
	}
	return a.EffectiveTo == nil || !d.After(*a.EffectiveTo)
}
