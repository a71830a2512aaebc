package schedule

import (
	"errors"
	"sync"
	"time"

	"cloud.google.com/go/civil"

	"github.com/andresuchdata/replenish/internal/domain"
)

// Calculator answers region-local time questions against a Clock.
type Calculator struct {
	clock Clock

	mu        sync.RWMutex
	locations map[string]*time.Location
}

// NewCalculator creates a Calculator. A nil clock means the system clock.
func NewCalculator(clock Clock) *Calculator {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Calculator{
		clock:     clock,
		locations: make(map[string]*time.Location),
	}
}

// Now returns the invocation instant.
func (c *Calculator) Now() time.Time {
	return c.clock.Now()
}

// Location resolves an IANA timezone name.
func (c *Calculator) Location(tz string) (*time.Location, error) {
	c.mu.RLock()
	loc, ok := c.locations[tz]
	c.mu.RUnlock()
	if ok {
		return loc, nil
	}

	if tz == "" {
		return nil, &ConfigError{Field: "timezone", Value: tz, Err: errors.New("empty timezone")}
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, &ConfigError{Field: "timezone", Value: tz, Err: err}
	}

	c.mu.Lock()
	c.locations[tz] = loc
	c.mu.Unlock()
	return loc, nil
}

// LocalTime converts t to the region's timezone.
func (c *Calculator) LocalTime(t time.Time, tz string) (time.Time, error) {
	loc, err := c.Location(tz)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(loc), nil
}

// TodayInRegion is the calendar date in tz at the invocation instant.
func (c *Calculator) TodayInRegion(tz string) (civil.Date, error) {
	local, err := c.LocalTime(c.clock.Now(), tz)
	if err != nil {
		return civil.Date{}, err
	}
	return civil.DateOf(local), nil
}

// DayBounds returns the instants at which date starts and ends in tz.
func (c *Calculator) DayBounds(date civil.Date, tz string) (from, to time.Time, err error) {
	loc, err := c.Location(tz)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	next := date.AddDays(1)
	from = time.Date(date.Year, date.Month, date.Day, 0, 0, 0, 0, loc)
	to = time.Date(next.Year, next.Month, next.Day, 0, 0, 0, 0, loc)
	return from, to, nil
}

// ShouldRunToday reports whether today's region-local weekday is in runDays.
func (c *Calculator) ShouldRunToday(runDays, tz string) (bool, error) {
	days, err := domain.ParseWeekdays(runDays)
	if err != nil {
		return false, &ConfigError{Field: "run_days", Value: runDays, Err: err}
	}
	local, err := c.LocalTime(c.clock.Now(), tz)
	if err != nil {
		return false, err
	}
	today := WeekdayToken(local.Weekday())
	for _, d := range days {
		if d == today {
			return true, nil
		}
	}
	return false, nil
}

// IsPastScheduledTime reports whether the region-local time of day is at or after hhmm.
func (c *Calculator) IsPastScheduledTime(hhmm, tz string) (bool, error) {
	if !domain.IsHHMM(hhmm) {
		return false, &ConfigError{Field: "time", Value: hhmm, Err: errors.New("expected zero-padded HH:MM")}
	}
	local, err := c.LocalTime(c.clock.Now(), tz)
	if err != nil {
		return false, err
	}
	return local.Format("15:04") >= hhmm, nil
}

// DaysToExpiry is the signed number of days from the invocation date to expiry.
// The invocation date is taken in the clock's own location, not a region's.
func (c *Calculator) DaysToExpiry(expiry civil.Date) int {
	return expiry.DaysSince(civil.DateOf(c.clock.Now()))
}

// WeekdayToken returns the three-letter token used in run_days and route active_days.
func WeekdayToken(d time.Weekday) string {
	return d.String()[:3]
}

// ValidateRegion checks every schedule setting of r and returns the first *ConfigError.
func (c *Calculator) ValidateRegion(r domain.Region) error {
	if _, err := c.Location(r.Timezone); err != nil {
		return err
	}
	if _, err := domain.ParseWeekdays(r.RunDays); err != nil {
		return &ConfigError{Field: "run_days", Value: r.RunDays, Err: err}
	}
	if !domain.IsHHMM(r.AnalyticsTime) {
		return &ConfigError{Field: "analytics_time", Value: r.AnalyticsTime, Err: errors.New("expected zero-padded HH:MM")}
	}
	if !domain.IsHHMM(r.DocsTime) {
		return &ConfigError{Field: "docs_time", Value: r.DocsTime, Err: errors.New("expected zero-padded HH:MM")}
	}
	return nil
}
