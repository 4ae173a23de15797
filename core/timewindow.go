// Package core is the aggregation and leaderboard engine: it turns
// stored activities into ranked views, contributor profiles and the
// standard computed aggregates.
package core

import (
	"fmt"
	"time"
)

// Window names a standard leaderboard time window.
type Window string

const (
	AllTime Window = "all-time"
	Yearly  Window = "yearly"
	Monthly Window = "monthly"
	Weekly  Window = "weekly"
)

// ParseWindow validates a window name from a flag or request.
func ParseWindow(s string) (Window, error) {
	switch Window(s) {
	case AllTime, Yearly, Monthly, Weekly:
		return Window(s), nil
	default:
		return "", fmt.Errorf("unknown time window %q (want all-time, yearly, monthly or weekly)", s)
	}
}

// TimeFilter selects activities by time: either a named window
// relative to now, or an explicit range when Since/Till are set.
type TimeFilter struct {
	Window Window
	Since  time.Time
	Till   time.Time
}

// TimeRange is a concrete pair of bounds; a zero time means the side
// is unbounded.
type TimeRange struct {
	Since time.Time
	Till  time.Time
}

// Range resolves the filter against a reference time. Explicit bounds
// take precedence over the named window.
func (f TimeFilter) Range(now time.Time) TimeRange {
	if !f.Since.IsZero() || !f.Till.IsZero() {
		return TimeRange{Since: f.Since, Till: f.Till}
	}
	switch f.Window {
	case Yearly:
		return TimeRange{Since: now.AddDate(-1, 0, 0)}
	case Monthly:
		return TimeRange{Since: now.AddDate(0, -1, 0)}
	case Weekly:
		return TimeRange{Since: now.AddDate(0, 0, -7)}
	default:
		return TimeRange{}
	}
}

// Bounds renders the range as the ISO strings the query layer
// compares against; empty string means unbounded.
func (r TimeRange) Bounds() (since, till string) {
	if !r.Since.IsZero() {
		since = r.Since.UTC().Format(time.RFC3339)
	}
	if !r.Till.IsZero() {
		till = r.Till.UTC().Format(time.RFC3339)
	}
	return since, till
}
