// Package ratelimit throttles write-class memory operations for a single
// session process.
package ratelimit

import "fmt"

// DefaultLimit is the ceiling on write-class calls per session process. The
// process lifetime is the reset boundary; there is no timer and no persistence.
const DefaultLimit = 100

const warnFraction = 0.8

// Counter tracks write-class calls for the lifetime of one session process.
// Each session owns its counter and only touches it from its own sequential
// calls, so no internal locking is needed. Construct one per session instead
// of sharing a global.
type Counter struct {
	limit int
	calls int
}

// New creates a counter with the given limit, or DefaultLimit if non-positive.
func New(limit int) *Counter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Counter{limit: limit}
}

// Check reports whether another write-class call is allowed, with a warning
// string once usage is high. It has no side effects: callers call Increment
// only after the operation actually proceeds, so rejected operations do not
// consume budget.
func (c *Counter) Check() (allowed bool, warning string) {
	if c.calls >= c.limit {
		return false, fmt.Sprintf("rate limit reached: %d/%d write calls used this session; further writes are blocked", c.calls, c.limit)
	}
	if float64(c.calls) >= warnFraction*float64(c.limit) {
		return true, fmt.Sprintf("approaching rate limit: %d/%d write calls used this session", c.calls, c.limit)
	}
	return true, ""
}

// Increment records one completed write-class call.
func (c *Counter) Increment() { c.calls++ }

// Status is the read-only usage report for the rate limiter.
type Status struct {
	CallsMade      int     `json:"calls_made"`
	Limit          int     `json:"limit"`
	Remaining      int     `json:"remaining"`
	PercentageUsed float64 `json:"percentage_used"`
	Status         string  `json:"status"`
}

// Status reports current usage: "ok" below 80% of budget, "warning" from
// 80-99%, "blocked" at or above 100%.
func (c *Counter) Status() Status {
	remaining := c.limit - c.calls
	if remaining < 0 {
		remaining = 0
	}
	pct := float64(c.calls) / float64(c.limit) * 100
	state := "ok"
	switch {
	case c.calls >= c.limit:
		state = "blocked"
	case pct >= warnFraction*100:
		state = "warning"
	}
	return Status{
		CallsMade:      c.calls,
		Limit:          c.limit,
		Remaining:      remaining,
		PercentageUsed: pct,
		Status:         state,
	}
}

// LimitError reports a write-class call rejected by the limiter. It is a
// structured admission rejection, never escalated to a process-fatal error.
type LimitError struct {
	Warning string
}

func (e *LimitError) Error() string { return e.Warning }
