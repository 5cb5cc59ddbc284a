// Package biztime provides time utilities for entitlement bookkeeping.
// All storage, caching and comparison happen in UTC. Timestamps read back
// from the database or cache carry whatever zone the driver attached, so
// every value crossing the store/cache boundary goes through EnsureUTC
// before being compared against NowUTC.
package biztime

import "time"

// NowUTC returns the current time in UTC.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// EnsureUTC normalizes a timestamp to UTC. A zero value stays zero.
func EnsureUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// EnsureUTCPtr normalizes an optional timestamp to UTC.
func EnsureUTCPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// Until returns the duration from now until t. Negative when t has passed.
func Until(t time.Time) time.Duration {
	return EnsureUTC(t).Sub(NowUTC())
}
