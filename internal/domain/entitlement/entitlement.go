// Package entitlement holds the durable record of a subscription's validity
// window and connection material.
package entitlement

import (
	"time"

	"nyxvpn/internal/shared/biztime"
)

// Region is the provisioning target, one of two fixed panel deployments.
type Region string

const (
	RegionPrimary   Region = "fi"
	RegionSecondary Region = "nl"
)

func (r Region) IsValid() bool {
	return r == RegionPrimary || r == RegionSecondary
}

// Entitlement is one account's subscription window. EndAt is the sole
// authority for "active": a row whose EndAt has passed is logically absent
// and gets cleared by the first reader that observes it.
type Entitlement struct {
	TgID             int64
	StartAt          time.Time
	EndAt            time.Time
	SubscriptionLink string
	Instructions     string
	Region           Region
	UpdatedAt        time.Time
}

// IsActive reports whether the window still covers now.
func (e *Entitlement) IsActive(now time.Time) bool {
	return !e.EndAt.IsZero() && !biztime.EnsureUTC(e.EndAt).Before(biztime.EnsureUTC(now))
}

// TTL returns how long the window remains valid from now. Zero or negative
// means the entitlement must not be cached.
func (e *Entitlement) TTL(now time.Time) time.Duration {
	return biztime.EnsureUTC(e.EndAt).Sub(biztime.EnsureUTC(now))
}

// Normalize rewrites all timestamps to UTC. Called whenever an entitlement
// crosses the store or cache boundary.
func (e *Entitlement) Normalize() {
	e.StartAt = biztime.EnsureUTC(e.StartAt)
	e.EndAt = biztime.EnsureUTC(e.EndAt)
	e.UpdatedAt = biztime.EnsureUTC(e.UpdatedAt)
	if e.Region == "" {
		e.Region = RegionPrimary
	}
}
