package entitlement

import (
	"context"
	"time"
)

// Window pairs an account with its subscription end for notification sweeps.
type Window struct {
	TgID  int64
	EndAt time.Time
}

// Repository is the durable source of truth for entitlements, at most one
// row per account.
type Repository interface {
	// Set creates or replaces the account's entitlement row.
	Set(ctx context.Context, e *Entitlement) error

	// Get returns the account's entitlement, or nil when absent. A row whose
	// EndAt has passed is deleted and reported as absent.
	Get(ctx context.Context, tgID int64) (*Entitlement, error)

	// Clear removes the row. Clearing an absent row is not an error.
	Clear(ctx context.Context, tgID int64) error

	// PurgeExpired deletes rows whose EndAt lies before the cutoff and
	// returns how many were removed.
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)

	// ListWindows returns every row carrying an end timestamp.
	ListWindows(ctx context.Context) ([]Window, error)
}

// Cache is a TTL-bounded mirror of the Repository keyed by account id.
// Implementations degrade silently when the cache transport is unreachable:
// reads report a miss, writes are dropped.
type Cache interface {
	Set(ctx context.Context, e *Entitlement) error
	Get(ctx context.Context, tgID int64) (*Entitlement, error)
	Clear(ctx context.Context, tgID int64) error
}
