package subscription

import (
	"context"
	"time"

	"nyxvpn/internal/domain/entitlement"
)

// Credential is what a panel hands back after provisioning: the public
// subscription id plus the expiry the panel recorded.
type Credential struct {
	SubID     string
	ExpiresAt time.Time
}

// PanelClient provisions and inspects VPN credentials on one x-ui panel
// deployment. Implementations authenticate lazily and retry across the
// panel's known endpoint layouts.
type PanelClient interface {
	// CreateCredential registers a client on the panel's inbound with the
	// given expiry and returns the credential material.
	CreateCredential(ctx context.Context, accountKey string, expiresAt time.Time) (Credential, error)

	// FindCredential looks the account up on the panel. The bool reports
	// whether a usable credential exists; a disabled or expired client counts
	// as absent.
	FindCredential(ctx context.Context, accountKey string) (Credential, bool, error)

	// SubscriptionLink builds the public link for a credential.
	SubscriptionLink(subID string) string

	// Instructions returns the connection instructions for this deployment.
	Instructions(subID string) string
}

// PanelSelector resolves the panel deployment serving a region.
type PanelSelector interface {
	Panel(region entitlement.Region) (PanelClient, error)
}
