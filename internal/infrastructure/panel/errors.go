package panel

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthFailed means the panel rejected the configured credentials.
	ErrAuthFailed = errors.New("panel authentication failed")

	// ErrEndpointNotFound means every known endpoint layout answered 404.
	ErrEndpointNotFound = errors.New("no known panel endpoint layout matched")
)

// ProvisioningError is a panel response that arrived intact but reported
// failure. It is fatal to the calling flow; callers compensate any funds
// already taken.
type ProvisioningError struct {
	Endpoint string
	Message  string
}

func (e *ProvisioningError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("panel rejected request to %s", e.Endpoint)
	}
	return fmt.Sprintf("panel rejected request to %s: %s", e.Endpoint, e.Message)
}
