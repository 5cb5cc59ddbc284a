package panel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Endpoint layouts observed across x-ui forks and versions, most common
// first. A 404 means "this fork mounts the API elsewhere", so the walk
// continues; any other failure is the panel actually answering and aborts
// the walk.
var addClientPaths = []string{
	"/panel/inbound/addClient",
	"/panel/inbounds/addClient",
	"/api/inbound/addClient",
	"/panel/api/inbounds/addClient",
	"/panel/api/inbound/addClient",
}

var listInboundPaths = []string{
	"/panel/api/inbounds/list",
	"/panel/api/inbound/list",
	"/panel/inbounds/list",
	"/panel/inbound/list",
	"/api/inbounds/list",
}

type requestFunc func(ctx context.Context, endpoint string) (int, []byte, error)

func (c *Client) doWithFallback(ctx context.Context, paths []string, call requestFunc) (*apiResponse, error) {
	for _, path := range paths {
		endpoint := c.base + c.basePath + path

		status, body, err := call(ctx, endpoint)
		if err != nil {
			return nil, fmt.Errorf("panel request to %s failed: %w", path, err)
		}
		if status == http.StatusNotFound {
			c.logger.Debugw("panel endpoint not mounted, trying next layout",
				"panel", c.base, "path", path)
			continue
		}
		if status != http.StatusOK {
			var resp apiResponse
			if err := json.Unmarshal(body, &resp); err == nil && resp.Msg != "" {
				return nil, &ProvisioningError{
					Endpoint: path,
					Message:  fmt.Sprintf("status %d: %s", status, resp.Msg),
				}
			}
			return nil, fmt.Errorf("panel request to %s returned status %d", path, status)
		}

		var resp apiResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("panel response from %s is not valid JSON: %w", path, err)
		}
		return &resp, nil
	}
	return nil, ErrEndpointNotFound
}
