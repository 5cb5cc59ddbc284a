package panel

import (
	"fmt"

	"nyxvpn/internal/application/subscription"
	"nyxvpn/internal/domain/entitlement"
	sharedConfig "nyxvpn/internal/shared/config"
	"nyxvpn/internal/shared/logger"
)

// Registry maps regions to their panel clients.
type Registry struct {
	clients map[entitlement.Region]subscription.PanelClient
}

func NewRegistry(cfg sharedConfig.PanelsConfig, log logger.Interface) (*Registry, error) {
	primary, err := NewClient(cfg.Primary, log.Named("panel.primary"))
	if err != nil {
		return nil, fmt.Errorf("primary panel: %w", err)
	}
	secondary, err := NewClient(cfg.Secondary, log.Named("panel.secondary"))
	if err != nil {
		return nil, fmt.Errorf("secondary panel: %w", err)
	}

	return &Registry{
		clients: map[entitlement.Region]subscription.PanelClient{
			entitlement.RegionPrimary:   primary,
			entitlement.RegionSecondary: secondary,
		},
	}, nil
}

func (r *Registry) Panel(region entitlement.Region) (subscription.PanelClient, error) {
	client, ok := r.clients[region]
	if !ok {
		return nil, fmt.Errorf("no panel configured for region %q", region)
	}
	return client, nil
}
