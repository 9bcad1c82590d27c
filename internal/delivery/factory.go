package delivery

import (
	"fmt"

	"modgate/internal/config"
	"modgate/internal/gate"
)

// NewDeliveryNetworkFromConfig creates a DeliveryNetwork implementation based on the config type.
func NewDeliveryNetworkFromConfig(cfg config.DeliveryConfig, logger gate.Logger) (gate.DeliveryNetwork, error) {
	switch cfg.Type {
	case "http":
		client, err := NewHTTPClient(HTTPOptions{
			BaseURL:        cfg.BaseURL,
			CDNBaseURL:     cfg.CDNBaseURL,
			APIKey:         cfg.APIKey,
			RequestTimeout: cfg.RequestTimeout.Duration,
		}, logger)
		if err != nil {
			return nil, err
		}
		return NewBreakerNetwork(client, cfg.BreakerFailures, cfg.BreakerTimeout.Duration, logger), nil
	default:
		return nil, fmt.Errorf("unknown delivery network type: %s", cfg.Type)
	}
}
