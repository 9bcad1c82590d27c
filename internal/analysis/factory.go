package analysis

import (
	"fmt"

	"modgate/internal/config"
	"modgate/internal/gate"
)

// NewAnalysisServiceFromConfig creates an AnalysisService implementation based on the config type.
// Every network client is wrapped in a circuit breaker.
func NewAnalysisServiceFromConfig(cfg config.AnalysisConfig, logger gate.Logger) (gate.AnalysisService, error) {
	switch cfg.Type {
	case "http":
		client, err := NewHTTPClient(HTTPOptions{
			BaseURL:        cfg.BaseURL,
			APIKey:         cfg.APIKey,
			RequestTimeout: cfg.RequestTimeout.Duration,
			PollInterval:   cfg.PollInterval.Duration,
		}, logger)
		if err != nil {
			return nil, err
		}
		return NewBreakerService(client, cfg.BreakerFailures, cfg.BreakerTimeout.Duration, logger), nil
	default:
		return nil, fmt.Errorf("unknown analysis service type: %s", cfg.Type)
	}
}
