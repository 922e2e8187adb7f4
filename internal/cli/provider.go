package cli

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ashalaginvimeo/AS-test/internal/auth"
	"github.com/ashalaginvimeo/AS-test/internal/config"
	"github.com/ashalaginvimeo/AS-test/internal/gateway"
	"github.com/ashalaginvimeo/AS-test/internal/llm"
)

// newProvider is swapped in tests
var newProvider = llm.New

// resolveProvider picks the configured provider, or the stored default,
// falling back to the first provider that has a key. No key anywhere is fatal.
func resolveProvider(ctx context.Context, cfg config.Config, manager *auth.Manager) (llm.Provider, error) {
	explicit := cfg.Provider != ""
	id := manager.GetDefaultProvider()
	if explicit {
		parsed, err := llm.ParseProviderID(cfg.Provider)
		if err != nil {
			return nil, err
		}
		id = parsed
	}

	key, err := manager.GetAPIKey(id)
	if err != nil {
		if explicit {
			return nil, err
		}
		connected := manager.ListConnected()
		if len(connected) == 0 {
			return nil, fmt.Errorf("no LLM providers connected: %w", err)
		}
		id = connected[0]
		if key, err = manager.GetAPIKey(id); err != nil {
			return nil, err
		}
	}

	provider, err := newProvider(ctx, id, key, cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s provider: %w", id, err)
	}
	return provider, nil
}

// buildGateway wires credentials, provider and metrics into a gateway
func (o *rootOptions) buildGateway(ctx context.Context, logger *zap.Logger, reg prometheus.Registerer) (*gateway.Gateway, error) {
	manager, err := o.authManager()
	if err != nil {
		return nil, err
	}
	provider, err := resolveProvider(ctx, o.cfg, manager)
	if err != nil {
		return nil, err
	}
	logger.Info("using provider",
		zap.String("provider", string(provider.ID())),
		zap.String("model", provider.DefaultModel()),
	)

	g, err := gateway.New(provider,
		gateway.WithLogger(logger),
		gateway.WithRegisterer(reg),
		gateway.WithMaxTokens(o.cfg.MaxTokens),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway: %w", err)
	}
	return g, nil
}
