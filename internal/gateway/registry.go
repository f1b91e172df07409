package gateway

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"storefront_pay/internal/models"
)

// SettingsSource returns the decrypted configuration of the single active
// gateway setting, or nil when none is active.
type SettingsSource interface {
	ActiveGateway(ctx context.Context) (*Config, error)
}

// Registry picks the adapter the service talks to. The first Resolve call
// decides for the lifetime of the Registry.
type Registry struct {
	source      SettingsSource
	fallback    Config
	mockLatency time.Duration
	logger      *zap.Logger

	once    sync.Once
	adapter Adapter
}

// NewRegistry takes the environment-level mock credentials used whenever no
// real provider can be built.
func NewRegistry(source SettingsSource, fallback Config, mockLatency time.Duration, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	fallback.Provider = models.PaymentGatewayMock
	return &Registry{
		source:      source,
		fallback:    fallback,
		mockLatency: mockLatency,
		logger:      logger,
	}
}

func (r *Registry) Resolve(ctx context.Context) Adapter {
	r.once.Do(func() {
		r.adapter = r.build(ctx)
	})
	return r.adapter
}

func (r *Registry) mock() Adapter {
	return NewMockAdapter(r.fallback, r.mockLatency)
}

func (r *Registry) build(ctx context.Context) Adapter {
	if r.source == nil {
		r.logger.Info("no gateway settings source, using mock gateway")
		return r.mock()
	}

	cfg, err := r.source.ActiveGateway(ctx)
	if err != nil {
		r.logger.Error("failed to load active gateway setting, falling back to mock gateway", zap.Error(err))
		return r.mock()
	}
	if cfg == nil || cfg.Provider == models.PaymentGatewayMock {
		r.logger.Info("using mock gateway")
		return r.mock()
	}

	adapter, err := New(*cfg)
	if err != nil {
		r.logger.Error("failed to build gateway adapter, falling back to mock gateway",
			zap.String("provider", string(cfg.Provider)),
			zap.Error(err),
		)
		return r.mock()
	}

	r.logger.Info("gateway adapter ready",
		zap.String("provider", string(adapter.Name())),
		zap.Bool("test_mode", cfg.TestMode),
	)
	return adapter
}
