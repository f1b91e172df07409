// Package bootstrap wires the shared runtime pieces used by the cmd binaries.
package bootstrap

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront_pay/internal/config"
	"storefront_pay/internal/gateway"
	"storefront_pay/internal/logging"
	"storefront_pay/internal/payments"
	"storefront_pay/internal/services"
	"storefront_pay/internal/tasks"
)

// Load reads .env (when present) and the environment, and builds the logger.
// It exits the process on invalid configuration.
func Load() (*config.Config, *zap.Logger) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	return cfg, logger
}

// OpenDatabase connects to postgres and optionally runs migrations.
func OpenDatabase(cfg *config.Config, logger *zap.Logger, migrate bool) (*gorm.DB, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	db, err := services.InitDB(cfg.DatabaseURL, logging.GormLevel(cfg.LogLevel, cfg.DBDebug), logger)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := services.AutoMigrate(db, logger); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// SettingsRepo returns the encrypted gateway settings store, or nil when no
// encryption key is configured.
func SettingsRepo(cfg *config.Config, db *gorm.DB) (*services.GatewaySettingsRepo, error) {
	if cfg.CredentialsKey == "" {
		return nil, nil
	}
	cipher, err := services.NewCredentialCipher(cfg.CredentialsKey)
	if err != nil {
		return nil, err
	}
	return services.NewGatewaySettingsRepo(db, cipher), nil
}

// Payments resolves the active gateway once and builds the payment service
// with its lock and event listeners. The returned func releases connections.
func Payments(ctx context.Context, cfg *config.Config, db *gorm.DB, logger *zap.Logger) (*payments.Service, func(), error) {
	var closers []func() error
	cleanup := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("failed to close resource", zap.Error(err))
			}
		}
	}

	var source gateway.SettingsSource
	repo, err := SettingsRepo(cfg, db)
	if err != nil {
		logger.Error("gateway settings unavailable, using mock gateway", zap.Error(err))
	} else if repo != nil {
		source = repo
	} else {
		logger.Warn("CREDENTIALS_ENCRYPTION_KEY not set, gateway settings are ignored")
	}
	adapter := gateway.NewRegistry(source, cfg.FallbackGateway(), cfg.MockGateway.Latency, logger).Resolve(ctx)
	logger.Info("payment gateway selected", zap.String("provider", string(adapter.Name())))

	svcCfg := payments.Config{
		Window: cfg.PaymentWindow,
		Logger: logger,
	}
	if cfg.RedisURL != "" {
		cache, err := services.NewRedisCache(cfg.RedisURL, logger)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, cache.Close)
		svcCfg.Locker = cache
	} else {
		logger.Warn("REDIS_URL not set, order locks are local to this process")
	}

	svc := payments.NewService(payments.NewGormStore(db), adapter, svcCfg)
	svc.AddListener(tasks.NewReceiptScheduler(db))

	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := services.NewKafkaPublisher(cfg.KafkaBrokers, logger)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, publisher.Close)
		svc.AddListener(publisher)
	}

	return svc, cleanup, nil
}
