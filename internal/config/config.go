// Package config reads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"storefront_pay/internal/gateway"
	"storefront_pay/internal/models"
)

var ErrDatabaseURLMissing = errors.New("DATABASE_URL not set")

// MockGateway holds the fallback credentials used whenever no real gateway
// is active.
type MockGateway struct {
	MerchantID    string
	APIKey        string
	APISecret     string
	WebhookSecret string `validate:"required"`
	BaseURL       string
	Latency       time.Duration `validate:"gte=0"`
}

type Config struct {
	Port        string `validate:"required,numeric"`
	DatabaseURL string
	DBDebug     bool
	RedisURL    string
	// KafkaBrokers is empty when event publishing is disabled.
	KafkaBrokers []string

	CredentialsKey string

	PaymentWindow  time.Duration `validate:"gt=0"`
	GatewayTimeout time.Duration `validate:"gt=0"`
	MockGateway    MockGateway
	PayeeVPA       string
	PayeeName      string

	FirebaseCredentialsPath string
	AppURL                  string

	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=json console"`

	WorkerInterval time.Duration `validate:"gt=0"`
	SweepBatchSize int           `validate:"gt=0"`
}

// Load reads the environment, applies defaults and validates the result.
func Load() (*Config, error) {
	var errs []error
	duration := func(key string, def time.Duration) time.Duration {
		v, err := getDuration(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	integer := func(key string, def int) int {
		v, err := getInt(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DBDebug:      getBool("DB_DEBUG"),
		RedisURL:     os.Getenv("REDIS_URL"),
		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),

		CredentialsKey: os.Getenv("CREDENTIALS_ENCRYPTION_KEY"),

		PaymentWindow:  duration("PAYMENT_WINDOW", 15*time.Minute),
		GatewayTimeout: duration("GATEWAY_TIMEOUT", 10*time.Second),
		MockGateway: MockGateway{
			MerchantID:    getEnv("MOCK_GATEWAY_MERCHANT_ID", "mock_merchant"),
			APIKey:        getEnv("MOCK_GATEWAY_API_KEY", "mock_key"),
			APISecret:     getEnv("MOCK_GATEWAY_API_SECRET", "mock_secret"),
			WebhookSecret: getEnv("MOCK_GATEWAY_WEBHOOK_SECRET", "mock_webhook_secret"),
			BaseURL:       os.Getenv("MOCK_GATEWAY_BASE_URL"),
			Latency:       duration("MOCK_GATEWAY_LATENCY", 0),
		},
		PayeeVPA:  os.Getenv("UPI_PAYEE_VPA"),
		PayeeName: os.Getenv("UPI_PAYEE_NAME"),

		FirebaseCredentialsPath: os.Getenv("FIREBASE_CREDENTIALS_PATH"),
		AppURL:                  getEnv("APP_URL", "http://localhost:8080"),

		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "json")),

		WorkerInterval: duration("WORKER_INTERVAL", time.Minute),
		SweepBatchSize: integer("SWEEP_BATCH_SIZE", 100),
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// RequireDatabase reports an error when no database is configured.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return ErrDatabaseURLMissing
	}
	return nil
}

// FallbackGateway is the mock adapter configuration used by the registry.
func (c *Config) FallbackGateway() gateway.Config {
	return gateway.Config{
		Provider:      models.PaymentGatewayMock,
		APIKey:        c.MockGateway.APIKey,
		APISecret:     c.MockGateway.APISecret,
		MerchantID:    c.MockGateway.MerchantID,
		WebhookSecret: c.MockGateway.WebhookSecret,
		PayeeVPA:      c.PayeeVPA,
		PayeeName:     c.PayeeName,
		BaseURL:       c.MockGateway.BaseURL,
		TestMode:      true,
		Timeout:       c.GatewayTimeout,
	}
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
