package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"storefront_pay/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(&models.GatewaySetting{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestSettingsRepo(t *testing.T) (*GatewaySettingsRepo, *gorm.DB) {
	t.Helper()
	cipher, err := NewCredentialCipher("test-encryption-key-123")
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}
	db := newTestDB(t)
	return NewGatewaySettingsRepo(db, cipher), db
}

func TestGatewaySettingsNoActive(t *testing.T) {
	repo, _ := newTestSettingsRepo(t)
	cfg, err := repo.ActiveGateway(context.Background())
	if err != nil || cfg != nil {
		t.Errorf("ActiveGateway = %+v, %v; want nil, nil", cfg, err)
	}
}

func TestGatewaySettingsSaveAndActivate(t *testing.T) {
	repo, db := newTestSettingsRepo(t)
	ctx := context.Background()

	_, err := repo.Save(ctx, GatewaySettingInput{
		Provider:      models.PaymentGatewayRazorpay,
		APIKey:        "rzp_test_key",
		APISecret:     "rzp_secret",
		WebhookSecret: "whsec",
		PayeeVPA:      "shop@okaxis",
		PayeeName:     "Shop",
		MaxRetries:    3,
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	var stored models.GatewaySetting
	db.First(&stored, "provider = ?", models.PaymentGatewayRazorpay)
	if strings.Contains(stored.APISecret, "rzp_secret") || stored.APISecret == "" {
		t.Errorf("api secret stored as %q", stored.APISecret)
	}
	if stored.TimeoutSeconds != 30 {
		t.Errorf("timeout = %d; want default 30", stored.TimeoutSeconds)
	}

	if err := repo.Activate(ctx, models.PaymentGatewayRazorpay); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	cfg, err := repo.ActiveGateway(ctx)
	if err != nil {
		t.Fatalf("ActiveGateway: %v", err)
	}
	if cfg.Provider != models.PaymentGatewayRazorpay || cfg.APIKey != "rzp_test_key" || cfg.APISecret != "rzp_secret" || cfg.WebhookSecret != "whsec" {
		t.Errorf("decrypted config = %+v", cfg)
	}
	if cfg.Timeout != 30*time.Second || cfg.MaxRetries != 3 || !cfg.TestMode || cfg.PayeeVPA != "shop@okaxis" {
		t.Errorf("config limits = %+v", cfg)
	}
}

func TestGatewaySettingsSingleActive(t *testing.T) {
	repo, db := newTestSettingsRepo(t)
	ctx := context.Background()

	for _, p := range []models.PaymentGateway{models.PaymentGatewayRazorpay, models.PaymentGatewayMidtrans} {
		if _, err := repo.Save(ctx, GatewaySettingInput{Provider: p, APISecret: "s", MaxRetries: -1}); err != nil {
			t.Fatalf("Save %s: %v", p, err)
		}
	}
	if err := repo.Activate(ctx, models.PaymentGatewayRazorpay); err != nil {
		t.Fatalf("Activate razorpay: %v", err)
	}
	if err := repo.Activate(ctx, models.PaymentGatewayMidtrans); err != nil {
		t.Fatalf("Activate midtrans: %v", err)
	}

	var active int64
	db.Model(&models.GatewaySetting{}).Where("is_active = ?", true).Count(&active)
	if active != 1 {
		t.Errorf("active settings = %d; want 1", active)
	}
	cfg, _ := repo.ActiveGateway(ctx)
	if cfg == nil || cfg.Provider != models.PaymentGatewayMidtrans {
		t.Errorf("active = %+v; want midtrans", cfg)
	}

	if err := repo.Deactivate(ctx); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if cfg, _ := repo.ActiveGateway(ctx); cfg != nil {
		t.Errorf("active after Deactivate = %+v", cfg)
	}
}

func TestGatewaySettingsSaveKeepsUnsetCredentials(t *testing.T) {
	repo, _ := newTestSettingsRepo(t)
	ctx := context.Background()

	repo.Save(ctx, GatewaySettingInput{Provider: models.PaymentGatewayMidtrans, APIKey: "client", APISecret: "server", MaxRetries: 2})
	repo.Save(ctx, GatewaySettingInput{Provider: models.PaymentGatewayMidtrans, APIKey: "client-2", MaxRetries: -1})
	repo.Activate(ctx, models.PaymentGatewayMidtrans)

	cfg, err := repo.ActiveGateway(ctx)
	if err != nil {
		t.Fatalf("ActiveGateway: %v", err)
	}
	if cfg.APIKey != "client-2" || cfg.APISecret != "server" || cfg.MaxRetries != 2 {
		t.Errorf("config = %+v", cfg)
	}

	list, _ := repo.List(ctx)
	if len(list) != 1 {
		t.Errorf("settings = %d; want 1", len(list))
	}
}

func TestGatewaySettingsErrors(t *testing.T) {
	repo, _ := newTestSettingsRepo(t)
	ctx := context.Background()

	if _, err := repo.Save(ctx, GatewaySettingInput{Provider: "paypal"}); err == nil {
		t.Error("saved an unknown provider")
	}
	if err := repo.Activate(ctx, models.PaymentGatewayRazorpay); !errors.Is(err, ErrSettingNotFound) {
		t.Errorf("Activate error = %v; want ErrSettingNotFound", err)
	}
}

func TestGatewaySettingsSaveKeepsTestMode(t *testing.T) {
	live, sandbox := false, true
	tests := []struct {
		name     string
		initial  *bool
		update   *bool
		expected bool
	}{
		{name: "new setting defaults to sandbox", initial: nil, update: nil, expected: true},
		{name: "secret rotation keeps live mode", initial: &live, update: nil, expected: false},
		{name: "secret rotation keeps sandbox", initial: &sandbox, update: nil, expected: true},
		{name: "explicit switch to live", initial: &sandbox, update: &live, expected: false},
		{name: "explicit switch to sandbox", initial: &live, update: &sandbox, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, db := newTestSettingsRepo(t)
			ctx := context.Background()

			if _, err := repo.Save(ctx, GatewaySettingInput{Provider: models.PaymentGatewayRazorpay, APISecret: "s", WebhookSecret: "w1", TestMode: tt.initial, MaxRetries: -1}); err != nil {
				t.Fatalf("Save: %v", err)
			}
			if _, err := repo.Save(ctx, GatewaySettingInput{Provider: models.PaymentGatewayRazorpay, WebhookSecret: "w2", TestMode: tt.update, MaxRetries: -1}); err != nil {
				t.Fatalf("Save update: %v", err)
			}

			var stored models.GatewaySetting
			db.First(&stored, "provider = ?", models.PaymentGatewayRazorpay)
			if stored.IsTestMode != tt.expected {
				t.Errorf("IsTestMode = %v; want %v", stored.IsTestMode, tt.expected)
			}

			repo.Activate(ctx, models.PaymentGatewayRazorpay)
			cfg, err := repo.ActiveGateway(ctx)
			if err != nil {
				t.Fatalf("ActiveGateway: %v", err)
			}
			if cfg.WebhookSecret != "w2" || cfg.APISecret != "s" {
				t.Errorf("credentials after update = %+v", cfg)
			}
		})
	}
}
