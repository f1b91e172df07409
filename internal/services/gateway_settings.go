package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"storefront_pay/internal/gateway"
	"storefront_pay/internal/models"
)

var ErrSettingNotFound = errors.New("gateway setting not found")

const defaultGatewayTimeoutSeconds = 30

// GatewaySettingsRepo stores provider settings with encrypted credentials
// and serves the active one to the gateway registry.
type GatewaySettingsRepo struct {
	db     *gorm.DB
	cipher *CredentialCipher
}

func NewGatewaySettingsRepo(db *gorm.DB, cipher *CredentialCipher) *GatewaySettingsRepo {
	return &GatewaySettingsRepo{db: db, cipher: cipher}
}

// GatewaySettingInput carries plaintext credentials. Empty credential fields
// keep the stored value, as do a nil TestMode, TimeoutSeconds <= 0 and
// MaxRetries < 0. New settings start in test mode.
type GatewaySettingInput struct {
	Provider       models.PaymentGateway
	APIKey         string
	APISecret      string
	MerchantID     string
	WebhookSecret  string
	PayeeVPA       string
	PayeeName      string
	TestMode       *bool
	TimeoutSeconds int
	MaxRetries     int
}

func (r *GatewaySettingsRepo) Save(ctx context.Context, in GatewaySettingInput) (*models.GatewaySetting, error) {
	switch in.Provider {
	case models.PaymentGatewayMock, models.PaymentGatewayRazorpay, models.PaymentGatewayMidtrans:
	default:
		return nil, fmt.Errorf("%w: %q", gateway.ErrUnknownProvider, in.Provider)
	}

	var setting models.GatewaySetting
	err := r.db.WithContext(ctx).Where("provider = ?", in.Provider).First(&setting).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	setting.Provider = in.Provider

	secrets := []struct {
		plain  string
		target *string
	}{
		{in.APIKey, &setting.APIKey},
		{in.APISecret, &setting.APISecret},
		{in.MerchantID, &setting.MerchantID},
		{in.WebhookSecret, &setting.WebhookSecret},
	}
	for _, s := range secrets {
		if s.plain == "" {
			continue
		}
		enc, err := r.cipher.Encrypt(s.plain)
		if err != nil {
			return nil, err
		}
		*s.target = enc
	}

	if in.PayeeVPA != "" {
		setting.PayeeVPA = in.PayeeVPA
	}
	if in.PayeeName != "" {
		setting.PayeeName = in.PayeeName
	}
	switch {
	case in.TestMode != nil:
		setting.IsTestMode = *in.TestMode
	case setting.ID == 0:
		setting.IsTestMode = true
	}
	if in.TimeoutSeconds > 0 {
		setting.TimeoutSeconds = in.TimeoutSeconds
	}
	if setting.TimeoutSeconds <= 0 {
		setting.TimeoutSeconds = defaultGatewayTimeoutSeconds
	}
	if in.MaxRetries >= 0 {
		setting.MaxRetries = in.MaxRetries
	}

	if err := r.db.WithContext(ctx).Save(&setting).Error; err != nil {
		return nil, err
	}
	return &setting, nil
}

// Activate makes provider the only active setting.
func (r *GatewaySettingsRepo) Activate(ctx context.Context, provider models.PaymentGateway) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.GatewaySetting{}).Where("is_active = ?", true).Update("is_active", false).Error; err != nil {
			return err
		}
		res := tx.Model(&models.GatewaySetting{}).Where("provider = ?", provider).Update("is_active", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrSettingNotFound
		}
		return nil
	})
}

// Deactivate turns every setting off; the registry then uses the mock gateway.
func (r *GatewaySettingsRepo) Deactivate(ctx context.Context) error {
	return r.db.WithContext(ctx).Model(&models.GatewaySetting{}).
		Where("is_active = ?", true).
		Update("is_active", false).Error
}

func (r *GatewaySettingsRepo) List(ctx context.Context) ([]models.GatewaySetting, error) {
	var settings []models.GatewaySetting
	err := r.db.WithContext(ctx).Order("provider asc").Find(&settings).Error
	return settings, err
}

// ActiveGateway implements gateway.SettingsSource.
func (r *GatewaySettingsRepo) ActiveGateway(ctx context.Context) (*gateway.Config, error) {
	var setting models.GatewaySetting
	err := r.db.WithContext(ctx).Where("is_active = ?", true).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	cfg := &gateway.Config{
		Provider:   setting.Provider,
		PayeeVPA:   setting.PayeeVPA,
		PayeeName:  setting.PayeeName,
		TestMode:   setting.IsTestMode,
		Timeout:    time.Duration(setting.TimeoutSeconds) * time.Second,
		MaxRetries: setting.MaxRetries,
	}
	fields := []struct {
		enc    string
		target *string
		name   string
	}{
		{setting.APIKey, &cfg.APIKey, "api_key"},
		{setting.APISecret, &cfg.APISecret, "api_secret"},
		{setting.MerchantID, &cfg.MerchantID, "merchant_id"},
		{setting.WebhookSecret, &cfg.WebhookSecret, "webhook_secret"},
	}
	for _, f := range fields {
		plain, err := r.cipher.Decrypt(f.enc)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", setting.Provider, f.name, err)
		}
		*f.target = plain
	}
	return cfg, nil
}
