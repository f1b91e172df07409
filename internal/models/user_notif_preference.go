package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

type NotificationChannel string

const (
	NotificationChannelEmail    NotificationChannel = "email"
	NotificationChannelWhatsapp NotificationChannel = "whatsapp"
	NotificationChannelNone     NotificationChannel = "none"
)

const (
	WhatsappTargetTypePersonal = "personal"
	WhatsappTargetTypeGroup    = "group"
)

// UserNotifPreference selects how payment receipts reach a user. Users
// without a row get email.
type UserNotifPreference struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	UserID uint `gorm:"uniqueIndex" json:"user_id"`

	Channel NotificationChannel `gorm:"type:varchar(20);default:'email'" json:"channel"`

	WhatsappTargetType string `gorm:"type:varchar(20);default:'personal'" json:"whatsapp_target_type"` // 'personal' or 'group'
	WhatsappGroupID    string `gorm:"type:varchar(100)" json:"whatsapp_group_id"`
}

var ErrMissingWhatsappTarget = errors.New("whatsapp target is empty")

// WhatsappChatID resolves the chat a WhatsApp receipt goes to: the configured
// group, or the user's own phone number.
func (p UserNotifPreference) WhatsappChatID(phone string) (string, error) {
	if p.WhatsappTargetType == WhatsappTargetTypeGroup {
		if p.WhatsappGroupID == "" {
			return "", fmt.Errorf("group ID: %w", ErrMissingWhatsappTarget)
		}
		if strings.HasSuffix(p.WhatsappGroupID, "@g.us") {
			return p.WhatsappGroupID, nil
		}
		return p.WhatsappGroupID + "@g.us", nil
	}
	if phone == "" {
		return "", fmt.Errorf("phone number: %w", ErrMissingWhatsappTarget)
	}
	return phone, nil
}
