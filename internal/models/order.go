package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order is owned by the storefront. The payment core only reads it and marks
// it completed once a payment succeeds.
type Order struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID      *uint           `gorm:"index" json:"user_id,omitempty"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(15,2)" json:"total_amount"`
	Currency    string          `gorm:"type:char(3);default:'INR'" json:"currency"`
	Status      OrderStatus     `gorm:"type:varchar(20);default:'pending'" json:"status"`
	PaidAt      *time.Time      `json:"paid_at,omitempty"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
