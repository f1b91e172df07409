package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"storefront_pay/internal/models"
)

var testNow = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	err = db.AutoMigrate(
		&models.User{},
		&models.UserNotifPreference{},
		&models.Order{},
		&models.Transaction{},
		&models.ScheduledTask{},
		&models.ScheduledTaskHistory{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *fakeMailer) SendEmail(to []string, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, strings.Join(to, ",")+"|"+subject+"|"+body)
	return nil
}

type fakeMessenger struct {
	mu    sync.Mutex
	chats []string
	texts []string
	err   error
}

func (m *fakeMessenger) SendMessage(ctx context.Context, chatID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.chats = append(m.chats, chatID)
	m.texts = append(m.texts, text)
	return nil
}

type stubSweeper struct {
	expireLimit    int
	reconcileLimit int
	n              int
	err            error
}

func (s *stubSweeper) ExpireStale(ctx context.Context, limit int) (int, error) {
	s.expireLimit = limit
	return s.n, s.err
}

func (s *stubSweeper) ReconcilePending(ctx context.Context, limit int) (int, error) {
	s.reconcileLimit = limit
	return s.n, s.err
}

var errBoom = errors.New("boom")

// seedPaidTransaction creates a user with the given preference, an order and
// a successful transaction for it.
func seedPaidTransaction(t *testing.T, db *gorm.DB, pref *models.UserNotifPreference) models.Transaction {
	t.Helper()
	user := models.User{Name: "Asha", Phone: "9876543210", Email: "asha@example.com"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if pref != nil {
		pref.UserID = user.ID
		if err := db.Create(pref).Error; err != nil {
			t.Fatalf("seed preference: %v", err)
		}
	}
	order := models.Order{ID: "order-1", UserID: &user.ID, TotalAmount: decimal.NewFromInt(500), Currency: "INR", Status: models.OrderStatusCompleted}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	tx := models.Transaction{
		ID:                   "tx-1",
		OrderID:              order.ID,
		UserID:               &user.ID,
		Provider:             models.PaymentGatewayMock,
		GatewayTransactionID: "mock_pay_0001",
		VPA:                  "asha@okbank",
		Amount:               decimal.NewFromInt(500),
		Currency:             "INR",
		Status:               models.TransactionStatusSuccess,
		ExpiresAt:            testNow.Add(15 * time.Minute),
	}
	if err := db.Create(&tx).Error; err != nil {
		t.Fatalf("seed transaction: %v", err)
	}
	return tx
}

func newReceiptDef(db *gorm.DB, mailer Mailer, messenger Messenger) *SendReceiptTaskDef {
	return &SendReceiptTaskDef{
		db:       db,
		mailer:   mailer,
		whatsapp: messenger,
		log:      zap.NewNop(),
		appURL:   "https://shop.example.com/",
		now:      func() time.Time { return testNow },
	}
}

func countTasks(t *testing.T, db *gorm.DB, name string) int64 {
	t.Helper()
	var n int64
	db.Model(&models.ScheduledTask{}).Where("task_name = ?", name).Count(&n)
	return n
}
