package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"storefront_pay/internal/gateway"
	"storefront_pay/internal/models"
)

const testSecret = "whsec_test"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
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

	if err := db.AutoMigrate(&models.User{}, &models.Order{}, &models.Transaction{}, &models.Refund{}, &models.WebhookEvent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeAdapter speaks the mock webhook format and counts every call.
type fakeAdapter struct {
	mu sync.Mutex

	initiateCalls int
	checkCalls    int
	refundCalls   int
	seq           int

	initiateErr error
	checkErr    error
	checkStatus string
	refundErr   error
}

func (f *fakeAdapter) Name() models.PaymentGateway { return models.PaymentGatewayMock }

func (f *fakeAdapter) InitiatePayment(ctx context.Context, req gateway.PaymentRequest) (*gateway.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initiateCalls++
	if f.initiateErr != nil {
		return nil, f.initiateErr
	}
	f.seq++
	id := fmt.Sprintf("pay_%d", f.seq)
	return &gateway.PaymentIntent{
		PaymentID: id,
		QRCode:    "upi://pay?pa=shop@bank&tr=" + req.Reference,
		DeepLink:  "upi://pay?pa=shop@bank&tr=" + req.Reference,
		Raw:       json.RawMessage(`{"id":"` + id + `"}`),
	}, nil
}

func (f *fakeAdapter) CheckPaymentStatus(ctx context.Context, paymentID string) (*gateway.StatusReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkCalls++
	if f.checkErr != nil {
		return nil, f.checkErr
	}
	status := f.checkStatus
	if status == "" {
		status = "pending"
	}
	return &gateway.StatusReport{RawStatus: status, Raw: json.RawMessage(`{"status":"` + status + `"}`)}, nil
}

func (f *fakeAdapter) ValidateWebhook(payload []byte, signature string) bool {
	return gateway.SignPayload(payload, testSecret) == signature
}

func (f *fakeAdapter) InitiateRefund(ctx context.Context, req gateway.RefundRequest) (*gateway.RefundReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refundCalls++
	if f.refundErr != nil {
		return nil, f.refundErr
	}
	f.seq++
	return &gateway.RefundReport{RefundID: fmt.Sprintf("rfnd_%d", f.seq), Status: "processed"}, nil
}

func (f *fakeAdapter) calls() (initiate, check, refund int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initiateCalls, f.checkCalls, f.refundCalls
}

func (f *fakeAdapter) setCheck(status string, err error) {
	f.mu.Lock()
	f.checkStatus, f.checkErr = status, err
	f.mu.Unlock()
}

type recordingListener struct {
	mu        sync.Mutex
	succeeded []string
	failed    []string
	refunds   []string
}

func (r *recordingListener) PaymentSucceeded(ctx context.Context, tx models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.succeeded = append(r.succeeded, tx.ID)
	return nil
}

func (r *recordingListener) PaymentFailed(ctx context.Context, tx models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, tx.ID)
	return nil
}

func (r *recordingListener) RefundInitiated(ctx context.Context, tx models.Transaction, refund models.Refund) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refunds = append(r.refunds, refund.GatewayRefundID)
	return fmt.Errorf("listener errors are only logged")
}

type fixture struct {
	db       *gorm.DB
	adapter  *fakeAdapter
	clock    *testClock
	listener *recordingListener
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, func(s *GormStore) Store { return s })
}

// newFixtureWithStore lets a test wrap the gorm store before the service
// is built.
func newFixtureWithStore(t *testing.T, wrap func(*GormStore) Store) *fixture {
	t.Helper()
	f := &fixture{
		db:       newTestDB(t),
		adapter:  &fakeAdapter{},
		clock:    newTestClock(),
		listener: &recordingListener{},
	}
	f.svc = NewService(wrap(NewGormStore(f.db)), f.adapter, Config{
		Listeners: []Listener{f.listener},
		Now:       f.clock.Now,
	})
	return f
}

func (f *fixture) seedOrder(t *testing.T, id string, total int64) {
	t.Helper()
	order := models.Order{ID: id, TotalAmount: decimal.NewFromInt(total), Currency: "INR", Status: models.OrderStatusPending}
	if err := f.db.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
}

func (f *fixture) initiate(t *testing.T, orderID string, amount int64) *InitiateResult {
	t.Helper()
	res, err := f.svc.InitiatePayment(context.Background(), InitiateInput{
		OrderID: orderID,
		VPA:     "user@bank",
		Amount:  decimal.NewFromInt(amount),
	})
	if err != nil {
		t.Fatalf("InitiatePayment: %v", err)
	}
	return res
}

func (f *fixture) webhook(t *testing.T, paymentID, status string) (*WebhookResult, error) {
	t.Helper()
	payload := []byte(fmt.Sprintf(`{"payment_id":%q,"status":%q}`, paymentID, status))
	return f.svc.HandleWebhook(context.Background(), models.PaymentGatewayMock, payload, gateway.SignPayload(payload, testSecret))
}

func (f *fixture) transaction(t *testing.T, id string) models.Transaction {
	t.Helper()
	var tx models.Transaction
	if err := f.db.First(&tx, "id = ?", id).Error; err != nil {
		t.Fatalf("load transaction: %v", err)
	}
	return tx
}

func (f *fixture) countTransactions(t *testing.T, orderID string, status models.TransactionStatus) int64 {
	t.Helper()
	var n int64
	f.db.Model(&models.Transaction{}).Where("order_id = ? AND status = ?", orderID, status).Count(&n)
	return n
}

// flakyOrderStore fails the first MarkOrderPaid call.
type flakyOrderStore struct {
	*GormStore
	mu       sync.Mutex
	failures int
}

func (s *flakyOrderStore) MarkOrderPaid(ctx context.Context, orderID string, at time.Time) error {
	s.mu.Lock()
	fail := s.failures > 0
	if fail {
		s.failures--
	}
	s.mu.Unlock()
	if fail {
		return fmt.Errorf("connection reset")
	}
	return s.GormStore.MarkOrderPaid(ctx, orderID, at)
}

func (f *fixture) orderStatus(t *testing.T, id string) models.OrderStatus {
	t.Helper()
	var order models.Order
	if err := f.db.First(&order, "id = ?", id).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	return order.Status
}
