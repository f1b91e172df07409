package payments

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLocalLocker(t *testing.T) {
	l := NewLocalLocker()

	release, err := l.Lock(context.Background(), "order:1", time.Second)
	if err != nil {
		t.Fatalf("first Lock returned error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, "order:1", time.Second); !errors.Is(err, ErrLockBusy) {
		t.Errorf("second Lock error = %v; want ErrLockBusy", err)
	}

	other, err := l.Lock(context.Background(), "order:2", time.Second)
	if err != nil {
		t.Fatalf("Lock on another key returned error: %v", err)
	}
	other()

	release()
	release()

	again, err := l.Lock(context.Background(), "order:1", time.Second)
	if err != nil {
		t.Fatalf("Lock after release returned error: %v", err)
	}
	again()
}
