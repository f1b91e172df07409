package gateway

import (
	"errors"
	"fmt"

	"storefront_pay/internal/models"
)

var (
	ErrUnknownProvider    = errors.New("unknown payment provider")
	ErrMissingCredentials = errors.New("missing gateway credentials")
	ErrNoPayment          = errors.New("no payment recorded for order")
)

// Error is returned by every adapter operation that fails.
type Error struct {
	Provider models.PaymentGateway
	Op       string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapErr(provider models.PaymentGateway, op string, err error) error {
	if err == nil {
		return nil
	}
	var gerr *Error
	if errors.As(err, &gerr) {
		return err
	}
	return &Error{Provider: provider, Op: op, Err: err}
}
