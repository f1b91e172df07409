// Package apperr carries the error taxonomy shared by the payment core and the
// HTTP layer. Every error leaving a public service operation is an *Error.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	Validation Kind = "validation"
	Conflict   Kind = "conflict"
	NotFound   Kind = "not_found"
	Gateway    Kind = "gateway"
	Signature  Kind = "signature"
	State      Kind = "state"
	Internal   Kind = "internal"

	// Caller authentication, kept apart from Signature which is reserved
	// for webhook verification.
	Unauthenticated Kind = "unauthenticated"
	Forbidden       Kind = "forbidden"
)

type Error struct {
	Kind    Kind
	Message string            // safe to show to the caller
	Fields  map[string]string // optional field-level validation messages
	Err     error             // underlying cause, for logs only
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func ValidationErr(msg string, fields map[string]string) *Error {
	return &Error{Kind: Validation, Message: msg, Fields: fields}
}

func ConflictErr(msg string) *Error {
	return &Error{Kind: Conflict, Message: msg}
}

func NotFoundErr(msg string) *Error {
	return &Error{Kind: NotFound, Message: msg}
}

func SignatureErr(msg string) *Error {
	return &Error{Kind: Signature, Message: msg}
}

func UnauthenticatedErr(msg string) *Error {
	return &Error{Kind: Unauthenticated, Message: msg}
}

func ForbiddenErr(msg string) *Error {
	return &Error{Kind: Forbidden, Message: msg}
}

func StateErr(msg string) *Error {
	return &Error{Kind: State, Message: msg}
}

// GatewayErr wraps an adapter or transport failure.
func GatewayErr(msg string, err error) *Error {
	return &Error{Kind: Gateway, Message: msg, Err: err}
}

// Wrap turns an unexpected error into an internal one with a generic message.
// Errors that already carry a kind pass through untouched.
func Wrap(err error) *Error {
	if err == nil {
		return nil
	}
	if ae, ok := As(err); ok {
		return ae
	}
	return &Error{Kind: Internal, Message: "Something went wrong. Please try again later.", Err: err}
}

func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// KindOf returns the kind of err, or Internal for foreign errors.
func KindOf(err error) Kind {
	if ae, ok := As(err); ok {
		return ae.Kind
	}
	return Internal
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case Validation:
		return http.StatusBadRequest
	case Signature, Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case State:
		return http.StatusUnprocessableEntity
	case Gateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func PublicMessage(err error) string {
	if ae, ok := As(err); ok && ae.Message != "" {
		return ae.Message
	}
	return "Something went wrong. Please try again later."
}
