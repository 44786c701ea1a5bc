package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for callers and the transport layer.
type Kind string

const (
	KindValidation             Kind = "validation"
	KindNotFound               Kind = "not_found"
	KindUnauthorized           Kind = "unauthorized"
	KindForbidden              Kind = "forbidden"
	KindInvalidStateTransition Kind = "invalid_state_transition"
	KindInsufficientStock      Kind = "insufficient_stock"
	KindPaymentDeclined        Kind = "payment_declined"
	KindInternal               Kind = "internal"
)

// Error is the typed failure returned by every service operation.
type Error struct {
	Op      string
	Kind    Kind
	Code    string
	Message string
	Fields  map[string]string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WithOp returns a copy of the error tagged with the operation name.
func (e *Error) WithOp(op string) *Error {
	cp := *e
	cp.Op = op
	return &cp
}

func newError(kind Kind, code, message string, err error) *Error {
	if code == "" {
		code = string(kind)
	}
	if message == "" {
		message = code
	}
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

// Validation reports malformed input. fields maps field names to messages.
func Validation(code, message string, fields map[string]string) *Error {
	e := newError(KindValidation, code, message, nil)
	if len(fields) > 0 {
		e.Fields = make(map[string]string, len(fields))
		for k, v := range fields {
			e.Fields[k] = v
		}
	}
	return e
}

func NotFound(message string, err error) *Error {
	return newError(KindNotFound, "not_found", message, err)
}

func Unauthorized(message string) *Error {
	return newError(KindUnauthorized, "unauthorized", message, nil)
}

func Forbidden(message string) *Error {
	return newError(KindForbidden, "forbidden", message, nil)
}

func InvalidTransition(code, message string, err error) *Error {
	return newError(KindInvalidStateTransition, code, message, err)
}

// InsufficientStock names the product whose stock could not cover the request.
func InsufficientStock(productName string, err error) *Error {
	e := newError(KindInsufficientStock, "insufficient_stock",
		fmt.Sprintf("insufficient stock for %s", productName), err)
	e.Details = map[string]any{"product": productName}
	return e
}

// PaymentDeclined passes the gateway status and message through untouched.
func PaymentDeclined(status, message string) *Error {
	e := newError(KindPaymentDeclined, "payment_declined", message, nil)
	e.Details = map[string]any{"gatewayStatus": status}
	return e
}

// Internal hides err from callers; it is only kept for server-side logging.
func Internal(err error) *Error {
	return newError(KindInternal, "internal", "internal server error", err)
}

// KindOf returns the Kind carried by err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// As extracts the typed error, wrapping untyped errors as internal.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
