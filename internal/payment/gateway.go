// Package payment is the boundary to external payment providers.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront-be/internal/config"
)

// Gateway authorizes charges and refunds them. Transport failures are
// returned as errors; declines come back as results.
type Gateway interface {
	Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResult, error)
	Refund(ctx context.Context, transactionID string, amount int64) (*RefundResult, error)
}

var (
	ErrUnknownProvider = errors.New("unknown payment provider")
	ErrInvalidAmount   = errors.New("payment amount must be greater than zero")
	ErrMissingTxID     = errors.New("gateway transaction id is required")
)

// NewGateway builds the gateway selected by PAYMENT_PROVIDER.
func NewGateway(cfg *config.Config) (Gateway, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.PaymentProvider)) {
	case "", "mock":
		return NewMockGateway(nil), nil
	case "xendit":
		return NewXenditGateway(cfg.XenditSecretKey), nil
	case "stripe":
		return NewStripeGateway(StripeGatewayConfig{APIKey: cfg.StripeSecretKey})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.PaymentProvider)
	}
}
