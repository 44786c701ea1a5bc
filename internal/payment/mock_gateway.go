package payment

import (
	"context"
	"math/rand"
	"strings"

	"storefront-be/internal/logger"
	"storefront-be/internal/utils"

	"go.uber.org/zap"
)

// Roll returns a number in [0, 100).
type Roll func() int

// mockGateway succeeds 80% of the time, declines 15% for insufficient funds
// and fails the remaining 5%.
type mockGateway struct {
	roll Roll
}

// NewMockGateway returns the simulated gateway. A nil roll uses math/rand.
func NewMockGateway(roll Roll) Gateway {
	if roll == nil {
		roll = func() int { return rand.Intn(100) }
	}
	return &mockGateway{roll: roll}
}

func (m *mockGateway) Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResult, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "payment"),
		zap.String("gateway", "mock"),
		zap.String("order_ref", req.OrderRef),
		zap.Int64("amount", req.Amount),
	)

	n := m.roll()
	switch {
	case n < 80:
		res := &AuthorizeResult{
			Success:       true,
			TransactionID: utils.GenerateReference("MOCK"),
			Status:        StatusSucceeded,
			Message:       "Payment authorized",
		}
		log.Info("mock payment authorized", zap.String("transaction_id", res.TransactionID))
		return res, nil
	case n < 95:
		log.Info("mock payment declined", zap.String("status", StatusInsufficientFunds))
		return &AuthorizeResult{
			Status:  StatusInsufficientFunds,
			Message: "Insufficient funds",
		}, nil
	default:
		log.Info("mock payment failed", zap.String("status", StatusFailed))
		return &AuthorizeResult{
			Status:  StatusFailed,
			Message: "Payment processing failed",
		}, nil
	}
}

func (m *mockGateway) Refund(ctx context.Context, transactionID string, amount int64) (*RefundResult, error) {
	if strings.TrimSpace(transactionID) == "" {
		return nil, ErrMissingTxID
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	res := &RefundResult{
		Success:       true,
		TransactionID: utils.GenerateReference("MOCKREF"),
		Status:        StatusRefunded,
		Message:       "Refund processed",
	}
	logger.FromCtx(ctx).Info("mock refund processed",
		zap.String("original_transaction_id", transactionID),
		zap.String("refund_id", res.TransactionID),
		zap.Int64("amount", amount),
	)
	return res, nil
}
