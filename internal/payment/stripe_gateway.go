package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront-be/internal/logger"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"go.uber.org/zap"
)

type stripeIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type stripeRefundAPI interface {
	New(params *stripe.RefundParams) (*stripe.Refund, error)
}

type StripeGatewayConfig struct {
	APIKey   string
	Currency string
	Backends *stripe.Backends

	intents stripeIntentAPI
	refunds stripeRefundAPI
}

type stripeGateway struct {
	intents  stripeIntentAPI
	refunds  stripeRefundAPI
	currency string
}

func NewStripeGateway(cfg StripeGatewayConfig) (Gateway, error) {
	intents, refunds := cfg.intents, cfg.refunds
	if intents == nil || refunds == nil {
		apiKey := strings.TrimSpace(cfg.APIKey)
		if apiKey == "" {
			return nil, errors.New("stripe: api key is required")
		}
		sc := client.New(apiKey, cfg.Backends)
		intents, refunds = sc.PaymentIntents, sc.Refunds
	}

	currency := strings.ToLower(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	return &stripeGateway{intents: intents, refunds: refunds, currency: currency}, nil
}

// declined converts a card error into a business result. Any other error
// is a transport or configuration failure.
func declined(err error) (status, message string, ok bool) {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) || stripeErr.Type != stripe.ErrorTypeCard {
		return "", "", false
	}
	status = strings.ToUpper(string(stripeErr.DeclineCode))
	if status == "" {
		status = strings.ToUpper(string(stripeErr.Code))
	}
	if status == "" {
		status = StatusFailed
	}
	return status, stripeErr.Msg, true
}

func (s *stripeGateway) Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResult, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	log := logger.FromCtx(ctx).With(
		zap.String("gateway", "stripe"),
		zap.String("order_ref", req.OrderRef),
		zap.Int64("amount", req.Amount),
	)

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(s.currency),
		Confirm:  stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	if pm := strings.TrimSpace(req.Method); pm != "" && pm != MethodCard {
		params.PaymentMethod = stripe.String(pm)
	}
	params.Context = ctx
	if req.OrderRef != "" {
		params.SetIdempotencyKey("authorize-" + req.OrderRef)
	}
	params.AddMetadata("order_ref", req.OrderRef)
	params.AddMetadata("user_id", fmt.Sprint(req.UserID))

	intent, err := s.intents.New(params)
	if err != nil {
		if status, msg, ok := declined(err); ok {
			log.Info("stripe payment declined", zap.String("status", status))
			return &AuthorizeResult{Status: status, Message: msg}, nil
		}
		log.Error("stripe create payment intent failed", zap.Error(err))
		return nil, fmt.Errorf("stripe: create payment intent: %w", err)
	}

	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded, stripe.PaymentIntentStatusRequiresCapture:
		log.Info("stripe payment authorized", zap.String("payment_intent", intent.ID))
		return &AuthorizeResult{
			Success:       true,
			TransactionID: intent.ID,
			Status:        StatusSucceeded,
			Message:       "Payment authorized",
		}, nil
	default:
		msg := "payment was not completed"
		if intent.LastPaymentError != nil && intent.LastPaymentError.Msg != "" {
			msg = intent.LastPaymentError.Msg
		}
		return &AuthorizeResult{
			TransactionID: intent.ID,
			Status:        strings.ToUpper(string(intent.Status)),
			Message:       msg,
		}, nil
	}
}

func (s *stripeGateway) Refund(ctx context.Context, transactionID string, amount int64) (*RefundResult, error) {
	if strings.TrimSpace(transactionID) == "" {
		return nil, ErrMissingTxID
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(transactionID),
		Amount:        stripe.Int64(amount),
	}
	params.Context = ctx

	refund, err := s.refunds.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeInvalidRequest {
			return &RefundResult{Status: strings.ToUpper(string(stripeErr.Code)), Message: stripeErr.Msg}, nil
		}
		logger.FromCtx(ctx).Error("stripe refund failed",
			zap.String("payment_intent", transactionID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("stripe: refund payment intent: %w", err)
	}

	if refund.Status == stripe.RefundStatusFailed || refund.Status == stripe.RefundStatusCanceled {
		return &RefundResult{
			TransactionID: refund.ID,
			Status:        strings.ToUpper(string(refund.Status)),
			Message:       string(refund.FailureReason),
		}, nil
	}

	logger.FromCtx(ctx).Info("stripe refund created",
		zap.String("payment_intent", transactionID),
		zap.String("refund_id", refund.ID),
	)
	return &RefundResult{
		Success:       true,
		TransactionID: refund.ID,
		Status:        StatusRefunded,
		Message:       "Refund processed",
	}, nil
}
