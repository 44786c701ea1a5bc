package returns

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"storefront-be/internal/apperror"
	"storefront-be/internal/db"
	"storefront-be/internal/inventory"
	"storefront-be/internal/ledger"
	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"
	"storefront-be/internal/order"
	"storefront-be/internal/payment"
	"storefront-be/internal/utils"

	"github.com/microcosm-cc/bluemonday"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("storefront-be/internal/returns")

type Service interface {
	RequestReturn(ctx context.Context, actor utils.Actor, orderID uint, reason Reason, description string) (*OrderReturn, error)
	// ApproveReturn claims the return, refunds through the gateway when the
	// order was paid there, then records the refund, completes the return,
	// marks the order RETURNED and restocks its lines in one transaction.
	ApproveReturn(ctx context.Context, returnID uint, refundAmount int64, note string) (*OrderReturn, error)
	RejectReturn(ctx context.Context, returnID uint, note string) (*OrderReturn, error)
	GetReturn(ctx context.Context, actor utils.Actor, returnID uint) (*OrderReturn, error)
	ListReturns(ctx context.Context, actor utils.Actor, orderID uint) ([]*OrderReturn, error)
	ListPending(ctx context.Context, limit int) ([]*OrderReturn, error)
}

type service struct {
	db        *sql.DB
	repo      Repository
	orders    order.Repository
	stock     inventory.Ledger
	txs       ledger.Store
	gateway   payment.Gateway
	metrics   *metrics.Recorder
	sanitizer *bluemonday.Policy
}

func NewService(
	database *sql.DB,
	repo Repository,
	orders order.Repository,
	stock inventory.Ledger,
	txs ledger.Store,
	gateway payment.Gateway,
	rec *metrics.Recorder,
) Service {
	return &service{
		db:        database,
		repo:      repo,
		orders:    orders,
		stock:     stock,
		txs:       txs,
		gateway:   gateway,
		metrics:   rec,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

func (s *service) finish(ctx context.Context, span trace.Span, timer *metrics.Timer, op string, err error) error {
	defer span.End()
	timer.Stop(ctx, err)
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return nil
	}

	appErr := apperror.As(err).WithOp(op)
	span.RecordError(appErr)
	span.SetStatus(codes.Error, string(appErr.Kind))

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", op),
		zap.String("kind", string(appErr.Kind)),
		zap.String("code", appErr.Code),
	)
	if appErr.Kind == apperror.KindInternal {
		log.Error("return operation failed", zap.Error(appErr.Err))
	} else {
		log.Warn("return operation rejected", zap.String("reason", appErr.Message))
	}
	return appErr
}

// cleanText strips markup from free text and enforces the length limit on
// the plain result. Empty input yields nil.
func (s *service) cleanText(field, raw string) (*string, error) {
	text := strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(raw)))
	if text == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(text) > MaxTextLength {
		return nil, apperror.Validation("text_too_long",
			fmt.Sprintf("%s must be at most %d characters", field, MaxTextLength),
			map[string]string{field: "too long"})
	}
	return &text, nil
}

func returnNotFound(err error) error {
	if errors.Is(err, ErrReturnNotFound) {
		return apperror.NotFound("return not found", err)
	}
	return apperror.Internal(err)
}

func orderNotFound(err error) error {
	if errors.Is(err, order.ErrOrderNotFound) {
		return apperror.NotFound("order not found", err)
	}
	return apperror.Internal(err)
}

func transitionError(from, to Status, err error) error {
	appErr := apperror.InvalidTransition("invalid_state_transition",
		fmt.Sprintf("return in status %s cannot become %s", from, to), err)
	appErr.Details = map[string]any{"allowed": Transitions.Next(from)}
	return appErr
}

func (s *service) RequestReturn(ctx context.Context, actor utils.Actor, orderID uint, reason Reason, description string) (created *OrderReturn, err error) {
	const op = "returns.RequestReturn"
	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(attribute.Int64("order_id", int64(orderID))))
	timer := s.metrics.StartTimer(op)
	defer func() { err = s.finish(ctx, span, timer, op, err) }()

	if actor.UserID == 0 {
		return nil, apperror.Unauthorized("authentication required")
	}
	if !reason.Valid() {
		return nil, apperror.Validation("invalid_reason", fmt.Sprintf("unknown return reason %q", reason),
			map[string]string{"reason": "unknown"})
	}
	desc, err := s.cleanText("description", description)
	if err != nil {
		return nil, err
	}

	o, err := s.orders.GetByID(ctx, s.db, orderID)
	if err != nil {
		return nil, orderNotFound(err)
	}
	if !actor.CanAccess(o.UserID) {
		return nil, apperror.Forbidden("you are not allowed to return this order")
	}
	if o.Status != order.StatusDelivered {
		return nil, apperror.InvalidTransition("order_not_returnable",
			fmt.Sprintf("only delivered orders can be returned, order is %s", o.Status), nil)
	}

	r := &OrderReturn{
		OrderID:     o.ID,
		UserID:      o.UserID,
		Reason:      reason,
		Description: desc,
		Status:      StatusPending,
	}
	if err := s.repo.Insert(ctx, s.db, r); err != nil {
		if errors.Is(err, ErrReturnAlreadyPending) {
			return nil, apperror.InvalidTransition("return_already_pending", err.Error(), err)
		}
		return nil, apperror.Internal(err)
	}

	logger.FromCtx(ctx).Info("return requested",
		zap.Uint("return_id", r.ID),
		zap.Uint("order_id", r.OrderID),
		zap.String("reason", string(reason)),
	)
	return r, nil
}

func (s *service) ApproveReturn(ctx context.Context, returnID uint, refundAmount int64, note string) (approved *OrderReturn, err error) {
	const op = "returns.ApproveReturn"
	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(
		attribute.Int64("return_id", int64(returnID)),
		attribute.Int64("refund_amount", refundAmount),
	))
	timer := s.metrics.StartTimer(op)
	defer func() { err = s.finish(ctx, span, timer, op, err) }()

	if refundAmount <= 0 {
		return nil, apperror.Validation("invalid_refund_amount", "refund amount must be greater than zero",
			map[string]string{"refundAmount": "must be greater than zero"})
	}
	adminNote, err := s.cleanText("note", note)
	if err != nil {
		return nil, err
	}

	claimed, purchase, err := s.claim(ctx, returnID, refundAmount, adminNote)
	if err != nil {
		return nil, err
	}

	var gatewayRefundID string
	if purchase != nil && purchase.GatewayRef != nil {
		res, err := s.gateway.Refund(ctx, *purchase.GatewayRef, refundAmount)
		if err != nil {
			s.releaseClaim(ctx, claimed)
			return nil, apperror.Internal(fmt.Errorf("gateway refund: %w", err))
		}
		if !res.Success {
			s.releaseClaim(ctx, claimed)
			return nil, apperror.PaymentDeclined(res.Status, res.Message)
		}
		gatewayRefundID = res.TransactionID
	}

	err = db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		r, err := s.repo.GetForUpdate(ctx, tx, returnID)
		if err != nil {
			return returnNotFound(err)
		}
		if err := Transitions.Check(r.Status, StatusCompleted); err != nil {
			return transitionError(r.Status, StatusCompleted, err)
		}

		o, err := s.orders.GetForUpdate(ctx, tx, r.OrderID)
		if err != nil {
			return orderNotFound(err)
		}
		if err := order.Transitions.Check(o.Status, order.StatusReturned); err != nil {
			return apperror.InvalidTransition("order_not_returnable",
				fmt.Sprintf("order in status %s cannot be returned", o.Status), err)
		}

		txn, err := s.txs.Append(ctx, tx, ledger.Entry{
			Type:        ledger.TypeRefund,
			Amount:      refundAmount,
			OrderID:     o.ID,
			UserID:      r.UserID,
			Description: fmt.Sprintf("Refund for return #%d of order #%d", r.ID, o.ID),
			GatewayRef:  gatewayRefundID,
		})
		if err != nil {
			return apperror.Internal(err)
		}

		r.Status = StatusCompleted
		r.RefundAmount = &refundAmount
		r.AdminNote = adminNote
		r.TransactionID = &txn.ID
		if err := s.repo.Resolve(ctx, tx, r, StatusApproved); err != nil {
			return apperror.Internal(err)
		}

		if err := s.orders.UpdateStatus(ctx, tx, o.ID, o.Status, order.StatusReturned); err != nil {
			return apperror.Internal(err)
		}
		if err := s.stock.ReleaseAll(ctx, tx, o.CartLines()); err != nil {
			return apperror.Internal(err)
		}

		approved = r
		return nil
	})
	if err != nil {
		if gatewayRefundID == "" {
			s.releaseClaim(ctx, claimed)
			return nil, err
		}
		// The claim stays APPROVED so the reconciler reports it.
		logger.FromCtx(ctx).Error("gateway refund issued but return not recorded, manual reconciliation required",
			zap.Uint("return_id", returnID),
			zap.String("gateway_refund_id", gatewayRefundID),
			zap.Int64("refund_amount", refundAmount),
			zap.Error(err),
		)
		return nil, err
	}

	s.metrics.ReturnResolved(ctx, "approved")
	logger.FromCtx(ctx).Info("return approved",
		zap.Uint("return_id", approved.ID),
		zap.Uint("order_id", approved.OrderID),
		zap.Int64("refund_amount", refundAmount),
		zap.Uint("transaction_id", *approved.TransactionID),
	)
	return approved, nil
}

// claim moves a PENDING return to APPROVED in its own transaction once the
// order is known to be returnable. Only one caller can win the claim, so at
// most one refund reaches the gateway.
func (s *service) claim(ctx context.Context, returnID uint, refundAmount int64, adminNote *string) (claimed *OrderReturn, purchase *ledger.Transaction, err error) {
	err = db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		r, err := s.repo.GetForUpdate(ctx, tx, returnID)
		if err != nil {
			return returnNotFound(err)
		}
		if err := Transitions.Path(r.Status, StatusApproved, StatusCompleted); err != nil {
			return transitionError(r.Status, StatusApproved, err)
		}

		o, err := s.orders.GetForUpdate(ctx, tx, r.OrderID)
		if err != nil {
			return orderNotFound(err)
		}
		if err := order.Transitions.Check(o.Status, order.StatusReturned); err != nil {
			return apperror.InvalidTransition("order_not_returnable",
				fmt.Sprintf("order in status %s cannot be returned", o.Status), err)
		}

		purchase, err = s.txs.PurchaseFor(ctx, tx, o.ID)
		if err != nil {
			return apperror.Internal(err)
		}

		r.Status = StatusApproved
		r.RefundAmount = &refundAmount
		r.AdminNote = adminNote
		if err := s.repo.Resolve(ctx, tx, r, StatusPending); err != nil {
			if errors.Is(err, ErrStatusChanged) {
				return transitionError(StatusPending, StatusApproved, err)
			}
			return apperror.Internal(err)
		}
		claimed = r
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return claimed, purchase, nil
}

// releaseClaim puts a claimed return back in the admin queue after an
// approval failed without moving money.
func (s *service) releaseClaim(ctx context.Context, claimed *OrderReturn) {
	r := *claimed
	r.Status = StatusPending
	r.RefundAmount = nil
	r.AdminNote = nil
	r.TransactionID = nil
	if err := s.repo.Resolve(ctx, s.db, &r, StatusApproved); err != nil {
		logger.FromCtx(ctx).Error("failed to release return claim",
			zap.Uint("return_id", claimed.ID),
			zap.Error(err),
		)
	}
}

func (s *service) RejectReturn(ctx context.Context, returnID uint, note string) (rejected *OrderReturn, err error) {
	const op = "returns.RejectReturn"
	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(attribute.Int64("return_id", int64(returnID))))
	timer := s.metrics.StartTimer(op)
	defer func() { err = s.finish(ctx, span, timer, op, err) }()

	adminNote, err := s.cleanText("note", note)
	if err != nil {
		return nil, err
	}
	if adminNote == nil {
		return nil, apperror.Validation("note_required", "a note is required to reject a return",
			map[string]string{"note": "required"})
	}

	err = db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		r, err := s.repo.GetForUpdate(ctx, tx, returnID)
		if err != nil {
			return returnNotFound(err)
		}
		if err := Transitions.Check(r.Status, StatusRejected); err != nil {
			return transitionError(r.Status, StatusRejected, err)
		}

		from := r.Status
		r.Status = StatusRejected
		r.AdminNote = adminNote
		if err := s.repo.Resolve(ctx, tx, r, from); err != nil {
			return apperror.Internal(err)
		}
		rejected = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ReturnResolved(ctx, "rejected")
	logger.FromCtx(ctx).Info("return rejected",
		zap.Uint("return_id", rejected.ID),
		zap.Uint("order_id", rejected.OrderID),
	)
	return rejected, nil
}

func (s *service) GetReturn(ctx context.Context, actor utils.Actor, returnID uint) (r *OrderReturn, err error) {
	const op = "returns.GetReturn"
	ctx, span := tracer.Start(ctx, op)
	timer := s.metrics.StartTimer(op)
	defer func() { err = s.finish(ctx, span, timer, op, err) }()

	if actor.UserID == 0 {
		return nil, apperror.Unauthorized("authentication required")
	}
	r, err = s.repo.GetByID(ctx, s.db, returnID)
	if err != nil {
		return nil, returnNotFound(err)
	}
	if !actor.CanAccess(r.UserID) {
		return nil, apperror.Forbidden("you are not allowed to view this return")
	}
	return r, nil
}

func (s *service) ListReturns(ctx context.Context, actor utils.Actor, orderID uint) (out []*OrderReturn, err error) {
	const op = "returns.ListReturns"
	ctx, span := tracer.Start(ctx, op)
	timer := s.metrics.StartTimer(op)
	defer func() { err = s.finish(ctx, span, timer, op, err) }()

	if actor.UserID == 0 {
		return nil, apperror.Unauthorized("authentication required")
	}
	o, err := s.orders.GetByID(ctx, s.db, orderID)
	if err != nil {
		return nil, orderNotFound(err)
	}
	if !actor.CanAccess(o.UserID) {
		return nil, apperror.Forbidden("you are not allowed to view returns of this order")
	}

	out, err = s.repo.ListByOrder(ctx, s.db, orderID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return out, nil
}

func (s *service) ListPending(ctx context.Context, limit int) (out []*OrderReturn, err error) {
	const op = "returns.ListPending"
	ctx, span := tracer.Start(ctx, op)
	timer := s.metrics.StartTimer(op)
	defer func() { err = s.finish(ctx, span, timer, op, err) }()

	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	out, err = s.repo.ListPending(ctx, s.db, limit)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return out, nil
}
