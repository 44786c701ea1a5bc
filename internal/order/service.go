package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"storefront-be/internal/apperror"
	"storefront-be/internal/cart"
	"storefront-be/internal/db"
	"storefront-be/internal/inventory"
	"storefront-be/internal/ledger"
	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"
	"storefront-be/internal/payment"
	"storefront-be/internal/product"
	"storefront-be/internal/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("storefront-be/internal/order")

type Service interface {
	Checkout(ctx context.Context, userID uint, shippingAddress string) (*Order, error)
	OneClickBuy(ctx context.Context, userID uint, shippingAddress, paymentMethod string) (*Order, error)
	CancelOrder(ctx context.Context, actor utils.Actor, orderID uint) (*Order, error)
	// UpdateStatus is the admin override. It accepts any known status and
	// has no inventory or ledger side effects.
	UpdateStatus(ctx context.Context, orderID uint, status Status) (*Order, error)
	GetOrder(ctx context.Context, actor utils.Actor, orderID uint) (*Order, error)
	ListOrders(ctx context.Context, actor utils.Actor, f Filter) ([]*Order, error)
}

type service struct {
	db       *sql.DB
	repo     Repository
	carts    cart.Repository
	products product.Repository
	stock    inventory.Ledger
	txs      ledger.Store
	gateway  payment.Gateway
	metrics  *metrics.Recorder
}

func NewService(
	database *sql.DB,
	repo Repository,
	carts cart.Repository,
	products product.Repository,
	stock inventory.Ledger,
	txs ledger.Store,
	gateway payment.Gateway,
	rec *metrics.Recorder,
) Service {
	return &service{
		db:       database,
		repo:     repo,
		carts:    carts,
		products: products,
		stock:    stock,
		txs:      txs,
		gateway:  gateway,
		metrics:  rec,
	}
}

// finish closes the span and timer of op and returns err as a typed error
// tagged with op. Rejections are logged at warn, faults at error.
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
		log.Error("order operation failed", zap.Error(appErr.Err))
	} else {
		log.Warn("order operation rejected", zap.String("reason", appErr.Message))
	}
	return appErr
}

func validateAddress(raw string) (string, error) {
	addr := strings.TrimSpace(raw)
	if addr == "" {
		return "", apperror.Validation("invalid_shipping_address", "shipping address is required",
			map[string]string{"shippingAddress": "required"})
	}
	if utf8.RuneCountInString(addr) > MaxShippingAddressLength {
		return "", apperror.Validation("invalid_shipping_address",
			fmt.Sprintf("shipping address must be at most %d characters", MaxShippingAddressLength),
			map[string]string{"shippingAddress": "too long"})
	}
	return addr, nil
}

// loadCart reads the user's cart and the products it references, and checks
// the whole cart against current stock before anything is reserved.
func (s *service) loadCart(ctx context.Context, q db.DBTX, userID uint) ([]cart.Line, map[uint]*product.Product, error) {
	raw, err := s.carts.GetCartLines(ctx, q, userID)
	if err != nil {
		return nil, nil, apperror.Internal(err)
	}
	lines := cart.Merge(raw)
	if len(lines) == 0 {
		return nil, nil, apperror.Validation("empty_cart", "cart is empty", nil)
	}

	products, err := s.products.GetByIDs(ctx, q, cart.ProductIDs(lines))
	if err != nil {
		return nil, nil, apperror.Internal(err)
	}

	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, nil, apperror.Validation("invalid_quantity", "cart quantities must be positive",
				map[string]string{"quantity": "must be greater than zero"})
		}
		p, ok := products[l.ProductID]
		if !ok {
			return nil, nil, apperror.NotFound(fmt.Sprintf("product %d not found", l.ProductID), product.ErrProductNotFound)
		}
		if !p.Covers(l.Quantity) {
			return nil, nil, apperror.InsufficientStock(p.Name, inventory.ErrInsufficientStock)
		}
	}
	return lines, products, nil
}

// stockFailure maps an inventory error onto the caller facing kind.
func stockFailure(err error, products map[uint]*product.Product) error {
	var se *inventory.StockError
	if !errors.As(err, &se) {
		return apperror.Internal(err)
	}
	name := fmt.Sprintf("product %d", se.ProductID)
	if p := products[se.ProductID]; p != nil {
		name = p.Name
	}
	switch {
	case errors.Is(err, inventory.ErrInsufficientStock):
		return apperror.InsufficientStock(name, err)
	case errors.Is(err, inventory.ErrProductNotFound):
		return apperror.NotFound(name+" not found", err)
	default:
		return apperror.Internal(err)
	}
}

// place reserves stock, writes the order with its purchase record and
// empties the cart. It must run inside tx so a failure undoes all of it.
func (s *service) place(
	ctx context.Context,
	tx *sql.Tx,
	userID uint,
	address string,
	status Status,
	lines []cart.Line,
	products map[uint]*product.Product,
	gatewayRef string,
) (*Order, error) {
	if _, err := s.stock.ReserveAll(ctx, tx, lines); err != nil {
		return nil, stockFailure(err, products)
	}

	o := newOrder(userID, address, status, priceLines(lines, products))
	if err := s.repo.Insert(ctx, tx, o); err != nil {
		return nil, apperror.Internal(err)
	}

	desc := fmt.Sprintf("Purchase for order #%d", o.ID)
	if gatewayRef != "" {
		desc = fmt.Sprintf("One-click purchase for order #%d, gateway transaction %s", o.ID, gatewayRef)
	}
	if _, err := s.txs.Append(ctx, tx, ledger.Entry{
		Type:        ledger.TypePurchase,
		Amount:      o.TotalAmount,
		OrderID:     o.ID,
		UserID:      userID,
		Description: desc,
		GatewayRef:  gatewayRef,
	}); err != nil {
		return nil, apperror.Internal(err)
	}

	if err := s.carts.ClearCart(ctx, tx, userID); err != nil {
		return nil, apperror.Internal(err)
	}
	return o, nil
}

func (s *service) Checkout(ctx context.Context, userID uint, shippingAddress string) (created *Order, err error) {
	const op = "order.Checkout"
	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(attribute.Int64("user_id", int64(userID))))
	timer := s.metrics.StartTimer(op)
	defer func() { err = s.finish(ctx, span, timer, op, err) }()

	if userID == 0 {
		return nil, apperror.Unauthorized("authentication required")
	}
	addr, err := validateAddress(shippingAddress)
	if err != nil {
		return nil, err
	}

	err = db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		lines, products, err := s.loadCart(ctx, tx, userID)
		if err != nil {
			return err
		}
		created, err = s.place(ctx, tx, userID, addr, StatusPending, lines, products, "")
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OrderCreated(ctx, EntryCheckout)
	logger.FromCtx(ctx).Info("order created",
		zap.String("entry_point", EntryCheckout),
		zap.Uint("order_id", created.ID),
		zap.Uint("user_id", userID),
		zap.Int64("total_amount", created.TotalAmount),
	)
	return created, nil
}

func (s *service) OneClickBuy(ctx context.Context, userID uint, shippingAddress, paymentMethod string) (created *Order, err error) {
	const op = "order.OneClickBuy"
	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(attribute.Int64("user_id", int64(userID))))
	timer := s.metrics.StartTimer(op)
	defer func() { err = s.finish(ctx, span, timer, op, err) }()

	if userID == 0 {
		return nil, apperror.Unauthorized("authentication required")
	}
	addr, err := validateAddress(shippingAddress)
	if err != nil {
		return nil, err
	}
	method := strings.ToUpper(strings.TrimSpace(paymentMethod))
	if method == "" {
		method = payment.MethodCard
	}

	// Snapshot read. Nothing is locked while the gateway is called.
	snapshot, products, err := s.loadCart(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	for _, l := range snapshot {
		if p := products[l.ProductID]; !p.IsActive {
			return nil, apperror.Validation("product_inactive",
				fmt.Sprintf("%s is no longer available", p.Name),
				map[string]string{"productId": fmt.Sprint(p.ID)})
		}
	}
	total := Total(priceLines(snapshot, products))

	// A cart that costs nothing has nothing to authorize.
	var gatewayTxID string
	if total > 0 {
		auth, err := s.gateway.Authorize(ctx, payment.AuthorizeRequest{
			Amount:   total,
			Method:   method,
			UserID:   userID,
			OrderRef: utils.GenerateReference("ORD"),
		})
		if err != nil {
			return nil, apperror.Internal(fmt.Errorf("authorize payment: %w", err))
		}
		if !auth.Success {
			s.metrics.PaymentDeclined(ctx, auth.Status)
			return nil, apperror.PaymentDeclined(auth.Status, auth.Message)
		}
		gatewayTxID = auth.TransactionID
		span.SetAttributes(attribute.String("gateway_transaction_id", gatewayTxID))
	}

	err = db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		current, err := s.carts.GetCartLines(ctx, tx, userID)
		if err != nil {
			return apperror.Internal(err)
		}
		if !cart.Equal(current, snapshot) {
			return apperror.InvalidTransition("cart_changed", "cart changed during payment, please retry", nil)
		}
		created, err = s.place(ctx, tx, userID, addr, StatusProcessing, snapshot, products, gatewayTxID)
		return err
	})
	if err != nil {
		if gatewayTxID != "" {
			s.voidAuthorization(ctx, gatewayTxID, total, err)
		}
		return nil, err
	}

	s.metrics.OrderCreated(ctx, EntryOneClick)
	logger.FromCtx(ctx).Info("order created",
		zap.String("entry_point", EntryOneClick),
		zap.Uint("order_id", created.ID),
		zap.Uint("user_id", userID),
		zap.Int64("total_amount", created.TotalAmount),
		zap.String("gateway_transaction_id", gatewayTxID),
	)
	return created, nil
}

// voidAuthorization refunds an authorization whose order could not be
// stored. A failed void leaves a captured charge with no order and must be
// reconciled by hand from the logged gateway id.
func (s *service) voidAuthorization(ctx context.Context, gatewayTxID string, amount int64, cause error) {
	log := logger.FromCtx(ctx).With(
		zap.String("gateway_transaction_id", gatewayTxID),
		zap.Int64("amount", amount),
		zap.NamedError("cause", cause),
	)

	res, err := s.gateway.Refund(context.WithoutCancel(ctx), gatewayTxID, amount)
	if err != nil || res == nil || !res.Success {
		fields := []zap.Field{zap.Error(err)}
		if res != nil {
			fields = append(fields, zap.String("refund_status", res.Status), zap.String("refund_message", res.Message))
		}
		log.Error("authorization could not be voided, manual reconciliation required", fields...)
		return
	}
	log.Warn("order not created after authorization, authorization voided",
		zap.String("refund_transaction_id", res.TransactionID),
	)
}

func notFoundOrInternal(err error) error {
	if errors.Is(err, ErrOrderNotFound) {
		return apperror.NotFound("order not found", err)
	}
	return apperror.Internal(err)
}

func (s *service) CancelOrder(ctx context.Context, actor utils.Actor, orderID uint) (cancelled *Order, err error) {
	const op = "order.CancelOrder"
	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(attribute.Int64("order_id", int64(orderID))))
	timer := s.metrics.StartTimer(op)
	defer func() { err = s.finish(ctx, span, timer, op, err) }()

	if actor.UserID == 0 {
		return nil, apperror.Unauthorized("authentication required")
	}

	err = db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		o, err := s.repo.GetForUpdate(ctx, tx, orderID)
		if err != nil {
			return notFoundOrInternal(err)
		}
		if !actor.CanAccess(o.UserID) {
			return apperror.Forbidden("you are not allowed to cancel this order")
		}
		if err := Transitions.Check(o.Status, StatusCancelled); err != nil {
			appErr := apperror.InvalidTransition("invalid_state_transition",
				fmt.Sprintf("order in status %s cannot be cancelled", o.Status), err)
			appErr.Details = map[string]any{"allowed": Transitions.Next(o.Status)}
			return appErr
		}

		if err := s.stock.ReleaseAll(ctx, tx, o.CartLines()); err != nil {
			return apperror.Internal(err)
		}
		if err := s.repo.UpdateStatus(ctx, tx, o.ID, o.Status, StatusCancelled); err != nil {
			return apperror.Internal(err)
		}

		o.Status = StatusCancelled
		cancelled = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromCtx(ctx).Info("order cancelled",
		zap.Uint("order_id", orderID),
		zap.Uint("actor_id", actor.UserID),
	)
	return cancelled, nil
}

func (s *service) UpdateStatus(ctx context.Context, orderID uint, status Status) (updated *Order, err error) {
	const op = "order.UpdateStatus"
	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(
		attribute.Int64("order_id", int64(orderID)),
		attribute.String("status", string(status)),
	))
	timer := s.metrics.StartTimer(op)
	defer func() { err = s.finish(ctx, span, timer, op, err) }()

	if !status.Valid() {
		return nil, apperror.Validation("invalid_status", fmt.Sprintf("unknown order status %q", status),
			map[string]string{"status": "unknown"})
	}

	err = db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		o, err := s.repo.GetForUpdate(ctx, tx, orderID)
		if err != nil {
			return notFoundOrInternal(err)
		}

		if !Transitions.Allowed(o.Status, status) {
			logger.FromCtx(ctx).Warn("admin status override outside transition table",
				zap.Uint("order_id", orderID),
				zap.String("from", string(o.Status)),
				zap.String("to", string(status)),
				zap.Bool("from_terminal", Transitions.Terminal(o.Status)),
			)
		}

		if err := s.repo.UpdateStatus(ctx, tx, o.ID, o.Status, status); err != nil {
			return apperror.Internal(err)
		}
		o.Status = status
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromCtx(ctx).Info("order status updated",
		zap.Uint("order_id", orderID),
		zap.String("status", string(status)),
	)
	return updated, nil
}

func (s *service) GetOrder(ctx context.Context, actor utils.Actor, orderID uint) (o *Order, err error) {
	const op = "order.GetOrder"
	ctx, span := tracer.Start(ctx, op)
	timer := s.metrics.StartTimer(op)
	defer func() { err = s.finish(ctx, span, timer, op, err) }()

	if actor.UserID == 0 {
		return nil, apperror.Unauthorized("authentication required")
	}

	o, err = s.repo.GetByID(ctx, s.db, orderID)
	if err != nil {
		return nil, notFoundOrInternal(err)
	}
	if !actor.CanAccess(o.UserID) {
		return nil, apperror.Forbidden("you are not allowed to view this order")
	}
	return o, nil
}

func (s *service) ListOrders(ctx context.Context, actor utils.Actor, f Filter) (orders []*Order, err error) {
	const op = "order.ListOrders"
	ctx, span := tracer.Start(ctx, op)
	timer := s.metrics.StartTimer(op)
	defer func() { err = s.finish(ctx, span, timer, op, err) }()

	if actor.UserID == 0 {
		return nil, apperror.Unauthorized("authentication required")
	}
	if f.Status != nil && !f.Status.Valid() {
		return nil, apperror.Validation("invalid_status", fmt.Sprintf("unknown order status %q", *f.Status),
			map[string]string{"status": "unknown"})
	}
	if f.Page > MaxListPage {
		return nil, apperror.Validation("invalid_page", fmt.Sprintf("page must be at most %d", MaxListPage),
			map[string]string{"page": "too large"})
	}

	var owner *uint
	if !actor.IsAdmin() {
		owner = &actor.UserID
	}

	orders, err = s.repo.List(ctx, s.db, owner, f)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return orders, nil
}
