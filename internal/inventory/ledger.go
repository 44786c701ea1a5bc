// Package inventory keeps per-product stock counters. Every decrement is a
// single conditional UPDATE, so stock can never go below zero regardless of
// how many checkouts race on the same product.
package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront-be/internal/cart"
	"storefront-be/internal/db"
	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"

	"go.uber.org/zap"
)

// Reservation is the outcome of one successful decrement.
type Reservation struct {
	ProductID     uint
	Quantity      int
	Remaining     int
	CriticalStock int
}

// Low reports whether the remaining stock reached the critical threshold.
func (r Reservation) Low() bool {
	return r.Remaining <= r.CriticalStock
}

type Ledger interface {
	Reserve(ctx context.Context, q db.DBTX, productID uint, qty int) (Reservation, error)
	Release(ctx context.Context, q db.DBTX, productID uint, qty int) error
	// ReserveAll must run inside a transaction: on the first failing line
	// the caller rolls back, undoing every earlier reservation.
	ReserveAll(ctx context.Context, q db.DBTX, lines []cart.Line) ([]Reservation, error)
	ReleaseAll(ctx context.Context, q db.DBTX, lines []cart.Line) error
}

type ledger struct {
	metrics *metrics.Recorder
}

func NewLedger(rec *metrics.Recorder) Ledger {
	return &ledger{metrics: rec}
}

func (l *ledger) Reserve(ctx context.Context, q db.DBTX, productID uint, qty int) (Reservation, error) {
	if qty <= 0 {
		return Reservation{}, ErrInvalidQuantity
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "inventory"),
		zap.String("method", "Reserve"),
		zap.Uint("product_id", productID),
		zap.Int("quantity", qty),
	)

	res := Reservation{ProductID: productID, Quantity: qty}
	err := q.QueryRowContext(ctx, `
		UPDATE products
		SET stock = stock - $1, updated_at = NOW()
		WHERE id = $2 AND stock >= $1
		RETURNING stock, critical_stock
	`, qty, productID).Scan(&res.Remaining, &res.CriticalStock)

	if errors.Is(err, sql.ErrNoRows) {
		return Reservation{}, l.classifyMiss(ctx, q, productID, qty)
	}
	if err != nil {
		log.Error("failed to reserve stock", zap.Error(err))
		return Reservation{}, fmt.Errorf("%w: %v", ErrFailedUpdateStock, err)
	}

	if res.Low() {
		log.Warn("stock at or below critical threshold",
			zap.Int("remaining", res.Remaining),
			zap.Int("critical_stock", res.CriticalStock),
		)
		l.metrics.LowStock(ctx, productID)
	}

	log.Debug("stock reserved", zap.Int("remaining", res.Remaining))
	return res, nil
}

// classifyMiss tells an unknown product apart from a stock shortfall after
// the conditional update matched no row.
func (l *ledger) classifyMiss(ctx context.Context, q db.DBTX, productID uint, qty int) error {
	var exists bool
	err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFailedUpdateStock, err)
	}
	if !exists {
		return &StockError{ProductID: productID, Requested: qty, Err: ErrProductNotFound}
	}

	logger.FromCtx(ctx).Warn("conditional stock decrement rejected",
		zap.Uint("product_id", productID),
		zap.Int("quantity", qty),
	)
	return &StockError{ProductID: productID, Requested: qty, Err: ErrInsufficientStock}
}

func (l *ledger) Release(ctx context.Context, q db.DBTX, productID uint, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}

	res, err := q.ExecContext(ctx, `
		UPDATE products
		SET stock = stock + $1, updated_at = NOW()
		WHERE id = $2
	`, qty, productID)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to release stock",
			zap.Uint("product_id", productID),
			zap.Int("quantity", qty),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", ErrFailedUpdateStock, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFailedUpdateStock, err)
	}
	if affected == 0 {
		return &StockError{ProductID: productID, Requested: qty, Err: ErrProductNotFound}
	}
	return nil
}

func (l *ledger) ReserveAll(ctx context.Context, q db.DBTX, lines []cart.Line) ([]Reservation, error) {
	merged := cart.Merge(lines)
	out := make([]Reservation, 0, len(merged))
	for _, line := range merged {
		res, err := l.Reserve(ctx, q, line.ProductID, line.Quantity)
		if err != nil {
			if errors.Is(err, ErrInsufficientStock) {
				l.metrics.ReservationFailed(ctx)
			}
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

func (l *ledger) ReleaseAll(ctx context.Context, q db.DBTX, lines []cart.Line) error {
	for _, line := range cart.Merge(lines) {
		if err := l.Release(ctx, q, line.ProductID, line.Quantity); err != nil {
			return err
		}
	}
	return nil
}
