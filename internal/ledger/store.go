// Package ledger is the append-only financial record. It exposes no update or
// delete path; every statistic is computed from the records at read time.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"storefront-be/internal/db"
	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"
	"storefront-be/internal/utils"

	"go.uber.org/zap"
)

type Store interface {
	Append(ctx context.Context, q db.DBTX, e Entry) (*Transaction, error)
	ListByOrder(ctx context.Context, orderID uint) ([]*Transaction, error)
	// PurchaseFor returns the purchase record of an order, or nil when none exists.
	PurchaseFor(ctx context.Context, q db.DBTX, orderID uint) (*Transaction, error)
	Summary(ctx context.Context, from, to *time.Time) (*Summary, error)
}

type store struct {
	db      *sql.DB
	metrics *metrics.Recorder
}

func NewStore(database *sql.DB, rec *metrics.Recorder) Store {
	return &store{db: database, metrics: rec}
}

func (s *store) Append(ctx context.Context, q db.DBTX, e Entry) (*Transaction, error) {
	if !e.Type.Valid() {
		return nil, ErrInvalidType
	}
	if e.Amount < 0 {
		return nil, ErrInvalidAmount
	}
	if e.OrderID == 0 {
		return nil, ErrMissingOrder
	}
	if e.Status == "" {
		e.Status = StatusCompleted
	}

	var gatewayRef *string
	if ref := strings.TrimSpace(e.GatewayRef); ref != "" {
		gatewayRef = &ref
	}

	t := &Transaction{
		Reference:   utils.GenerateReference("TXN"),
		Type:        e.Type,
		Amount:      e.Amount,
		Status:      e.Status,
		OrderID:     e.OrderID,
		UserID:      e.UserID,
		Description: e.Description,
		GatewayRef:  gatewayRef,
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "ledger"),
		zap.String("method", "Append"),
		zap.String("reference", t.Reference),
		zap.String("type", string(t.Type)),
		zap.Uint("order_id", t.OrderID),
		zap.Int64("amount", t.Amount),
	)

	err := q.QueryRowContext(ctx, `
		INSERT INTO transactions (
			reference, type, amount, status,
			order_id, user_id, description, gateway_ref
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id, created_at
	`,
		t.Reference,
		t.Type,
		t.Amount,
		t.Status,
		t.OrderID,
		t.UserID,
		t.Description,
		t.GatewayRef,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		log.Error("failed to append transaction", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrFailedAppend, err)
	}

	s.metrics.LedgerAppended(ctx, string(t.Type), t.Amount)
	log.Info("transaction appended", zap.Uint("transaction_id", t.ID))
	return t, nil
}

const transactionColumns = `id, reference, type, amount, status, order_id, user_id, description, gateway_ref, created_at`

func scanTransaction(scan func(dest ...any) error) (*Transaction, error) {
	var t Transaction
	var gatewayRef sql.NullString
	if err := scan(
		&t.ID,
		&t.Reference,
		&t.Type,
		&t.Amount,
		&t.Status,
		&t.OrderID,
		&t.UserID,
		&t.Description,
		&gatewayRef,
		&t.CreatedAt,
	); err != nil {
		return nil, err
	}
	if gatewayRef.Valid {
		t.GatewayRef = &gatewayRef.String
	}
	return &t, nil
}

func (s *store) ListByOrder(ctx context.Context, orderID uint) ([]*Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE order_id = $1
		ORDER BY created_at, id
	`, orderID)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to list transactions",
			zap.Uint("order_id", orderID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrFailedQuery, err)
	}
	defer rows.Close()

	var out []*Transaction
	for rows.Next() {
		t, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFailedQuery, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedQuery, err)
	}
	return out, nil
}

func (s *store) PurchaseFor(ctx context.Context, q db.DBTX, orderID uint) (*Transaction, error) {
	if q == nil {
		q = s.db
	}
	row := q.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE order_id = $1 AND type = $2 AND status = $3
		ORDER BY id
		LIMIT 1
	`, orderID, TypePurchase, StatusCompleted)

	t, err := scanTransaction(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedQuery, err)
	}
	return t, nil
}

// Summary sums the ledger over [from, to]. Purchases of orders that are now
// CANCELLED were never captured and are reported separately.
func (s *store) Summary(ctx context.Context, from, to *time.Time) (*Summary, error) {
	if from != nil && to != nil && from.After(*to) {
		return nil, ErrInvalidDateRange
	}

	query := `
		SELECT
			COALESCE(SUM(t.amount) FILTER (WHERE t.type = 'PURCHASE'), 0),
			COALESCE(SUM(t.amount) FILTER (WHERE t.type = 'PURCHASE' AND o.status = 'CANCELLED'), 0),
			COALESCE(SUM(t.amount) FILTER (WHERE t.type = 'REFUND'), 0),
			COALESCE(SUM(t.amount) FILTER (WHERE t.type = 'ADJUSTMENT'), 0),
			COUNT(*) FILTER (WHERE t.type = 'PURCHASE'),
			COUNT(*) FILTER (WHERE t.type = 'REFUND')
		FROM transactions t
		JOIN orders o ON o.id = t.order_id
		WHERE t.status = 'COMPLETED'
	`
	args := []any{}
	argIndex := 1

	if from != nil {
		query += fmt.Sprintf(" AND t.created_at >= $%d", argIndex)
		args = append(args, *from)
		argIndex++
	}
	if to != nil {
		query += fmt.Sprintf(" AND t.created_at <= $%d", argIndex)
		args = append(args, *to)
	}

	sum := &Summary{From: from, To: to}
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&sum.Revenue,
		&sum.Cancelled,
		&sum.Refunds,
		&sum.Adjustments,
		&sum.Purchases,
		&sum.RefundCount,
	)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to summarize ledger", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrFailedQuery, err)
	}

	sum.NetRevenue = sum.Revenue - sum.Cancelled - sum.Refunds + sum.Adjustments
	return sum, nil
}
