package returns

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront-be/internal/db"
	"storefront-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	// Insert fails with ErrReturnAlreadyPending when the order already has
	// a PENDING return.
	Insert(ctx context.Context, q db.DBTX, r *OrderReturn) error
	GetByID(ctx context.Context, q db.DBTX, returnID uint) (*OrderReturn, error)
	GetForUpdate(ctx context.Context, q db.DBTX, returnID uint) (*OrderReturn, error)
	// Resolve stores the status and resolution fields of r, provided the row
	// is still in status from.
	Resolve(ctx context.Context, q db.DBTX, r *OrderReturn, from Status) error
	ListByOrder(ctx context.Context, q db.DBTX, orderID uint) ([]*OrderReturn, error)
	ListPending(ctx context.Context, q db.DBTX, limit int) ([]*OrderReturn, error)
}

type repository struct{}

func NewRepository() Repository {
	return &repository{}
}

const returnColumns = `id, order_id, user_id, reason, description, status, refund_amount, admin_note, transaction_id, created_at, updated_at`

func scanReturn(scan func(dest ...any) error) (*OrderReturn, error) {
	var (
		r             OrderReturn
		description   sql.NullString
		refundAmount  sql.NullInt64
		adminNote     sql.NullString
		transactionID sql.NullInt64
	)
	if err := scan(
		&r.ID,
		&r.OrderID,
		&r.UserID,
		&r.Reason,
		&description,
		&r.Status,
		&refundAmount,
		&adminNote,
		&transactionID,
		&r.CreatedAt,
		&r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if description.Valid {
		r.Description = &description.String
	}
	if refundAmount.Valid {
		r.RefundAmount = &refundAmount.Int64
	}
	if adminNote.Valid {
		r.AdminNote = &adminNote.String
	}
	if transactionID.Valid {
		id := uint(transactionID.Int64)
		r.TransactionID = &id
	}
	return &r, nil
}

func (repo *repository) Insert(ctx context.Context, q db.DBTX, r *OrderReturn) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "InsertReturn"),
		zap.Uint("order_id", r.OrderID),
	)

	err := q.QueryRowContext(ctx, `
		INSERT INTO order_returns (order_id, user_id, reason, description, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, r.OrderID, r.UserID, r.Reason, r.Description, r.Status).
		Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
	if db.IsUniqueViolation(err, openReturnIndex) {
		log.Warn("return already pending")
		return ErrReturnAlreadyPending
	}
	if err != nil {
		log.Error("failed to insert return", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrFailedInsertReturn, err)
	}
	return nil
}

func (repo *repository) GetByID(ctx context.Context, q db.DBTX, returnID uint) (*OrderReturn, error) {
	return repo.get(ctx, q, returnID, "")
}

func (repo *repository) GetForUpdate(ctx context.Context, q db.DBTX, returnID uint) (*OrderReturn, error) {
	return repo.get(ctx, q, returnID, " FOR UPDATE")
}

func (repo *repository) get(ctx context.Context, q db.DBTX, returnID uint, suffix string) (*OrderReturn, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+returnColumns+`
		FROM order_returns
		WHERE id = $1`+suffix, returnID)

	r, err := scanReturn(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReturnNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("failed to get return",
			zap.Uint("return_id", returnID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrFailedGetReturn, err)
	}
	return r, nil
}

func (repo *repository) Resolve(ctx context.Context, q db.DBTX, r *OrderReturn, from Status) error {
	err := q.QueryRowContext(ctx, `
		UPDATE order_returns
		SET status = $1,
			refund_amount = $2,
			admin_note = $3,
			transaction_id = $4,
			updated_at = NOW()
		WHERE id = $5 AND status = $6
		RETURNING updated_at
	`, r.Status, r.RefundAmount, r.AdminNote, r.TransactionID, r.ID, from).Scan(&r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrStatusChanged
	}
	if err != nil {
		logger.FromCtx(ctx).Error("failed to resolve return",
			zap.Uint("return_id", r.ID),
			zap.String("status", string(r.Status)),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", ErrFailedUpdateReturn, err)
	}
	return nil
}

func (repo *repository) list(ctx context.Context, q db.DBTX, query string, args ...any) ([]*OrderReturn, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to list returns", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrFailedGetReturn, err)
	}
	defer rows.Close()

	out := []*OrderReturn{}
	for rows.Next() {
		r, err := scanReturn(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFailedGetReturn, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedGetReturn, err)
	}
	return out, nil
}

func (repo *repository) ListByOrder(ctx context.Context, q db.DBTX, orderID uint) ([]*OrderReturn, error) {
	return repo.list(ctx, q, `
		SELECT `+returnColumns+`
		FROM order_returns
		WHERE order_id = $1
		ORDER BY created_at DESC, id DESC
	`, orderID)
}

// ListPending returns the oldest pending returns first.
func (repo *repository) ListPending(ctx context.Context, q db.DBTX, limit int) ([]*OrderReturn, error) {
	return repo.list(ctx, q, `
		SELECT `+returnColumns+`
		FROM order_returns
		WHERE status = $1
		ORDER BY created_at, id
		LIMIT $2
	`, StatusPending, limit)
}
