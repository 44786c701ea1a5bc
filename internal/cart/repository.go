package cart

import (
	"context"
	"fmt"

	"storefront-be/internal/db"
	"storefront-be/internal/logger"

	"go.uber.org/zap"
)

// Repository is the narrow cart contract consumed by checkout. Both methods
// run against the caller's connection or transaction.
type Repository interface {
	GetCartLines(ctx context.Context, q db.DBTX, userID uint) ([]Line, error)
	ClearCart(ctx context.Context, q db.DBTX, userID uint) error
}

type repository struct{}

func NewRepository() Repository {
	return &repository{}
}

func (r *repository) GetCartLines(ctx context.Context, q db.DBTX, userID uint) ([]Line, error) {
	if userID == 0 {
		return nil, ErrInvalidUser
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "GetCartLines"),
		zap.Uint("user_id", userID),
	)

	rows, err := q.QueryContext(ctx, `
		SELECT product_id, quantity
		FROM carts
		WHERE user_id = $1
		ORDER BY product_id
	`, userID)
	if err != nil {
		log.Error("failed to query cart rows", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrFailedGetCartRows, err)
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ProductID, &l.Quantity); err != nil {
			log.Error("failed to scan cart row", zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrFailedGetCartRows, err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedGetCartRows, err)
	}

	log.Debug("cart rows loaded", zap.Int("count", len(lines)))
	return lines, nil
}

func (r *repository) ClearCart(ctx context.Context, q db.DBTX, userID uint) error {
	if userID == 0 {
		return ErrInvalidUser
	}

	res, err := q.ExecContext(ctx, `DELETE FROM carts WHERE user_id = $1`, userID)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to clear cart",
			zap.Uint("user_id", userID),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", ErrFailedClearCart, err)
	}

	affected, _ := res.RowsAffected()
	logger.FromCtx(ctx).Debug("cart cleared",
		zap.Uint("user_id", userID),
		zap.Int64("rows", affected),
	)
	return nil
}
