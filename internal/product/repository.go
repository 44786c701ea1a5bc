package product

import (
	"context"
	"fmt"

	"storefront-be/internal/db"
	"storefront-be/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	// GetByIDs loads the given products keyed by id. Missing ids are absent
	// from the map.
	GetByIDs(ctx context.Context, q db.DBTX, ids []uint) (map[uint]*Product, error)
}

type repository struct{}

func NewRepository() Repository {
	return &repository{}
}

func (r *repository) GetByIDs(ctx context.Context, q db.DBTX, ids []uint) (map[uint]*Product, error) {
	out := make(map[uint]*Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "GetByIDs"),
		zap.Int("count", len(ids)),
	)

	arg := make(pq.Int64Array, 0, len(ids))
	for _, id := range ids {
		arg = append(arg, int64(id))
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, name, price, stock, critical_stock, is_active
		FROM products
		WHERE id = ANY($1)
	`, arg)
	if err != nil {
		log.Error("failed to query products", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrFailedGetProduct, err)
	}
	defer rows.Close()

	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.CriticalStock, &p.IsActive); err != nil {
			log.Error("failed to scan product", zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrFailedGetProduct, err)
		}
		out[p.ID] = &p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedGetProduct, err)
	}

	return out, nil
}
