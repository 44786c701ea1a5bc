package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"storefront-be/internal/logger"

	"go.uber.org/zap"
)

// Reconciler compares the cached order and return statuses with the ledger.
// It only reads, so running it any number of times is safe.
type Reconciler struct {
	db *sql.DB
}

func NewReconciler(database *sql.DB) *Reconciler {
	return &Reconciler{db: database}
}

const driftQuery = `
	SELECT 'RETURNED_WITHOUT_REFUND' AS kind, o.id, NULL::BIGINT AS return_id, o.status
	FROM orders o
	WHERE o.status = 'RETURNED'
	  AND NOT EXISTS (
		SELECT 1 FROM transactions t
		WHERE t.order_id = o.id AND t.type = 'REFUND' AND t.status = 'COMPLETED'
	  )
	UNION ALL
	SELECT 'ORDER_WITHOUT_PURCHASE', o.id, NULL::BIGINT, o.status
	FROM orders o
	WHERE o.status <> 'CANCELLED'
	  AND NOT EXISTS (
		SELECT 1 FROM transactions t
		WHERE t.order_id = o.id AND t.type = 'PURCHASE' AND t.status = 'COMPLETED'
	  )
	UNION ALL
	SELECT 'COMPLETED_RETURN_UNLINKED', r.order_id, r.id, r.status
	FROM order_returns r
	WHERE r.status = 'COMPLETED' AND r.transaction_id IS NULL
	UNION ALL
	SELECT 'APPROVED_RETURN_STALLED', r.order_id, r.id, r.status
	FROM order_returns r
	WHERE r.status = 'APPROVED' AND r.updated_at < NOW() - INTERVAL '15 minutes'
	ORDER BY 2, 1
`

// Check lists every drift found. An empty result means caches agree with
// the ledger.
func (r *Reconciler) Check(ctx context.Context) ([]Drift, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "ledger"),
		zap.String("method", "Reconcile"),
	)

	rows, err := r.db.QueryContext(ctx, driftQuery)
	if err != nil {
		log.Error("failed to run drift query", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrFailedQuery, err)
	}
	defer rows.Close()

	drifts := []Drift{}
	for rows.Next() {
		var (
			d        Drift
			returnID sql.NullInt64
		)
		if err := rows.Scan(&d.Kind, &d.OrderID, &returnID, &d.Status); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFailedQuery, err)
		}
		if returnID.Valid {
			id := uint(returnID.Int64)
			d.ReturnID = &id
		}
		drifts = append(drifts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedQuery, err)
	}

	if len(drifts) > 0 {
		log.Warn("ledger drift detected", zap.Int("count", len(drifts)))
	} else {
		log.Info("ledger consistent with cached state")
	}
	return drifts, nil
}
