package order

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
	// Insert stores the order and its lines, filling in generated ids and
	// timestamps.
	Insert(ctx context.Context, q db.DBTX, o *Order) error
	GetByID(ctx context.Context, q db.DBTX, orderID uint) (*Order, error)
	// GetForUpdate locks the order row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, q db.DBTX, orderID uint) (*Order, error)
	UpdateStatus(ctx context.Context, q db.DBTX, orderID uint, from, to Status) error
	// List returns order headers. A nil userID lists every user's orders.
	List(ctx context.Context, q db.DBTX, userID *uint, f Filter) ([]*Order, error)
}

type repository struct{}

func NewRepository() Repository {
	return &repository{}
}

func (r *repository) Insert(ctx context.Context, q db.DBTX, o *Order) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "InsertOrder"),
		zap.Uint("user_id", o.UserID),
	)

	err := q.QueryRowContext(ctx, `
		INSERT INTO orders (user_id, status, shipping_address, total_amount)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, o.UserID, o.Status, o.ShippingAddress, o.TotalAmount).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		log.Error("failed to insert order", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrFailedInsertOrder, err)
	}

	for i := range o.Lines {
		line := &o.Lines[i]
		line.OrderID = o.ID
		err := q.QueryRowContext(ctx, `
			INSERT INTO order_items (
				order_id, product_id, product_name,
				unit_price, quantity, subtotal
			) VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`,
			line.OrderID,
			line.ProductID,
			line.ProductName,
			line.UnitPrice,
			line.Quantity,
			line.Subtotal,
		).Scan(&line.ID)
		if err != nil {
			log.Error("failed to insert order item",
				zap.Uint("product_id", line.ProductID),
				zap.Error(err),
			)
			return fmt.Errorf("%w: %v", ErrFailedInsertOrder, err)
		}
	}

	log.Debug("order inserted",
		zap.Uint("order_id", o.ID),
		zap.Int("line_count", len(o.Lines)),
	)
	return nil
}

func (r *repository) GetByID(ctx context.Context, q db.DBTX, orderID uint) (*Order, error) {
	return r.get(ctx, q, orderID, false)
}

func (r *repository) GetForUpdate(ctx context.Context, q db.DBTX, orderID uint) (*Order, error) {
	return r.get(ctx, q, orderID, true)
}

func (r *repository) get(ctx context.Context, q db.DBTX, orderID uint, lock bool) (*Order, error) {
	query := `
		SELECT id, user_id, status, shipping_address, total_amount, created_at, updated_at
		FROM orders
		WHERE id = $1
	`
	if lock {
		query += " FOR UPDATE"
	}

	var o Order
	err := q.QueryRowContext(ctx, query, orderID).Scan(
		&o.ID,
		&o.UserID,
		&o.Status,
		&o.ShippingAddress,
		&o.TotalAmount,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("failed to get order",
			zap.Uint("order_id", orderID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrFailedGetOrder, err)
	}

	lines, err := r.lines(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	o.Lines = lines
	return &o, nil
}

func (r *repository) lines(ctx context.Context, q db.DBTX, orderID uint) ([]Line, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, order_id, product_id, product_name, unit_price, quantity, subtotal
		FROM order_items
		WHERE order_id = $1
		ORDER BY product_id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedGetOrder, err)
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(
			&l.ID,
			&l.OrderID,
			&l.ProductID,
			&l.ProductName,
			&l.UnitPrice,
			&l.Quantity,
			&l.Subtotal,
		); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFailedGetOrder, err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedGetOrder, err)
	}
	return lines, nil
}

func (r *repository) UpdateStatus(ctx context.Context, q db.DBTX, orderID uint, from, to Status) error {
	res, err := q.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, to, orderID, from)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to update order status",
			zap.Uint("order_id", orderID),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", ErrFailedUpdateStatus, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFailedUpdateStatus, err)
	}
	if affected == 0 {
		return ErrStatusChanged
	}
	return nil
}

func (r *repository) List(ctx context.Context, q db.DBTX, userID *uint, f Filter) ([]*Order, error) {
	limit, offset := f.normalize()

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ListOrders"),
		zap.Int("limit", limit),
		zap.Int("offset", offset),
	)

	query := `
		SELECT id, user_id, status, shipping_address, total_amount, created_at, updated_at
		FROM orders
		WHERE 1=1
	`
	args := []any{}
	argIndex := 1

	if userID != nil {
		query += fmt.Sprintf(" AND user_id = $%d", argIndex)
		args = append(args, *userID)
		argIndex++
	}
	if f.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, *f.Status)
		argIndex++
	}

	query += " ORDER BY created_at DESC, id DESC"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query orders", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrFailedGetOrder, err)
	}
	defer rows.Close()

	orders := []*Order{}
	for rows.Next() {
		var o Order
		if err := rows.Scan(
			&o.ID,
			&o.UserID,
			&o.Status,
			&o.ShippingAddress,
			&o.TotalAmount,
			&o.CreatedAt,
			&o.UpdatedAt,
		); err != nil {
			log.Error("failed to scan order row", zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrFailedGetOrder, err)
		}
		orders = append(orders, &o)
	}
	if err := rows.Err(); err != nil {
		log.Error("rows iteration error", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrFailedGetOrder, err)
	}

	log.Debug("orders listed", zap.Int("count", len(orders)))
	return orders, nil
}
