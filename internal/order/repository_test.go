package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	orderColumns = []string{"id", "user_id", "status", "shipping_address", "total_amount", "created_at", "updated_at"}
	itemColumns  = []string{"id", "order_id", "product_id", "product_name", "unit_price", "quantity", "subtotal"}
)

func TestRepository_Insert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository()
	ctx := context.Background()
	now := time.Now()

	t.Run("Success", func(t *testing.T) {
		o := newOrder(7, "addr", StatusPending, []Line{
			{ProductID: 1, ProductName: "Keyboard", UnitPrice: 1000, Quantity: 2, Subtotal: 2000},
		})

		mock.ExpectQuery(`INSERT INTO orders \(user_id, status, shipping_address, total_amount\)`).
			WithArgs(uint(7), StatusPending, "addr", int64(2000)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(10, now, now))
		mock.ExpectQuery(`INSERT INTO order_items`).
			WithArgs(uint(10), uint(1), "Keyboard", int64(1000), 2, int64(2000)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(100))

		err := repo.Insert(ctx, db, o)
		require.NoError(t, err)
		assert.Equal(t, uint(10), o.ID)
		assert.Equal(t, uint(10), o.Lines[0].OrderID)
		assert.Equal(t, uint(100), o.Lines[0].ID)
	})

	t.Run("Item insert fails", func(t *testing.T) {
		o := newOrder(7, "addr", StatusPending, []Line{{ProductID: 1, Quantity: 1}})

		mock.ExpectQuery(`INSERT INTO orders`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(11, now, now))
		mock.ExpectQuery(`INSERT INTO order_items`).WillReturnError(errors.New("fk violation"))

		err := repo.Insert(ctx, db, o)
		assert.ErrorIs(t, err, ErrFailedInsertOrder)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository()
	ctx := context.Background()
	now := time.Now()

	t.Run("GetForUpdate locks and loads lines", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM orders WHERE id = \$1 FOR UPDATE`).
			WithArgs(uint(5)).
			WillReturnRows(sqlmock.NewRows(orderColumns).AddRow(5, 7, "PENDING", "addr", 3500, now, now))
		mock.ExpectQuery(`SELECT .* FROM order_items WHERE order_id = \$1 ORDER BY product_id`).
			WithArgs(uint(5)).
			WillReturnRows(sqlmock.NewRows(itemColumns).
				AddRow(1, 5, 1, "Keyboard", 1000, 1, 1000).
				AddRow(2, 5, 2, "Mouse", 2500, 1, 2500))

		o, err := repo.GetForUpdate(ctx, db, 5)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, o.Status)
		assert.Len(t, o.Lines, 2)
		assert.Equal(t, Total(o.Lines), o.TotalAmount)
	})

	t.Run("GetByID does not lock", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM orders WHERE id = \$1$`).
			WithArgs(uint(6)).
			WillReturnRows(sqlmock.NewRows(orderColumns).AddRow(6, 7, "SHIPPED", "addr", 0, now, now))
		mock.ExpectQuery(`SELECT .* FROM order_items`).
			WithArgs(uint(6)).
			WillReturnRows(sqlmock.NewRows(itemColumns))

		o, err := repo.GetByID(ctx, db, 6)
		require.NoError(t, err)
		assert.Equal(t, StatusShipped, o.Status)
		assert.Empty(t, o.Lines)
	})

	t.Run("Not found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM orders`).
			WithArgs(uint(404)).
			WillReturnRows(sqlmock.NewRows(orderColumns))

		_, err := repo.GetByID(ctx, db, 404)
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository()
	ctx := context.Background()

	mock.ExpectExec(`UPDATE orders SET status = \$1, updated_at = NOW\(\) WHERE id = \$2 AND status = \$3`).
		WithArgs(StatusCancelled, uint(5), StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.UpdateStatus(ctx, db, 5, StatusPending, StatusCancelled))

	mock.ExpectExec(`UPDATE orders`).
		WithArgs(StatusCancelled, uint(5), StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.UpdateStatus(ctx, db, 5, StatusPending, StatusCancelled), ErrStatusChanged)

	mock.ExpectExec(`UPDATE orders`).WillReturnError(errors.New("db down"))
	assert.ErrorIs(t, repo.UpdateStatus(ctx, db, 5, StatusPending, StatusCancelled), ErrFailedUpdateStatus)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository()
	ctx := context.Background()
	now := time.Now()

	t.Run("Owner with status filter", func(t *testing.T) {
		userID := uint(7)
		status := StatusDelivered

		mock.ExpectQuery(`FROM orders WHERE 1=1 AND user_id = \$1 AND status = \$2 ORDER BY created_at DESC, id DESC LIMIT \$3 OFFSET \$4`).
			WithArgs(userID, status, 10, 10).
			WillReturnRows(sqlmock.NewRows(orderColumns).AddRow(3, 7, "DELIVERED", "addr", 100, now, now))

		orders, err := repo.List(ctx, db, &userID, Filter{Status: &status, Limit: 10, Page: 2})
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, StatusDelivered, orders[0].Status)
	})

	t.Run("Admin with clamped limit", func(t *testing.T) {
		mock.ExpectQuery(`FROM orders WHERE 1=1 ORDER BY created_at DESC, id DESC LIMIT \$1 OFFSET \$2`).
			WithArgs(MaxListLimit, 0).
			WillReturnRows(sqlmock.NewRows(orderColumns))

		orders, err := repo.List(ctx, db, nil, Filter{Limit: 1000})
		require.NoError(t, err)
		assert.Empty(t, orders)
	})

	t.Run("DBError", func(t *testing.T) {
		mock.ExpectQuery(`FROM orders`).WillReturnError(errors.New("db error"))

		_, err := repo.List(ctx, db, nil, Filter{})
		assert.ErrorIs(t, err, ErrFailedGetOrder)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
