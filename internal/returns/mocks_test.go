package returns

import (
	"context"
	"time"

	"storefront-be/internal/cart"
	"storefront-be/internal/db"
	"storefront-be/internal/inventory"
	"storefront-be/internal/ledger"
	"storefront-be/internal/order"
	"storefront-be/internal/payment"

	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Insert(ctx context.Context, q db.DBTX, r *OrderReturn) error {
	args := m.Called(ctx, q, r)
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, q db.DBTX, returnID uint) (*OrderReturn, error) {
	args := m.Called(ctx, q, returnID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*OrderReturn), args.Error(1)
}

func (m *MockRepository) GetForUpdate(ctx context.Context, q db.DBTX, returnID uint) (*OrderReturn, error) {
	args := m.Called(ctx, q, returnID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*OrderReturn), args.Error(1)
}

func (m *MockRepository) Resolve(ctx context.Context, q db.DBTX, r *OrderReturn, from Status) error {
	args := m.Called(ctx, q, r, from)
	return args.Error(0)
}

func (m *MockRepository) ListByOrder(ctx context.Context, q db.DBTX, orderID uint) ([]*OrderReturn, error) {
	args := m.Called(ctx, q, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*OrderReturn), args.Error(1)
}

func (m *MockRepository) ListPending(ctx context.Context, q db.DBTX, limit int) ([]*OrderReturn, error) {
	args := m.Called(ctx, q, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*OrderReturn), args.Error(1)
}

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Insert(ctx context.Context, q db.DBTX, o *order.Order) error {
	args := m.Called(ctx, q, o)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, q db.DBTX, orderID uint) (*order.Order, error) {
	args := m.Called(ctx, q, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) GetForUpdate(ctx context.Context, q db.DBTX, orderID uint) (*order.Order, error) {
	args := m.Called(ctx, q, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, q db.DBTX, orderID uint, from, to order.Status) error {
	args := m.Called(ctx, q, orderID, from, to)
	return args.Error(0)
}

func (m *MockOrderRepository) List(ctx context.Context, q db.DBTX, userID *uint, f order.Filter) ([]*order.Order, error) {
	args := m.Called(ctx, q, userID, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*order.Order), args.Error(1)
}

type MockStock struct {
	mock.Mock
}

func (m *MockStock) Reserve(ctx context.Context, q db.DBTX, productID uint, qty int) (inventory.Reservation, error) {
	args := m.Called(ctx, q, productID, qty)
	return args.Get(0).(inventory.Reservation), args.Error(1)
}

func (m *MockStock) Release(ctx context.Context, q db.DBTX, productID uint, qty int) error {
	args := m.Called(ctx, q, productID, qty)
	return args.Error(0)
}

func (m *MockStock) ReserveAll(ctx context.Context, q db.DBTX, lines []cart.Line) ([]inventory.Reservation, error) {
	args := m.Called(ctx, q, lines)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventory.Reservation), args.Error(1)
}

func (m *MockStock) ReleaseAll(ctx context.Context, q db.DBTX, lines []cart.Line) error {
	args := m.Called(ctx, q, lines)
	return args.Error(0)
}

type MockLedgerStore struct {
	mock.Mock
}

func (m *MockLedgerStore) Append(ctx context.Context, q db.DBTX, e ledger.Entry) (*ledger.Transaction, error) {
	args := m.Called(ctx, q, e)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

func (m *MockLedgerStore) ListByOrder(ctx context.Context, orderID uint) ([]*ledger.Transaction, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Transaction), args.Error(1)
}

func (m *MockLedgerStore) PurchaseFor(ctx context.Context, q db.DBTX, orderID uint) (*ledger.Transaction, error) {
	args := m.Called(ctx, q, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

func (m *MockLedgerStore) Summary(ctx context.Context, from, to *time.Time) (*ledger.Summary, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Summary), args.Error(1)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Authorize(ctx context.Context, req payment.AuthorizeRequest) (*payment.AuthorizeResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.AuthorizeResult), args.Error(1)
}

func (m *MockGateway) Refund(ctx context.Context, transactionID string, amount int64) (*payment.RefundResult, error) {
	args := m.Called(ctx, transactionID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.RefundResult), args.Error(1)
}
