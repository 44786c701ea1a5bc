package order

import (
	"context"
	"sync"
	"time"

	"storefront-be/internal/cart"
	"storefront-be/internal/db"
	"storefront-be/internal/inventory"
	"storefront-be/internal/ledger"
	"storefront-be/internal/payment"
	"storefront-be/internal/product"

	"github.com/stretchr/testify/mock"
)

// --- Mocks ---

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Insert(ctx context.Context, q db.DBTX, o *Order) error {
	args := m.Called(ctx, q, o)
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, q db.DBTX, orderID uint) (*Order, error) {
	args := m.Called(ctx, q, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Order), args.Error(1)
}

func (m *MockRepository) GetForUpdate(ctx context.Context, q db.DBTX, orderID uint) (*Order, error) {
	args := m.Called(ctx, q, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Order), args.Error(1)
}

func (m *MockRepository) UpdateStatus(ctx context.Context, q db.DBTX, orderID uint, from, to Status) error {
	args := m.Called(ctx, q, orderID, from, to)
	return args.Error(0)
}

func (m *MockRepository) List(ctx context.Context, q db.DBTX, userID *uint, f Filter) ([]*Order, error) {
	args := m.Called(ctx, q, userID, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Order), args.Error(1)
}

type MockCartRepository struct {
	mock.Mock
}

func (m *MockCartRepository) GetCartLines(ctx context.Context, q db.DBTX, userID uint) ([]cart.Line, error) {
	args := m.Called(ctx, q, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]cart.Line), args.Error(1)
}

func (m *MockCartRepository) ClearCart(ctx context.Context, q db.DBTX, userID uint) error {
	args := m.Called(ctx, q, userID)
	return args.Error(0)
}

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetByIDs(ctx context.Context, q db.DBTX, ids []uint) (map[uint]*product.Product, error) {
	args := m.Called(ctx, q, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uint]*product.Product), args.Error(1)
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

// fakeStock applies the conditional decrement in memory. ReserveAll restores
// earlier lines on failure the way a rolled back transaction would.
type fakeStock struct {
	mu     sync.Mutex
	levels map[uint]int
}

func newFakeStock(levels map[uint]int) *fakeStock {
	return &fakeStock{levels: levels}
}

func (f *fakeStock) level(id uint) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.levels[id]
}

func (f *fakeStock) Reserve(_ context.Context, _ db.DBTX, productID uint, qty int) (inventory.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.levels[productID] < qty {
		return inventory.Reservation{}, &inventory.StockError{ProductID: productID, Requested: qty, Err: inventory.ErrInsufficientStock}
	}
	f.levels[productID] -= qty
	return inventory.Reservation{ProductID: productID, Quantity: qty, Remaining: f.levels[productID]}, nil
}

func (f *fakeStock) Release(_ context.Context, _ db.DBTX, productID uint, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.levels[productID] += qty
	return nil
}

func (f *fakeStock) ReserveAll(ctx context.Context, q db.DBTX, lines []cart.Line) ([]inventory.Reservation, error) {
	var done []inventory.Reservation
	for _, l := range cart.Merge(lines) {
		res, err := f.Reserve(ctx, q, l.ProductID, l.Quantity)
		if err != nil {
			for _, r := range done {
				_ = f.Release(ctx, q, r.ProductID, r.Quantity)
			}
			return nil, err
		}
		done = append(done, res)
	}
	return done, nil
}

func (f *fakeStock) ReleaseAll(ctx context.Context, q db.DBTX, lines []cart.Line) error {
	for _, l := range cart.Merge(lines) {
		_ = f.Release(ctx, q, l.ProductID, l.Quantity)
	}
	return nil
}
