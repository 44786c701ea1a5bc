package handler

import (
	"context"
	"time"

	"storefront-be/internal/db"
	"storefront-be/internal/ledger"
	"storefront-be/internal/order"
	"storefront-be/internal/returns"
	"storefront-be/internal/utils"

	"github.com/stretchr/testify/mock"
)

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) result(args mock.Arguments) (*order.Order, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) Checkout(ctx context.Context, userID uint, shippingAddress string) (*order.Order, error) {
	return m.result(m.Called(ctx, userID, shippingAddress))
}

func (m *MockOrderService) OneClickBuy(ctx context.Context, userID uint, shippingAddress, paymentMethod string) (*order.Order, error) {
	return m.result(m.Called(ctx, userID, shippingAddress, paymentMethod))
}

func (m *MockOrderService) CancelOrder(ctx context.Context, actor utils.Actor, orderID uint) (*order.Order, error) {
	return m.result(m.Called(ctx, actor, orderID))
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, orderID uint, status order.Status) (*order.Order, error) {
	return m.result(m.Called(ctx, orderID, status))
}

func (m *MockOrderService) GetOrder(ctx context.Context, actor utils.Actor, orderID uint) (*order.Order, error) {
	return m.result(m.Called(ctx, actor, orderID))
}

func (m *MockOrderService) ListOrders(ctx context.Context, actor utils.Actor, f order.Filter) ([]*order.Order, error) {
	args := m.Called(ctx, actor, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*order.Order), args.Error(1)
}

type MockReturnService struct {
	mock.Mock
}

func (m *MockReturnService) one(args mock.Arguments) (*returns.OrderReturn, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*returns.OrderReturn), args.Error(1)
}

func (m *MockReturnService) many(args mock.Arguments) ([]*returns.OrderReturn, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*returns.OrderReturn), args.Error(1)
}

func (m *MockReturnService) RequestReturn(ctx context.Context, actor utils.Actor, orderID uint, reason returns.Reason, description string) (*returns.OrderReturn, error) {
	return m.one(m.Called(ctx, actor, orderID, reason, description))
}

func (m *MockReturnService) ApproveReturn(ctx context.Context, returnID uint, refundAmount int64, note string) (*returns.OrderReturn, error) {
	return m.one(m.Called(ctx, returnID, refundAmount, note))
}

func (m *MockReturnService) RejectReturn(ctx context.Context, returnID uint, note string) (*returns.OrderReturn, error) {
	return m.one(m.Called(ctx, returnID, note))
}

func (m *MockReturnService) GetReturn(ctx context.Context, actor utils.Actor, returnID uint) (*returns.OrderReturn, error) {
	return m.one(m.Called(ctx, actor, returnID))
}

func (m *MockReturnService) ListReturns(ctx context.Context, actor utils.Actor, orderID uint) ([]*returns.OrderReturn, error) {
	return m.many(m.Called(ctx, actor, orderID))
}

func (m *MockReturnService) ListPending(ctx context.Context, limit int) ([]*returns.OrderReturn, error) {
	return m.many(m.Called(ctx, limit))
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

type MockDriftChecker struct {
	mock.Mock
}

func (m *MockDriftChecker) Check(ctx context.Context) ([]ledger.Drift, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.Drift), args.Error(1)
}
