package receiving

import (
	"context"
	"time"

	"github.com/erp/receiving/internal/domain/receiving"
	"github.com/erp/receiving/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockPurchaseOrderRepository is a mock implementation of PurchaseOrderRepository
type MockPurchaseOrderRepository struct {
	mock.Mock
}

func (m *MockPurchaseOrderRepository) FindOutstanding(ctx context.Context) ([]receiving.OrderSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]receiving.OrderSummary), args.Error(1)
}

func (m *MockPurchaseOrderRepository) FindVisibleOpen(ctx context.Context, id uuid.UUID) (*receiving.PurchaseOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*receiving.PurchaseOrder), args.Error(1)
}

func (m *MockPurchaseOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*receiving.PurchaseOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*receiving.PurchaseOrder), args.Error(1)
}

func (m *MockPurchaseOrderRepository) Save(ctx context.Context, order *receiving.PurchaseOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

// MockLedgerReader is a mock implementation of LedgerReader
type MockLedgerReader struct {
	mock.Mock
}

func (m *MockLedgerReader) OrderLines(ctx context.Context, orderID uuid.UUID) ([]receiving.OrderLine, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]receiving.OrderLine), args.Error(1)
}

func (m *MockLedgerReader) OrderLinesFresh(ctx context.Context, orderID uuid.UUID) ([]receiving.OrderLine, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]receiving.OrderLine), args.Error(1)
}

// MockPartRepository is a mock implementation of PartRepository
type MockPartRepository struct {
	mock.Mock
}

func (m *MockPartRepository) FindByID(ctx context.Context, id uuid.UUID) (*receiving.Part, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*receiving.Part), args.Error(1)
}

func (m *MockPartRepository) Save(ctx context.Context, part *receiving.Part) error {
	args := m.Called(ctx, part)
	return args.Error(0)
}

// MockReceiptEventRepository is a mock implementation of ReceiptEventRepository
type MockReceiptEventRepository struct {
	mock.Mock
}

func (m *MockReceiptEventRepository) Create(ctx context.Context, event *receiving.ReceiptEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// MockIdempotencyStore is a mock implementation of IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Forget(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockIdempotencyStore) Close() error {
	return m.Called().Error(0)
}
