package receiving

import (
	"context"

	"github.com/google/uuid"
)

// PurchaseOrderRepository loads and saves purchase order headers
type PurchaseOrderRepository interface {
	// FindOutstanding lists visible open orders, newest order date first,
	// then vendor name, then order number.
	FindOutstanding(ctx context.Context) ([]OrderSummary, error)

	// FindVisibleOpen returns the order only if it is open and visible,
	// shared.ErrNotFound otherwise.
	FindVisibleOpen(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)

	// FindByID returns the order regardless of state
	FindByID(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)

	// Save persists closed/notes/closed_at with an optimistic version check
	Save(ctx context.Context, order *PurchaseOrder) error
}

// LedgerReader derives order lines from the receipt ledger
type LedgerReader interface {
	// OrderLines may be served from a read cache
	OrderLines(ctx context.Context, orderID uuid.UUID) ([]OrderLine, error)

	// OrderLinesFresh always reads the store
	OrderLinesFresh(ctx context.Context, orderID uuid.UUID) ([]OrderLine, error)
}

// PartRepository loads and saves inventory counters
type PartRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Part, error)
	Save(ctx context.Context, part *Part) error
}

// ReceiptEventRepository appends receipt events and their detail records
type ReceiptEventRepository interface {
	Create(ctx context.Context, event *ReceiptEvent) error
}
