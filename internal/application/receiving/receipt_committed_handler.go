package receiving

import (
	"context"
	"fmt"

	"github.com/erp/receiving/internal/domain/receiving"
	"github.com/erp/receiving/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LedgerCacheInvalidator drops cached ledger lines for an order
type LedgerCacheInvalidator interface {
	Invalidate(orderID uuid.UUID)
}

// ReceiptCommittedHandler reacts to committed receipts and order closures by
// dropping stale cached ledger lines and writing the receiving audit log.
type ReceiptCommittedHandler struct {
	cache  LedgerCacheInvalidator
	logger *zap.Logger
}

// NewReceiptCommittedHandler creates a new ReceiptCommittedHandler. cache may be nil.
func NewReceiptCommittedHandler(cache LedgerCacheInvalidator, logger *zap.Logger) *ReceiptCommittedHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReceiptCommittedHandler{
		cache:  cache,
		logger: logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *ReceiptCommittedHandler) EventTypes() []string {
	return []string{
		receiving.EventTypeReceiptCommitted,
		receiving.EventTypePurchaseOrderClosed,
	}
}

// Handle processes receiving events
func (h *ReceiptCommittedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *receiving.ReceiptCommittedEvent:
		h.invalidate(e.OrderID)
		h.logger.Info("receipt recorded",
			zap.String("event_id", e.EventID().String()),
			zap.String("receipt_event_id", e.ReceiptEventID.String()),
			zap.String("order_id", e.OrderID.String()),
			zap.String("employee_id", e.EmployeeID),
			zap.Int("quantity_received", e.QuantityReceived),
			zap.Int("quantity_returned", e.QuantityReturned),
			zap.Int("unordered_items", e.UnorderedItems),
			zap.String("received_value", e.ReceivedValue.StringFixed(2)),
			zap.Int("warnings", e.Warnings),
		)
		return nil
	case *receiving.PurchaseOrderClosedEvent:
		h.invalidate(e.OrderID)
		h.logger.Info("purchase order closed",
			zap.String("order_id", e.OrderID.String()),
			zap.String("order_number", e.OrderNumber),
			zap.Bool("forced", e.Forced),
			zap.String("notes", e.Notes),
			zap.Int("released", e.Released),
		)
		return nil
	default:
		h.logger.Error("unexpected event type", zap.String("actual", event.EventType()))
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}
}

func (h *ReceiptCommittedHandler) invalidate(orderID uuid.UUID) {
	if h.cache != nil {
		h.cache.Invalidate(orderID)
	}
}
