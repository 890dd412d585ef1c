package receiving

import (
	"time"

	"github.com/erp/receiving/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type constants for receiving
const (
	EventTypeReceiptCommitted    = "receiving.receipt_committed"
	EventTypePurchaseOrderClosed = "receiving.purchase_order_closed"
)

// ReceiptCommittedEvent is published after a receipt batch commits
type ReceiptCommittedEvent struct {
	shared.EventHeader
	ReceiptEventID   uuid.UUID       `json:"receipt_event_id"`
	OrderID          uuid.UUID       `json:"order_id"`
	EmployeeID       string          `json:"employee_id"`
	QuantityReceived int             `json:"quantity_received"`
	QuantityReturned int             `json:"quantity_returned"`
	UnorderedItems   int             `json:"unordered_items"`
	ReceivedValue    decimal.Decimal `json:"received_value"`
	Warnings         int             `json:"warnings"`
	AutoClosed       bool            `json:"auto_closed"`
	ReceivedAt       time.Time       `json:"received_at"`
}

// NewReceiptCommittedEvent creates a ReceiptCommittedEvent
func NewReceiptCommittedEvent(event *ReceiptEvent, value decimal.Decimal, warnings int, autoClosed bool) *ReceiptCommittedEvent {
	return &ReceiptCommittedEvent{
		EventHeader:      shared.NewEventHeader(EventTypeReceiptCommitted, event.OrderID),
		ReceiptEventID:   event.ID,
		OrderID:          event.OrderID,
		EmployeeID:       event.EmployeeID,
		QuantityReceived: event.QuantityReceived(),
		QuantityReturned: event.QuantityReturned(),
		UnorderedItems:   len(event.Unordered),
		ReceivedValue:    value,
		Warnings:         warnings,
		AutoClosed:       autoClosed,
		ReceivedAt:       event.ReceivedAt,
	}
}

// PurchaseOrderClosedEvent is raised when an order closes, automatically or forced
type PurchaseOrderClosedEvent struct {
	shared.EventHeader
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Forced      bool      `json:"forced"`
	Notes       string    `json:"notes"`
	Released    int       `json:"released"`
	ClosedAt    time.Time `json:"closed_at"`
}

// NewPurchaseOrderClosedEvent creates a PurchaseOrderClosedEvent
func NewPurchaseOrderClosedEvent(o *PurchaseOrder, forced bool, released int) *PurchaseOrderClosedEvent {
	closedAt := time.Now()
	if o.ClosedAt != nil {
		closedAt = *o.ClosedAt
	}
	return &PurchaseOrderClosedEvent{
		EventHeader: shared.NewEventHeader(EventTypePurchaseOrderClosed, o.ID),
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Forced:      forced,
		Notes:       o.Notes,
		Released:    released,
		ClosedAt:    closedAt,
	}
}
