package receiving

import (
	"strings"
	"time"

	"github.com/erp/receiving/internal/domain/shared"
	"github.com/google/uuid"
)

// AutoCloseNote is written to a purchase order closed because every line was received.
const AutoCloseNote = "PO auto-closed: all items received."

// OrderStatus is the receiving lifecycle state of a purchase order
type OrderStatus string

const (
	OrderStatusOpen   OrderStatus = "OPEN"
	OrderStatusClosed OrderStatus = "CLOSED"
)

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status.
// Closed is terminal: receiving never reopens an order.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	return s == OrderStatusOpen && target == OrderStatusClosed
}

// PurchaseOrder is the aggregate root the receiving engine reconciles against.
// Orders are created by the ordering subsystem; receiving only ever closes them.
type PurchaseOrder struct {
	shared.Aggregate
	OrderNumber string
	OrderDate   *time.Time
	VendorID    uuid.UUID
	VendorName  string
	VendorPhone string
	Closed      bool
	Notes       string
	ClosedAt    *time.Time
	Hidden      bool
}

// Status derives the lifecycle state from the closed flag
func (o *PurchaseOrder) Status() OrderStatus {
	if o.Closed {
		return OrderStatusClosed
	}
	return OrderStatusOpen
}

// IsVisible reports whether the order shows up in receiving at all: it must have
// been placed (has an order date) and not be removed from view.
func (o *PurchaseOrder) IsVisible() bool {
	return o.OrderDate != nil && !o.Hidden
}

// CanReceive returns true if receipts may still be posted against the order
func (o *PurchaseOrder) CanReceive() bool {
	return !o.Closed
}

// EnsureReceivable returns an INVALID_STATE error for a closed order
func (o *PurchaseOrder) EnsureReceivable() error {
	if !o.CanReceive() {
		return shared.ErrInvalidState.Withf("Purchase order %s is closed", o.displayNumber())
	}
	return nil
}

// AutoClose closes the order after a commit left nothing outstanding
func (o *PurchaseOrder) AutoClose() error {
	return o.close(AutoCloseNote, false, 0)
}

// ForceClose closes the order on operator request. The reason is mandatory and
// becomes the order notes. released is the on-order quantity given back to parts,
// carried on the emitted event.
func (o *PurchaseOrder) ForceClose(reason string, released int) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrForceCloseReasonRequired
	}
	return o.close(reason, true, released)
}

func (o *PurchaseOrder) close(notes string, forced bool, released int) error {
	if !o.Status().CanTransitionTo(OrderStatusClosed) {
		return shared.ErrInvalidState.Withf("Purchase order %s is already closed", o.displayNumber())
	}

	now := time.Now()
	o.Closed = true
	o.Notes = notes
	o.ClosedAt = &now
	o.UpdatedAt = now

	o.Record(NewPurchaseOrderClosedEvent(o, forced, released))
	return nil
}

func (o *PurchaseOrder) displayNumber() string {
	if o.OrderNumber != "" {
		return o.OrderNumber
	}
	return o.ID.String()
}

// OrderSummary is one row of the outstanding-orders list
type OrderSummary struct {
	OrderID     uuid.UUID
	OrderNumber string
	OrderDate   time.Time
	VendorName  string
	VendorPhone string
}

// OrderHeader is the header shown above the receiving grid
type OrderHeader struct {
	OrderID     uuid.UUID
	OrderNumber string
	OrderDate   time.Time
	VendorName  string
	VendorPhone string
}

// Header builds the display header, substituting placeholders for a missing vendor
func (o *PurchaseOrder) Header() OrderHeader {
	h := OrderHeader{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		VendorName:  o.VendorName,
		VendorPhone: o.VendorPhone,
	}
	if o.OrderDate != nil {
		h.OrderDate = *o.OrderDate
	}
	if h.VendorName == "" {
		h.VendorName = "Unknown Vendor"
	}
	if h.VendorPhone == "" {
		h.VendorPhone = "N/A"
	}
	return h
}
