package receiving

import (
	"strings"
	"time"

	"github.com/erp/receiving/internal/domain/shared"
	"github.com/google/uuid"
)

// ReceiptEvent is one committed receiving session: a header plus the receipt,
// return and unordered-capture records posted with it. The ledger is append-only.
type ReceiptEvent struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	EmployeeID string
	ReceivedAt time.Time
	Receipts   []ReceiptDetail
	Returns    []ReturnDetail
	Unordered  []UnorderedCapture
}

// ReceiptDetail records quantity received against an order line
type ReceiptDetail struct {
	ID          uuid.UUID
	OrderLineID uuid.UUID
	Quantity    int
}

// ReturnDetail records quantity sent back against an order line
type ReturnDetail struct {
	ID              uuid.UUID
	OrderLineID     uuid.UUID
	ItemDescription string
	Quantity        int
	Reason          string
}

// UnorderedCapture records goods received with no order line
type UnorderedCapture struct {
	ID               uuid.UUID
	Description      string
	VendorPartNumber string
	Quantity         int
}

// NewReceiptEvent creates the header for a commit
func NewReceiptEvent(orderID uuid.UUID, employeeID string, receivedAt time.Time) (*ReceiptEvent, error) {
	if orderID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORDER", "Order ID cannot be empty")
	}
	employeeID = strings.TrimSpace(employeeID)
	if employeeID == "" {
		return nil, ErrEmployeeRequired
	}
	return &ReceiptEvent{
		ID:         uuid.New(),
		OrderID:    orderID,
		EmployeeID: employeeID,
		ReceivedAt: receivedAt,
	}, nil
}

// PostReceipt appends a receipt record
func (e *ReceiptEvent) PostReceipt(lineID uuid.UUID, quantity int) {
	e.Receipts = append(e.Receipts, ReceiptDetail{
		ID:          uuid.New(),
		OrderLineID: lineID,
		Quantity:    quantity,
	})
}

// PostReturn appends a return record
func (e *ReceiptEvent) PostReturn(lineID uuid.UUID, description string, quantity int, reason string) {
	e.Returns = append(e.Returns, ReturnDetail{
		ID:              uuid.New(),
		OrderLineID:     lineID,
		ItemDescription: description,
		Quantity:        quantity,
		Reason:          strings.TrimSpace(reason),
	})
}

// CaptureUnordered appends an unordered-item record
func (e *ReceiptEvent) CaptureUnordered(item UnorderedItem) {
	e.Unordered = append(e.Unordered, UnorderedCapture{
		ID:               uuid.New(),
		Description:      item.Description,
		VendorPartNumber: item.VendorPartID,
		Quantity:         item.Quantity,
	})
}

// QuantityReceived sums all receipt records
func (e *ReceiptEvent) QuantityReceived() int {
	total := 0
	for _, r := range e.Receipts {
		total += r.Quantity
	}
	return total
}

// QuantityReturned sums all return records
func (e *ReceiptEvent) QuantityReturned() int {
	total := 0
	for _, r := range e.Returns {
		total += r.Quantity
	}
	return total
}
