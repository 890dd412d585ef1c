package receiving

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderLine is the ledger-derived read model for one purchase order line plus the
// quantities being edited in the current receiving session.
//
// ReceivedToDate and ReturnedToDate are sums over the receipt ledger and are never
// stored on the line itself. OutstandingBase is the outstanding quantity captured
// when the session was opened and caps Received for this batch.
//
// Unresolved marks an edit whose line id is not a line of the order any more.
// Its quantities are not bounded by the ledger and the commit skips it with an
// IntegrityWarning.
type OrderLine struct {
	LineID           uuid.UUID
	OrderID          uuid.UUID
	PartID           uuid.UUID
	PartCode         string
	Description      string
	OrderQty         int
	UnitCost         decimal.Decimal
	ReceivedToDate   int
	ReturnedToDate   int
	LastReturnReason string

	OutstandingBase int
	Received        int
	Returned        int
	Reason          string
	Unresolved      bool
}

// Outstanding returns the quantity still to be received, floored at zero
func (l OrderLine) Outstanding() int {
	if remaining := l.OrderQty - l.ReceivedToDate; remaining > 0 {
		return remaining
	}
	return 0
}

// IsFullyReceived returns true if nothing is outstanding on the line
func (l OrderLine) IsFullyReceived() bool {
	return l.Outstanding() == 0
}

// HasChanges reports whether the session entered anything on this line
func (l OrderLine) HasChanges() bool {
	return l.Received > 0 || l.Returned > 0
}

// ReceivedValue prices the quantity received in this session at the order's unit cost
func (l OrderLine) ReceivedValue() decimal.Decimal {
	return l.UnitCost.Mul(decimal.NewFromInt(int64(l.Received)))
}

// Label is how the line is named in messages: the part code, or the part id when
// the code is unknown.
func (l OrderLine) Label() string {
	if l.PartCode != "" {
		return l.PartCode
	}
	return l.PartID.String()
}

// StartSession snapshots OutstandingBase and clears the editable fields
func (l OrderLine) StartSession() OrderLine {
	l.OutstandingBase = l.Outstanding()
	l.Received = 0
	l.Returned = 0
	l.Reason = ""
	return l
}

// AllReceived reports whether every line is fully received. An order without
// lines is never considered fully received.
func AllReceived(lines []OrderLine) bool {
	if len(lines) == 0 {
		return false
	}
	for _, l := range lines {
		if !l.IsFullyReceived() {
			return false
		}
	}
	return true
}
