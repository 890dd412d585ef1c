package receiving

import (
	"time"

	"github.com/google/uuid"
)

// Part holds the inventory counters receiving adjusts
type Part struct {
	ID              uuid.UUID
	Code            string
	Description     string
	QuantityOnHand  int
	QuantityOnOrder int
	UpdatedAt       time.Time
}

// Receive moves qty from on-order to on-hand.
// QuantityOnOrder is not floored here; an over-receipt shows up as a negative
// on-order count.
func (p *Part) Receive(qty int) {
	p.QuantityOnHand += qty
	p.QuantityOnOrder -= qty
	p.UpdatedAt = time.Now()
}

// ReleaseOnOrder gives back qty that will never arrive, flooring on-order at zero.
// It returns the amount actually released.
func (p *Part) ReleaseOnOrder(qty int) int {
	if qty <= 0 {
		return 0
	}
	before := p.QuantityOnOrder
	p.QuantityOnOrder -= qty
	if p.QuantityOnOrder < 0 {
		p.QuantityOnOrder = 0
	}
	p.UpdatedAt = time.Now()
	if released := before - p.QuantityOnOrder; released > 0 {
		return released
	}
	return 0
}
