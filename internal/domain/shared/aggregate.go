package shared

import (
	"time"

	"github.com/google/uuid"
)

// Aggregate carries the identity, optimistic-lock version and pending events
// of an aggregate root. Embed it by value.
type Aggregate struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int
	pending   []DomainEvent
}

// NewAggregate returns a fresh aggregate at version 1.
func NewAggregate() Aggregate {
	now := time.Now()
	return Aggregate{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}

// Record queues an event to be published once the aggregate is saved.
func (a *Aggregate) Record(event DomainEvent) {
	a.pending = append(a.pending, event)
}

// PendingEvents returns the queued events without clearing them.
func (a *Aggregate) PendingEvents() []DomainEvent {
	return a.pending
}

// PullEvents returns the queued events and clears the queue.
func (a *Aggregate) PullEvents() []DomainEvent {
	events := a.pending
	a.pending = nil
	return events
}

// Advance moves the version forward after a successful save.
func (a *Aggregate) Advance() {
	a.Version++
}
