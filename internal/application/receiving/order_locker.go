package receiving

import (
	"sync"

	"github.com/google/uuid"
)

// OrderLocker serializes commits and closures per purchase order within this
// process. Different orders never block each other.
type OrderLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*orderLock
}

type orderLock struct {
	mu   sync.Mutex
	refs int
}

// NewOrderLocker creates an OrderLocker
func NewOrderLocker() *OrderLocker {
	return &OrderLocker{locks: make(map[uuid.UUID]*orderLock)}
}

// Lock blocks until the order is free and returns the function that releases it.
func (l *OrderLocker) Lock(orderID uuid.UUID) (unlock func()) {
	l.mu.Lock()
	lock, ok := l.locks[orderID]
	if !ok {
		lock = &orderLock{}
		l.locks[orderID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			lock.mu.Unlock()

			l.mu.Lock()
			lock.refs--
			if lock.refs == 0 {
				delete(l.locks, orderID)
			}
			l.mu.Unlock()
		})
	}
}

// Held returns the number of orders currently locked or waited on.
func (l *OrderLocker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
