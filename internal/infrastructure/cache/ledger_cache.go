package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/erp/receiving/internal/domain/receiving"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type cacheEntry[T any] struct {
	value     T
	expiresAt time.Time
}

func (e *cacheEntry[T]) isExpired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// CachedLedgerReader serves OrderLines from a short-lived in-process cache in
// front of another LedgerReader. OrderLinesFresh always reads through and
// refreshes the cached copy.
type CachedLedgerReader struct {
	next   receiving.LedgerReader
	ttl    time.Duration
	logger *zap.Logger
	lines  sync.Map // uuid.UUID -> *cacheEntry[[]receiving.OrderLine]

	hits   int64
	misses int64
}

// NewCachedLedgerReader wraps next. A ttl of zero or less disables caching.
func NewCachedLedgerReader(next receiving.LedgerReader, ttl time.Duration, logger *zap.Logger) *CachedLedgerReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedLedgerReader{
		next:   next,
		ttl:    ttl,
		logger: logger,
	}
}

// OrderLines returns cached lines when present and not expired
func (c *CachedLedgerReader) OrderLines(ctx context.Context, orderID uuid.UUID) ([]receiving.OrderLine, error) {
	if c.ttl <= 0 {
		return c.next.OrderLines(ctx, orderID)
	}

	if v, ok := c.lines.Load(orderID); ok {
		e := v.(*cacheEntry[[]receiving.OrderLine])
		if !e.isExpired(time.Now()) {
			atomic.AddInt64(&c.hits, 1)
			return cloneLines(e.value), nil
		}
		c.lines.Delete(orderID)
	}

	atomic.AddInt64(&c.misses, 1)
	return c.OrderLinesFresh(ctx, orderID)
}

// OrderLinesFresh reads through to the store and refreshes the cache
func (c *CachedLedgerReader) OrderLinesFresh(ctx context.Context, orderID uuid.UUID) ([]receiving.OrderLine, error) {
	lines, err := c.next.OrderLinesFresh(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if c.ttl > 0 {
		c.lines.Store(orderID, &cacheEntry[[]receiving.OrderLine]{
			value:     cloneLines(lines),
			expiresAt: time.Now().Add(c.ttl),
		})
	}
	return lines, nil
}

// Invalidate drops the cached lines of an order
func (c *CachedLedgerReader) Invalidate(orderID uuid.UUID) {
	c.lines.Delete(orderID)
	c.logger.Debug("ledger cache invalidated", zap.String("order_id", orderID.String()))
}

// Stats returns cache hits and misses
func (c *CachedLedgerReader) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

func cloneLines(lines []receiving.OrderLine) []receiving.OrderLine {
	return append([]receiving.OrderLine(nil), lines...)
}

var _ receiving.LedgerReader = (*CachedLedgerReader)(nil)
