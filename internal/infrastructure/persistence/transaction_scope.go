package persistence

import (
	"context"

	appreceiving "github.com/erp/receiving/internal/application/receiving"
	"github.com/erp/receiving/internal/domain/receiving"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// Every repository handed to fn shares the same transaction.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction. The transaction is rolled
// back if fn returns an error or panics, and committed otherwise.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appreceiving.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// OrderRepo returns the purchase order repository scoped to the current
// transaction. Orders read through it stay locked until the transaction ends.
func (r *gormTransactionalRepositories) OrderRepo() receiving.PurchaseOrderRepository {
	return newLockingPurchaseOrderRepository(r.tx)
}

// LedgerReader returns an uncached ledger reader scoped to the current transaction.
func (r *gormTransactionalRepositories) LedgerReader() receiving.LedgerReader {
	return NewGormLedgerReader(r.tx)
}

// PartRepo returns the part repository scoped to the current transaction.
func (r *gormTransactionalRepositories) PartRepo() receiving.PartRepository {
	return NewGormPartRepository(r.tx)
}

// ReceiptRepo returns the receipt event repository scoped to the current transaction.
func (r *gormTransactionalRepositories) ReceiptRepo() receiving.ReceiptEventRepository {
	return NewGormReceiptEventRepository(r.tx)
}

var _ appreceiving.TransactionScope = (*GormTransactionScope)(nil)
var _ appreceiving.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
