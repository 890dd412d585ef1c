package receiving

import (
	"context"

	"github.com/erp/receiving/internal/domain/receiving"
)

// TransactionScope runs a unit of work against repositories that share one
// database transaction. A non-nil error from fn rolls everything back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories gives access to the receiving repositories inside a
// transaction. All of them share the same underlying transaction.
type TransactionalRepositories interface {
	OrderRepo() receiving.PurchaseOrderRepository
	LedgerReader() receiving.LedgerReader
	PartRepo() receiving.PartRepository
	ReceiptRepo() receiving.ReceiptEventRepository
}

// NoOpTransactionScope runs the function without a transaction. Used in tests.
type NoOpTransactionScope struct {
	orderRepo   receiving.PurchaseOrderRepository
	ledger      receiving.LedgerReader
	partRepo    receiving.PartRepository
	receiptRepo receiving.ReceiptEventRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	orderRepo receiving.PurchaseOrderRepository,
	ledger receiving.LedgerReader,
	partRepo receiving.PartRepository,
	receiptRepo receiving.ReceiptEventRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		orderRepo:   orderRepo,
		ledger:      ledger,
		partRepo:    partRepo,
		receiptRepo: receiptRepo,
	}
}

// Execute calls fn directly.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// OrderRepo returns the purchase order repository.
func (s *NoOpTransactionScope) OrderRepo() receiving.PurchaseOrderRepository {
	return s.orderRepo
}

// LedgerReader returns the ledger reader.
func (s *NoOpTransactionScope) LedgerReader() receiving.LedgerReader {
	return s.ledger
}

// PartRepo returns the part repository.
func (s *NoOpTransactionScope) PartRepo() receiving.PartRepository {
	return s.partRepo
}

// ReceiptRepo returns the receipt event repository.
func (s *NoOpTransactionScope) ReceiptRepo() receiving.ReceiptEventRepository {
	return s.receiptRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
