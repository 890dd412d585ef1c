package persistence

import (
	"context"

	"github.com/erp/receiving/internal/domain/receiving"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// orderLinesQuery derives each line's received and returned totals from the
// receipt ledger, plus the reason of its most recent return.
const orderLinesQuery = `
SELECT
	l.id AS line_id,
	l.order_id,
	l.part_id,
	COALESCE(p.code, '') AS part_code,
	COALESCE(p.description, '') AS description,
	l.quantity AS order_qty,
	l.unit_cost,
	COALESCE((SELECT SUM(rd.quantity) FROM receipt_details rd WHERE rd.order_line_id = l.id), 0) AS received_to_date,
	COALESCE((SELECT SUM(rt.quantity) FROM return_details rt WHERE rt.order_line_id = l.id), 0) AS returned_to_date,
	COALESCE((SELECT rt.reason FROM return_details rt WHERE rt.order_line_id = l.id
		ORDER BY rt.created_at DESC, rt.id DESC LIMIT 1), '') AS last_return_reason
FROM purchase_order_lines l
LEFT JOIN parts p ON p.id = l.part_id
WHERE l.order_id = ?
ORDER BY part_code, l.created_at, l.id`

type orderLineRow struct {
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
}

// GormLedgerReader implements LedgerReader with one aggregate query per call.
// It keeps no state, so every read reflects the committed ledger.
type GormLedgerReader struct {
	db *gorm.DB
}

// NewGormLedgerReader creates a new GormLedgerReader
func NewGormLedgerReader(db *gorm.DB) *GormLedgerReader {
	return &GormLedgerReader{db: db}
}

// OrderLines returns the order's lines. An order without lines yields an
// empty slice and no error.
func (r *GormLedgerReader) OrderLines(ctx context.Context, orderID uuid.UUID) ([]receiving.OrderLine, error) {
	return r.OrderLinesFresh(ctx, orderID)
}

// OrderLinesFresh reads the order's lines from the store
func (r *GormLedgerReader) OrderLinesFresh(ctx context.Context, orderID uuid.UUID) ([]receiving.OrderLine, error) {
	var rows []orderLineRow
	if err := r.db.WithContext(ctx).Raw(orderLinesQuery, orderID).Scan(&rows).Error; err != nil {
		return nil, err
	}

	lines := make([]receiving.OrderLine, len(rows))
	for i, row := range rows {
		lines[i] = receiving.OrderLine{
			LineID:           row.LineID,
			OrderID:          row.OrderID,
			PartID:           row.PartID,
			PartCode:         row.PartCode,
			Description:      row.Description,
			OrderQty:         row.OrderQty,
			UnitCost:         row.UnitCost,
			ReceivedToDate:   row.ReceivedToDate,
			ReturnedToDate:   row.ReturnedToDate,
			LastReturnReason: row.LastReturnReason,
		}
	}
	return lines, nil
}

var _ receiving.LedgerReader = (*GormLedgerReader)(nil)
