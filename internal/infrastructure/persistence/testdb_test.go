package persistence

import (
	"testing"
	"time"

	"github.com/erp/receiving/internal/domain/receiving"
	"github.com/erp/receiving/internal/infrastructure/config"
	"github.com/erp/receiving/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newTestDB opens a migrated in-memory sqlite database
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := NewDatabase(&config.DatabaseConfig{Driver: config.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate())
	t.Cleanup(func() { _ = database.Close() })
	return database.DB
}

type seededLine struct {
	id     uuid.UUID
	partID uuid.UUID
}

type orderSeed struct {
	number    string
	orderDate *time.Time
	vendor    string
	closed    bool
	hidden    bool
	lines     []lineSeed
}

type lineSeed struct {
	partCode string
	qty      int
	unitCost string
	onOrder  int
}

func day(d int) *time.Time {
	t := time.Date(2024, time.March, d, 0, 0, 0, 0, time.UTC)
	return &t
}

// seedOrder writes a vendor, the parts and a purchase order with its lines
func seedOrder(t *testing.T, db *gorm.DB, seed orderSeed) (uuid.UUID, []seededLine) {
	t.Helper()
	now := time.Now().UTC()

	order := models.PurchaseOrderModel{
		OrderNumber: seed.number,
		OrderDate:   seed.orderDate,
		Closed:      seed.closed,
		Hidden:      seed.hidden,
	}
	order.ID = uuid.New()
	order.CreatedAt, order.UpdatedAt = now, now
	order.Version = 1

	if seed.vendor != "" {
		vendor := models.VendorModel{Name: seed.vendor, Phone: "555-0100"}
		require.NoError(t, db.Create(&vendor).Error)
		require.NotEqual(t, uuid.Nil, vendor.ID)
		order.VendorID = &vendor.ID
	}
	require.NoError(t, db.Omit("Vendor", "Lines").Create(&order).Error)

	var seeded []seededLine
	for i, ls := range seed.lines {
		part := models.PartModel{
			Code:            ls.partCode,
			Description:     "Part " + ls.partCode,
			QuantityOnOrder: ls.onOrder,
		}
		part.ID = uuid.New()
		part.CreatedAt, part.UpdatedAt = now, now
		require.NoError(t, db.Create(&part).Error)

		cost := decimal.Zero
		if ls.unitCost != "" {
			cost = decimal.RequireFromString(ls.unitCost)
		}
		line := models.PurchaseOrderLineModel{
			OrderID:  order.ID,
			PartID:   part.ID,
			Quantity: ls.qty,
			UnitCost: cost,
		}
		line.ID = uuid.New()
		line.CreatedAt = now.Add(time.Duration(i) * time.Millisecond)
		line.UpdatedAt = line.CreatedAt
		require.NoError(t, db.Create(&line).Error)
		seeded = append(seeded, seededLine{id: line.ID, partID: part.ID})
	}
	return order.ID, seeded
}

func loadPart(t *testing.T, db *gorm.DB, id uuid.UUID) models.PartModel {
	t.Helper()
	var part models.PartModel
	require.NoError(t, db.First(&part, "id = ?", id).Error)
	return part
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

// loadReceiptEvents reads back an order's receipt events, oldest first, with
// their detail rows
func loadReceiptEvents(t *testing.T, db *gorm.DB, orderID uuid.UUID) []receiving.ReceiptEvent {
	t.Helper()
	var rows []models.ReceiptEventModel
	require.NoError(t, db.
		Preload("Receipts").
		Preload("Returns").
		Preload("Unordered").
		Where("order_id = ?", orderID).
		Order("received_at, id").
		Find(&rows).Error)

	events := make([]receiving.ReceiptEvent, len(rows))
	for i := range rows {
		events[i] = *rows[i].ToDomain()
	}
	return events
}
