package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/receiving/internal/domain/receiving"
	"github.com/erp/receiving/internal/domain/shared"
	"github.com/erp/receiving/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPurchaseOrderRepository implements PurchaseOrderRepository using GORM
type GormPurchaseOrderRepository struct {
	db       *gorm.DB
	lockRows bool
}

// NewGormPurchaseOrderRepository creates a new GormPurchaseOrderRepository
func NewGormPurchaseOrderRepository(db *gorm.DB) *GormPurchaseOrderRepository {
	return &GormPurchaseOrderRepository{db: db}
}

// newLockingPurchaseOrderRepository reads orders FOR UPDATE on postgres so
// that commits against one order are serialized across processes. tx must be
// an open transaction.
func newLockingPurchaseOrderRepository(tx *gorm.DB) *GormPurchaseOrderRepository {
	return &GormPurchaseOrderRepository{db: tx, lockRows: true}
}

// outstandingRow is the scan target of the outstanding-orders query
type outstandingRow struct {
	ID          uuid.UUID
	OrderNumber string
	OrderDate   time.Time
	VendorName  string
	VendorPhone string
}

// FindOutstanding lists open, visible orders that have been placed
func (r *GormPurchaseOrderRepository) FindOutstanding(ctx context.Context) ([]receiving.OrderSummary, error) {
	var rows []outstandingRow
	err := r.db.WithContext(ctx).
		Table("purchase_orders AS po").
		Select("po.id, po.order_number, po.order_date, " +
			"COALESCE(v.name, '') AS vendor_name, COALESCE(v.phone, '') AS vendor_phone").
		Joins("LEFT JOIN vendors v ON v.id = po.vendor_id").
		Where("po.closed = ? AND po.hidden = ? AND po.order_date IS NOT NULL", false, false).
		Order("po.order_date DESC, vendor_name, po.order_number, po.id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	summaries := make([]receiving.OrderSummary, len(rows))
	for i, row := range rows {
		summaries[i] = receiving.OrderSummary{
			OrderID:     row.ID,
			OrderNumber: row.OrderNumber,
			OrderDate:   row.OrderDate,
			VendorName:  row.VendorName,
			VendorPhone: row.VendorPhone,
		}
	}
	return summaries, nil
}

// FindVisibleOpen returns the order only if receiving can see it
func (r *GormPurchaseOrderRepository) FindVisibleOpen(ctx context.Context, id uuid.UUID) (*receiving.PurchaseOrder, error) {
	order, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.IsVisible() || !order.CanReceive() {
		return nil, shared.ErrNotFound
	}
	return order, nil
}

// FindByID finds a purchase order by its ID, with its vendor
func (r *GormPurchaseOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*receiving.PurchaseOrder, error) {
	query := r.db.WithContext(ctx)
	if r.lockRows && r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var model models.PurchaseOrderModel
	if err := query.
		Preload("Vendor").
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save writes the closure fields of an order with an optimistic version check.
// On success order.Version is advanced.
func (r *GormPurchaseOrderRepository) Save(ctx context.Context, order *receiving.PurchaseOrder) error {
	currentVersion := order.Version
	result := r.db.WithContext(ctx).
		Model(&models.PurchaseOrderModel{}).
		Where("id = ? AND version = ?", order.ID, currentVersion).
		Updates(map[string]any{
			"closed":     order.Closed,
			"notes":      order.Notes,
			"closed_at":  order.ClosedAt,
			"hidden":     order.Hidden,
			"version":    currentVersion + 1,
			"updated_at": order.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.PurchaseOrderModel{}).
			Where("id = ?", order.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return shared.ErrNotFound
		}
		return shared.ErrConcurrencyConflict
	}

	order.Advance()
	return nil
}

var _ receiving.PurchaseOrderRepository = (*GormPurchaseOrderRepository)(nil)
