package persistence

import (
	"context"

	"github.com/erp/receiving/internal/domain/receiving"
	"github.com/erp/receiving/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormReceiptEventRepository implements ReceiptEventRepository using GORM.
// Events are append-only: there is no update or delete.
type GormReceiptEventRepository struct {
	db *gorm.DB
}

// NewGormReceiptEventRepository creates a new GormReceiptEventRepository
func NewGormReceiptEventRepository(db *gorm.DB) *GormReceiptEventRepository {
	return &GormReceiptEventRepository{db: db}
}

// Create writes the event header together with its receipt, return and
// unordered-capture rows
func (r *GormReceiptEventRepository) Create(ctx context.Context, event *receiving.ReceiptEvent) error {
	model := models.ReceiptEventModelFromDomain(event)
	return r.db.WithContext(ctx).Create(model).Error
}

var _ receiving.ReceiptEventRepository = (*GormReceiptEventRepository)(nil)
