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

// GormPartRepository implements PartRepository using GORM
type GormPartRepository struct {
	db *gorm.DB
}

// NewGormPartRepository creates a new GormPartRepository
func NewGormPartRepository(db *gorm.DB) *GormPartRepository {
	return &GormPartRepository{db: db}
}

// FindByID loads a part. On postgres the row is locked for the rest of the
// transaction so concurrent commits touching the same part serialize.
func (r *GormPartRepository) FindByID(ctx context.Context, id uuid.UUID) (*receiving.Part, error) {
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var model models.PartModel
	if err := query.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save writes the inventory counters of a part
func (r *GormPartRepository) Save(ctx context.Context, part *receiving.Part) error {
	if part.UpdatedAt.IsZero() {
		part.UpdatedAt = time.Now()
	}
	result := r.db.WithContext(ctx).
		Model(&models.PartModel{}).
		Where("id = ?", part.ID).
		Updates(map[string]any{
			"quantity_on_hand":  part.QuantityOnHand,
			"quantity_on_order": part.QuantityOnOrder,
			"updated_at":        part.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ receiving.PartRepository = (*GormPartRepository)(nil)
