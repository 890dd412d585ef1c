package models

import (
	"time"

	"github.com/erp/receiving/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EntityModel holds the columns every mutable table carries.
type EntityModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate assigns an ID to rows inserted without one.
func (m *EntityModel) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// VersionedModel adds the column checked by optimistic saves.
type VersionedModel struct {
	EntityModel
	Version int `gorm:"not null;default:1"`
}

func versionedFrom(a shared.Aggregate) VersionedModel {
	return VersionedModel{
		EntityModel: EntityModel{ID: a.ID, CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt},
		Version:     a.Version,
	}
}

func (m VersionedModel) aggregate() shared.Aggregate {
	return shared.Aggregate{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
		Version:   m.Version,
	}
}

// LedgerModel is embedded by append-only ledger rows. They are inserted once
// and never updated, so there is no UpdatedAt.
type LedgerModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
}
