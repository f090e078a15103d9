package repository

import (
	"github.com/google/uuid"
	"github.com/khatape/khata-ledger/internal/model"
	"github.com/khatape/khata-ledger/pkg/pg"
)

type BusinessEntity struct {
	pg.Model
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;not null;index:idx_businesses_user"`
	Name        string    `gorm:"column:name;not null"`
	Description string    `gorm:"column:description"`
	AccessPin   string    `gorm:"column:access_pin;size:4;not null;uniqueIndex:idx_businesses_access_pin"`
}

func (BusinessEntity) TableName() string {
	return "businesses"
}

func toBusinessEntity(m *model.Business) *BusinessEntity {
	if m == nil {
		return nil
	}
	return &BusinessEntity{
		Model:       pg.Model{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		UserID:      m.UserID,
		Name:        m.Name,
		Description: m.Description,
		AccessPin:   m.AccessPin,
	}
}

func toBusinessModel(e *BusinessEntity) *model.Business {
	if e == nil {
		return nil
	}
	return &model.Business{
		ID:          e.ID,
		UserID:      e.UserID,
		Name:        e.Name,
		Description: e.Description,
		AccessPin:   e.AccessPin,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}
