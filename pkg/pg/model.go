package pg

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Model is the common row header. Ids are UUIDv7 assigned before insert so they
// sort in creation order on every dialect.
type Model struct {
	ID        uuid.UUID `gorm:"primaryKey;type:uuid"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

func (m *Model) BeforeCreate(tx *gorm.DB) error {
	if m.ID != uuid.Nil {
		return nil
	}
	id, err := NewID()
	if err != nil {
		return err
	}
	m.ID = id
	return nil
}

func NewID() (uuid.UUID, error) {
	return uuid.NewV7()
}
