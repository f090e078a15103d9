package repository

import (
	"github.com/khatape/khata-ledger/internal/model"
	"github.com/khatape/khata-ledger/pkg/pg"
)

type UserEntity struct {
	pg.Model
	Name     string `gorm:"column:name;not null"`
	Phone    string `gorm:"column:phone;not null;uniqueIndex:idx_users_phone"`
	UserType string `gorm:"column:user_type;not null"`
}

func (UserEntity) TableName() string {
	return "users"
}

func toUserEntity(m *model.User) *UserEntity {
	if m == nil {
		return nil
	}
	return &UserEntity{
		Model:    pg.Model{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		Name:     m.Name,
		Phone:    m.Phone,
		UserType: string(m.Type),
	}
}

func toUserModel(e *UserEntity) *model.User {
	if e == nil {
		return nil
	}
	return &model.User{
		ID:        e.ID,
		Name:      e.Name,
		Phone:     e.Phone,
		Type:      model.UserType(e.UserType),
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}
