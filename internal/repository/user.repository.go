package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/khatape/khata-ledger/internal/model"
	"github.com/khatape/khata-ledger/pkg/pg"
)

type UserRepository struct {
	*pg.DB
}

func NewUserRepository(db *pg.DB) *UserRepository {
	return &UserRepository{db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	e := toUserEntity(user)
	if err := r.Write(ctx).Create(e).Error; err != nil {
		return mapError("users.create", "user", err)
	}
	*user = *toUserModel(e)
	return nil
}

func (r *UserRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var e UserEntity
	if err := r.Read(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return nil, mapError("users.get", "user", err)
	}
	return toUserModel(&e), nil
}

func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*model.User, error) {
	var e UserEntity
	if err := r.Read(ctx).Where("phone = ?", phone).First(&e).Error; err != nil {
		return nil, mapError("users.get_by_phone", "user", err)
	}
	return toUserModel(&e), nil
}
