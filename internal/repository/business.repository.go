package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/khatape/khata-ledger/internal/model"
	"github.com/khatape/khata-ledger/pkg/pg"
	"gorm.io/gorm"
)

type BusinessRepository struct {
	*pg.DB
}

func NewBusinessRepository(db *pg.DB) *BusinessRepository {
	return &BusinessRepository{db}
}

func (r *BusinessRepository) Create(ctx context.Context, business *model.Business) error {
	e := toBusinessEntity(business)
	if err := r.Write(ctx).Create(e).Error; err != nil {
		return mapError("businesses.create", "business", err)
	}
	*business = *toBusinessModel(e)
	return nil
}

func (r *BusinessRepository) Get(ctx context.Context, id uuid.UUID) (*model.Business, error) {
	var e BusinessEntity
	if err := r.Read(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return nil, mapError("businesses.get", "business", err)
	}
	return toBusinessModel(&e), nil
}

func (r *BusinessRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Business, error) {
	var e BusinessEntity
	if err := r.Read(ctx).Where("user_id = ?", userID).Order("created_at ASC").First(&e).Error; err != nil {
		return nil, mapError("businesses.get_by_user", "business", err)
	}
	return toBusinessModel(&e), nil
}

func (r *BusinessRepository) GetByPin(ctx context.Context, pin string) (*model.Business, error) {
	var e BusinessEntity
	if err := r.Read(ctx).Where("access_pin = ?", pin).First(&e).Error; err != nil {
		return nil, mapError("businesses.get_by_pin", "business", err)
	}
	return toBusinessModel(&e), nil
}

func (r *BusinessRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.Read(ctx).Model(&BusinessEntity{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, mapError("businesses.exists", "business", err)
	}
	return count > 0, nil
}

func (r *BusinessRepository) PinExists(ctx context.Context, pin string) (bool, error) {
	var count int64
	if err := r.Read(ctx).Model(&BusinessEntity{}).Where("access_pin = ?", pin).Count(&count).Error; err != nil {
		return false, mapError("businesses.pin_exists", "business", err)
	}
	return count > 0, nil
}

func (r *BusinessRepository) UpdatePin(ctx context.Context, id uuid.UUID, pin string) error {
	return r.update(ctx, "businesses.update_pin", id, map[string]interface{}{"access_pin": pin})
}

func (r *BusinessRepository) UpdateProfile(ctx context.Context, id uuid.UUID, name, description string) error {
	return r.update(ctx, "businesses.update_profile", id, map[string]interface{}{"name": name, "description": description})
}

func (r *BusinessRepository) update(ctx context.Context, op string, id uuid.UUID, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now().UTC()
	res := r.Write(ctx).Model(&BusinessEntity{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return mapError(op, "business", res.Error)
	}
	if res.RowsAffected == 0 {
		return mapError(op, "business", gorm.ErrRecordNotFound)
	}
	return nil
}
