package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/khatape/khata-ledger/internal/model"
	"github.com/khatape/khata-ledger/pkg/pg"
)

type CustomerRepository struct {
	*pg.DB
}

func NewCustomerRepository(db *pg.DB) *CustomerRepository {
	return &CustomerRepository{db}
}

func (r *CustomerRepository) Create(ctx context.Context, customer *model.Customer) error {
	e := toCustomerEntity(customer)
	if err := r.Write(ctx).Create(e).Error; err != nil {
		return mapError("customers.create", "customer", err)
	}
	*customer = *toCustomerModel(e)
	return nil
}

func (r *CustomerRepository) Get(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	var e CustomerEntity
	if err := r.Read(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return nil, mapError("customers.get", "customer", err)
	}
	return toCustomerModel(&e), nil
}

func (r *CustomerRepository) GetByPhone(ctx context.Context, phone string) (*model.Customer, error) {
	var e CustomerEntity
	if err := r.Read(ctx).Where("phone = ?", phone).First(&e).Error; err != nil {
		return nil, mapError("customers.get_by_phone", "customer", err)
	}
	return toCustomerModel(&e), nil
}

func (r *CustomerRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.Read(ctx).Model(&CustomerEntity{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, mapError("customers.exists", "customer", err)
	}
	return count > 0, nil
}

// GetMany returns the customers found among ids, ordered by name.
func (r *CustomerRepository) GetMany(ctx context.Context, ids []uuid.UUID) ([]*model.Customer, error) {
	if len(ids) == 0 {
		return []*model.Customer{}, nil
	}
	var entities []*CustomerEntity
	if err := r.Read(ctx).Where("id IN ?", ids).Order("name ASC").Order("id ASC").Find(&entities).Error; err != nil {
		return nil, mapError("customers.get_many", "customer", err)
	}
	return toCustomerModels(entities), nil
}
