package repository

import (
	"github.com/google/uuid"
	"github.com/khatape/khata-ledger/internal/model"
	"github.com/khatape/khata-ledger/pkg/pg"
	"github.com/shopspring/decimal"
)

type CustomerEntity struct {
	pg.Model
	Name  string `gorm:"column:name;not null"`
	Phone string `gorm:"column:phone;not null;uniqueIndex:idx_customers_phone"`
}

func (CustomerEntity) TableName() string {
	return "customers"
}

type CustomerCreditEntity struct {
	pg.Model
	BusinessID     uuid.UUID       `gorm:"column:business_id;type:uuid;not null;uniqueIndex:idx_customer_credits_pair"`
	CustomerID     uuid.UUID       `gorm:"column:customer_id;type:uuid;not null;uniqueIndex:idx_customer_credits_pair"`
	CurrentBalance decimal.Decimal `gorm:"column:current_balance;type:numeric(14,2);not null;default:0"`
}

func (CustomerCreditEntity) TableName() string {
	return "customer_credits"
}

func toCustomerEntity(m *model.Customer) *CustomerEntity {
	if m == nil {
		return nil
	}
	return &CustomerEntity{
		Model: pg.Model{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		Name:  m.Name,
		Phone: m.Phone,
	}
}

func toCustomerModel(e *CustomerEntity) *model.Customer {
	if e == nil {
		return nil
	}
	return &model.Customer{
		ID:        e.ID,
		Name:      e.Name,
		Phone:     e.Phone,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func toCustomerModels(entities []*CustomerEntity) []*model.Customer {
	models := make([]*model.Customer, len(entities))
	for i, e := range entities {
		models[i] = toCustomerModel(e)
	}
	return models
}

func toCreditEntity(m *model.CustomerCredit) *CustomerCreditEntity {
	if m == nil {
		return nil
	}
	return &CustomerCreditEntity{
		Model:          pg.Model{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		BusinessID:     m.BusinessID,
		CustomerID:     m.CustomerID,
		CurrentBalance: m.CurrentBalance,
	}
}

func toCreditModel(e *CustomerCreditEntity) *model.CustomerCredit {
	if e == nil {
		return nil
	}
	return &model.CustomerCredit{
		ID:             e.ID,
		BusinessID:     e.BusinessID,
		CustomerID:     e.CustomerID,
		CurrentBalance: e.CurrentBalance,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

func toCreditModels(entities []*CustomerCreditEntity) []*model.CustomerCredit {
	models := make([]*model.CustomerCredit, len(entities))
	for i, e := range entities {
		models[i] = toCreditModel(e)
	}
	return models
}
