package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/khatape/khata-ledger/internal/model"
	"github.com/shopspring/decimal"
)

type PendingPaymentEntity struct {
	TransactionID   uuid.UUID       `gorm:"column:transaction_id;primaryKey;type:uuid"`
	BusinessID      uuid.UUID       `gorm:"column:business_id;type:uuid;not null;index:idx_pending_payments_business_status,priority:1"`
	CustomerID      uuid.UUID       `gorm:"column:customer_id;type:uuid;not null;index:idx_pending_payments_customer"`
	Amount          decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null"`
	PaymentMethod   string          `gorm:"column:payment_method;not null"`
	Notes           string          `gorm:"column:notes"`
	Status          string          `gorm:"column:status;not null;index:idx_pending_payments_business_status,priority:2"`
	CreatedAt       time.Time       `gorm:"column:created_at;not null"`
	ApprovedAt      *time.Time      `gorm:"column:approved_at"`
	ApprovedBy      *uuid.UUID      `gorm:"column:approved_by;type:uuid"`
	RejectedAt      *time.Time      `gorm:"column:rejected_at"`
	RejectedBy      *uuid.UUID      `gorm:"column:rejected_by;type:uuid"`
	RejectionReason *string         `gorm:"column:rejection_reason"`
}

func (PendingPaymentEntity) TableName() string {
	return "pending_payments"
}

func toPendingPaymentEntity(m *model.PendingPayment) *PendingPaymentEntity {
	if m == nil {
		return nil
	}
	return &PendingPaymentEntity{
		TransactionID:   m.TransactionID,
		BusinessID:      m.BusinessID,
		CustomerID:      m.CustomerID,
		Amount:          m.Amount,
		PaymentMethod:   m.PaymentMethod,
		Notes:           m.Notes,
		Status:          string(m.Status),
		CreatedAt:       m.CreatedAt,
		ApprovedAt:      m.ApprovedAt,
		ApprovedBy:      m.ApprovedBy,
		RejectedAt:      m.RejectedAt,
		RejectedBy:      m.RejectedBy,
		RejectionReason: m.RejectionReason,
	}
}

func toPendingPaymentModel(e *PendingPaymentEntity) *model.PendingPayment {
	if e == nil {
		return nil
	}
	return &model.PendingPayment{
		TransactionID:   e.TransactionID,
		BusinessID:      e.BusinessID,
		CustomerID:      e.CustomerID,
		Amount:          e.Amount,
		PaymentMethod:   e.PaymentMethod,
		Notes:           e.Notes,
		Status:          model.PendingStatus(e.Status),
		CreatedAt:       e.CreatedAt,
		ApprovedAt:      e.ApprovedAt,
		ApprovedBy:      e.ApprovedBy,
		RejectedAt:      e.RejectedAt,
		RejectedBy:      e.RejectedBy,
		RejectionReason: e.RejectionReason,
	}
}

func toPendingPaymentModels(entities []*PendingPaymentEntity) []*model.PendingPayment {
	models := make([]*model.PendingPayment, len(entities))
	for i, e := range entities {
		models[i] = toPendingPaymentModel(e)
	}
	return models
}
