package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/khatape/khata-ledger/internal/model"
	"github.com/khatape/khata-ledger/pkg/pg"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransactionEntity struct {
	ID                uuid.UUID       `gorm:"column:id;primaryKey;type:uuid"`
	BusinessID        uuid.UUID       `gorm:"column:business_id;type:uuid;not null;index:idx_transactions_pair,priority:1"`
	CustomerID        uuid.UUID       `gorm:"column:customer_id;type:uuid;not null;index:idx_transactions_pair,priority:2"`
	Amount            decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null"`
	TransactionType   string          `gorm:"column:transaction_type;not null"`
	Notes             string          `gorm:"column:notes"`
	ReceiptImageURL   *string         `gorm:"column:receipt_image_url"`
	PaymentMethod     *string         `gorm:"column:payment_method"`
	CreatedAt         time.Time       `gorm:"column:created_at;not null;index:idx_transactions_created_at"`
	CreatedBy         uuid.UUID       `gorm:"column:created_by;type:uuid"`
	ApprovedAt        *time.Time      `gorm:"column:approved_at"`
	OriginalPendingID *uuid.UUID      `gorm:"column:original_pending_id;type:uuid;uniqueIndex:idx_transactions_original_pending"`
}

func (TransactionEntity) TableName() string {
	return "transactions"
}

func (e *TransactionEntity) BeforeCreate(tx *gorm.DB) error {
	if e.ID != uuid.Nil {
		return nil
	}
	id, err := pg.NewID()
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

func toTransactionEntity(m *model.Transaction) *TransactionEntity {
	if m == nil {
		return nil
	}
	return &TransactionEntity{
		ID:                m.ID,
		BusinessID:        m.BusinessID,
		CustomerID:        m.CustomerID,
		Amount:            m.Amount,
		TransactionType:   string(m.Type),
		Notes:             m.Notes,
		ReceiptImageURL:   m.ReceiptImageURL,
		PaymentMethod:     m.PaymentMethod,
		CreatedAt:         m.CreatedAt,
		CreatedBy:         m.CreatedBy,
		ApprovedAt:        m.ApprovedAt,
		OriginalPendingID: m.OriginalPendingID,
	}
}

func toTransactionModel(e *TransactionEntity) *model.Transaction {
	if e == nil {
		return nil
	}
	return &model.Transaction{
		ID:                e.ID,
		BusinessID:        e.BusinessID,
		CustomerID:        e.CustomerID,
		Amount:            e.Amount,
		Type:              model.TransactionType(e.TransactionType),
		Notes:             e.Notes,
		ReceiptImageURL:   e.ReceiptImageURL,
		PaymentMethod:     e.PaymentMethod,
		CreatedAt:         e.CreatedAt,
		CreatedBy:         e.CreatedBy,
		ApprovedAt:        e.ApprovedAt,
		OriginalPendingID: e.OriginalPendingID,
	}
}

func toTransactionModels(entities []*TransactionEntity) []*model.Transaction {
	models := make([]*model.Transaction, len(entities))
	for i, e := range entities {
		models[i] = toTransactionModel(e)
	}
	return models
}
