package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/khatape/khata-ledger/internal/model"
	"github.com/khatape/khata-ledger/pkg/pg"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionRepository is append-only: there is no update or delete.
type TransactionRepository struct {
	*pg.DB
}

func NewTransactionRepository(db *pg.DB) *TransactionRepository {
	return &TransactionRepository{db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *model.Transaction) error {
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	e := toTransactionEntity(tx)
	if err := r.Write(ctx).Create(e).Error; err != nil {
		return mapError("transactions.create", "transaction", err)
	}
	*tx = *toTransactionModel(e)
	return nil
}

func (r *TransactionRepository) Get(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	var e TransactionEntity
	if err := r.Read(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return nil, mapError("transactions.get", "transaction", err)
	}
	return toTransactionModel(&e), nil
}

// ListForPair returns every transaction of one business/customer pair in creation order.
func (r *TransactionRepository) ListForPair(ctx context.Context, businessID, customerID uuid.UUID) ([]*model.Transaction, error) {
	var entities []*TransactionEntity
	err := r.Read(ctx).
		Where("business_id = ? AND customer_id = ?", businessID, customerID).
		Order("created_at ASC").Order("id ASC").
		Find(&entities).Error
	if err != nil {
		return nil, mapError("transactions.list_for_pair", "transaction", err)
	}
	return toTransactionModels(entities), nil
}

// SumForPair returns credits minus payments for one pair. It reads the write
// handle, or the transaction carried by ctx, so a lagging replica never feeds a repair.
func (r *TransactionRepository) SumForPair(ctx context.Context, businessID, customerID uuid.UUID) (decimal.Decimal, error) {
	var entities []*TransactionEntity
	err := r.Write(ctx).
		Select("amount", "transaction_type").
		Where("business_id = ? AND customer_id = ?", businessID, customerID).
		Find(&entities).Error
	if err != nil {
		return decimal.Zero, mapError("transactions.sum_for_pair", "transaction", err)
	}
	sum := decimal.Zero
	for _, e := range entities {
		if e.TransactionType == string(model.TransactionTypePayment) {
			sum = sum.Sub(e.Amount)
		} else {
			sum = sum.Add(e.Amount)
		}
	}
	return sum, nil
}

func (r *TransactionRepository) ListForBusiness(ctx context.Context, businessID uuid.UUID) ([]*model.Transaction, error) {
	var entities []*TransactionEntity
	err := r.Read(ctx).
		Where("business_id = ?", businessID).
		Order("created_at ASC").Order("id ASC").
		Find(&entities).Error
	if err != nil {
		return nil, mapError("transactions.list_for_business", "transaction", err)
	}
	return toTransactionModels(entities), nil
}

// List applies the filter and returns one page, newest first, plus the total match count.
func (r *TransactionRepository) List(ctx context.Context, filter model.TransactionFilter) ([]*model.Transaction, int64, error) {
	filter.Normalize()

	query := r.applyFilter(r.Read(ctx).Model(&TransactionEntity{}), filter).Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, mapError("transactions.list", "transaction", err)
	}

	var entities []*TransactionEntity
	err := query.
		Order("created_at DESC").Order("id DESC").
		Limit(filter.Limit).Offset(filter.Offset).
		Find(&entities).Error
	if err != nil {
		return nil, 0, mapError("transactions.list", "transaction", err)
	}
	return toTransactionModels(entities), total, nil
}

func (r *TransactionRepository) applyFilter(query *gorm.DB, filter model.TransactionFilter) *gorm.DB {
	if filter.BusinessID != nil {
		query = query.Where("business_id = ?", *filter.BusinessID)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Type != nil {
		query = query.Where("transaction_type = ?", string(*filter.Type))
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", filter.To.UTC())
	}
	return query
}
