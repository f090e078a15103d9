package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/khatape/khata-ledger/internal/model"
	"github.com/khatape/khata-ledger/pkg/apperr"
	"github.com/khatape/khata-ledger/pkg/pg"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	creditMaxRetries = 3
	creditBaseDelay  = 2 * time.Millisecond
)

type CustomerCreditRepository struct {
	*pg.DB
}

func NewCustomerCreditRepository(db *pg.DB) *CustomerCreditRepository {
	return &CustomerCreditRepository{db}
}

func (r *CustomerCreditRepository) Get(ctx context.Context, businessID, customerID uuid.UUID) (*model.CustomerCredit, error) {
	var e CustomerCreditEntity
	err := r.Read(ctx).
		Where("business_id = ? AND customer_id = ?", businessID, customerID).
		First(&e).Error
	if err != nil {
		return nil, mapError("customer_credits.get", "customer credit", err)
	}
	return toCreditModel(&e), nil
}

func (r *CustomerCreditRepository) Exists(ctx context.Context, businessID, customerID uuid.UUID) (bool, error) {
	var count int64
	err := r.Read(ctx).Model(&CustomerCreditEntity{}).
		Where("business_id = ? AND customer_id = ?", businessID, customerID).
		Count(&count).Error
	if err != nil {
		return false, mapError("customer_credits.exists", "customer credit", err)
	}
	return count > 0, nil
}

// Create inserts a new relationship. A second row for the same pair is a Conflict.
func (r *CustomerCreditRepository) Create(ctx context.Context, credit *model.CustomerCredit) error {
	e := toCreditEntity(credit)
	if err := r.Write(ctx).Create(e).Error; err != nil {
		return mapError("customer_credits.create", "customer credit", err)
	}
	*credit = *toCreditModel(e)
	return nil
}

func (r *CustomerCreditRepository) ListByBusiness(ctx context.Context, businessID uuid.UUID) ([]*model.CustomerCredit, error) {
	var entities []*CustomerCreditEntity
	err := r.Read(ctx).
		Where("business_id = ?", businessID).
		Order("created_at ASC").
		Find(&entities).Error
	if err != nil {
		return nil, mapError("customer_credits.list_by_business", "customer credit", err)
	}
	return toCreditModels(entities), nil
}

func (r *CustomerCreditRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*model.CustomerCredit, error) {
	var entities []*CustomerCreditEntity
	err := r.Read(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at ASC").
		Find(&entities).Error
	if err != nil {
		return nil, mapError("customer_credits.list_by_customer", "customer credit", err)
	}
	return toCreditModels(entities), nil
}

// ListPairs returns every relationship in the store, for bulk reconciliation.
func (r *CustomerCreditRepository) ListPairs(ctx context.Context) ([]*model.CustomerCredit, error) {
	var entities []*CustomerCreditEntity
	if err := r.Read(ctx).Order("business_id ASC").Order("customer_id ASC").Find(&entities).Error; err != nil {
		return nil, mapError("customer_credits.list_pairs", "customer credit", err)
	}
	return toCreditModels(entities), nil
}

// ApplyDelta adds delta to the cached balance of a pair under a row lock, creating
// the row with delta as its balance when it does not exist yet. It must not be called
// with a transaction already in ctx: a lost creation race is retried in a fresh one.
func (r *CustomerCreditRepository) ApplyDelta(ctx context.Context, businessID, customerID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.withRetry(ctx, func() error {
		return r.WithinTransaction(ctx, func(ctx context.Context) error {
			e, err := r.lockPair(ctx, businessID, customerID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				e = &CustomerCreditEntity{BusinessID: businessID, CustomerID: customerID, CurrentBalance: delta}
				balance = delta
				return r.Write(ctx).Create(e).Error
			}
			if err != nil {
				return err
			}
			balance = e.CurrentBalance.Add(delta)
			return r.setBalance(ctx, e.ID, balance)
		})
	})
	if err != nil {
		return decimal.Zero, r.retryError("customer_credits.apply_delta", err)
	}
	return balance, nil
}

// Upsert overwrites the cached balance of a pair, creating the row when absent.
// It returns the previous cached value and whether a row existed before.
func (r *CustomerCreditRepository) Upsert(ctx context.Context, businessID, customerID uuid.UUID, balance decimal.Decimal) (decimal.Decimal, bool, error) {
	_, previous, existed, err := r.Recompute(ctx, businessID, customerID, func(context.Context) (decimal.Decimal, error) {
		return balance, nil
	})
	return previous, existed, err
}

// Recompute locks the pair's cache row, calls compute inside the same transaction
// and stores its result. It returns the new balance, the previous cached value and
// whether a row existed before.
func (r *CustomerCreditRepository) Recompute(ctx context.Context, businessID, customerID uuid.UUID, compute func(ctx context.Context) (decimal.Decimal, error)) (decimal.Decimal, decimal.Decimal, bool, error) {
	var balance, previous decimal.Decimal
	var existed bool
	err := r.withRetry(ctx, func() error {
		return r.WithinTransaction(ctx, func(ctx context.Context) error {
			e, err := r.lockPair(ctx, businessID, customerID)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if balance, err = compute(ctx); err != nil {
				return err
			}
			if e == nil {
				previous, existed = decimal.Zero, false
				return r.Write(ctx).Create(&CustomerCreditEntity{BusinessID: businessID, CustomerID: customerID, CurrentBalance: balance}).Error
			}
			previous, existed = e.CurrentBalance, true
			if e.CurrentBalance.Equal(balance) {
				return nil
			}
			return r.setBalance(ctx, e.ID, balance)
		})
	})
	if err != nil {
		return decimal.Zero, decimal.Zero, false, r.retryError("customer_credits.recompute", err)
	}
	return balance, previous, existed, nil
}

func (r *CustomerCreditRepository) lockPair(ctx context.Context, businessID, customerID uuid.UUID) (*CustomerCreditEntity, error) {
	var e CustomerCreditEntity
	err := r.Write(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND customer_id = ?", businessID, customerID).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *CustomerCreditRepository) setBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	return r.Write(ctx).Model(&CustomerCreditEntity{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"current_balance": balance, "updated_at": time.Now().UTC()}).Error
}

// withRetry reruns fn while it loses a concurrent creation race, backing off 2ms, 4ms, 8ms.
func (r *CustomerCreditRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt <= creditMaxRetries; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
		if attempt < creditMaxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(creditBaseDelay * time.Duration(1<<attempt)):
			}
		}
	}
	return err
}

func (r *CustomerCreditRepository) retryError(op string, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflict(op, "concurrent update of customer credit, retries exhausted")
	}
	return apperr.Storage(op, err)
}
