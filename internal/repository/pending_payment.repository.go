package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/khatape/khata-ledger/internal/model"
	"github.com/khatape/khata-ledger/pkg/apperr"
	"github.com/khatape/khata-ledger/pkg/pg"
)

type PendingPaymentRepository struct {
	*pg.DB
}

func NewPendingPaymentRepository(db *pg.DB) *PendingPaymentRepository {
	return &PendingPaymentRepository{db}
}

func (r *PendingPaymentRepository) Create(ctx context.Context, p *model.PendingPayment) error {
	if p.TransactionID == uuid.Nil {
		id, err := pg.NewID()
		if err != nil {
			return apperr.Storage("pending_payments.create", err)
		}
		p.TransactionID = id
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	e := toPendingPaymentEntity(p)
	if err := r.Write(ctx).Create(e).Error; err != nil {
		return mapError("pending_payments.create", "pending payment", err)
	}
	*p = *toPendingPaymentModel(e)
	return nil
}

func (r *PendingPaymentRepository) Get(ctx context.Context, transactionID uuid.UUID) (*model.PendingPayment, error) {
	var e PendingPaymentEntity
	if err := r.Read(ctx).Where("transaction_id = ?", transactionID).First(&e).Error; err != nil {
		return nil, mapError("pending_payments.get", "pending payment", err)
	}
	return toPendingPaymentModel(&e), nil
}

func (r *PendingPaymentRepository) ListPending(ctx context.Context, businessID uuid.UUID) ([]*model.PendingPayment, error) {
	return r.list(ctx, "pending_payments.list_pending", "business_id = ? AND status = ?", businessID, string(model.PendingStatusPending))
}

func (r *PendingPaymentRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*model.PendingPayment, error) {
	return r.list(ctx, "pending_payments.list_by_customer", "customer_id = ?", customerID)
}

func (r *PendingPaymentRepository) list(ctx context.Context, op string, where string, args ...interface{}) ([]*model.PendingPayment, error) {
	var entities []*PendingPaymentEntity
	err := r.Read(ctx).
		Where(where, args...).
		Order("created_at DESC").Order("transaction_id DESC").
		Find(&entities).Error
	if err != nil {
		return nil, mapError(op, "pending payment", err)
	}
	return toPendingPaymentModels(entities), nil
}

// Resolve moves a payment out of pending. It reports false, without writing,
// when the payment is no longer pending.
func (r *PendingPaymentRepository) Resolve(ctx context.Context, transactionID uuid.UUID, res model.Resolution) (bool, error) {
	fields := map[string]interface{}{"status": string(res.Status)}
	switch res.Status {
	case model.PendingStatusApproved:
		fields["approved_at"] = res.At.UTC()
		fields["approved_by"] = res.By
	case model.PendingStatusRejected:
		fields["rejected_at"] = res.At.UTC()
		fields["rejected_by"] = res.By
		fields["rejection_reason"] = res.Reason
	default:
		return false, apperr.Validation("pending_payments.resolve", "cannot resolve to status %q", res.Status)
	}

	result := r.Write(ctx).Model(&PendingPaymentEntity{}).
		Where("transaction_id = ? AND status = ?", transactionID, string(model.PendingStatusPending)).
		Updates(fields)
	if result.Error != nil {
		return false, mapError("pending_payments.resolve", "pending payment", result.Error)
	}
	return result.RowsAffected == 1, nil
}
