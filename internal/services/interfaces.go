package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/khatape/khata-ledger/internal/model"
	"github.com/shopspring/decimal"
)

type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByPhone(ctx context.Context, phone string) (*model.User, error)
}

type BusinessRepository interface {
	Create(ctx context.Context, business *model.Business) error
	Get(ctx context.Context, id uuid.UUID) (*model.Business, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Business, error)
	GetByPin(ctx context.Context, pin string) (*model.Business, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	PinExists(ctx context.Context, pin string) (bool, error)
	UpdatePin(ctx context.Context, id uuid.UUID, pin string) error
	UpdateProfile(ctx context.Context, id uuid.UUID, name, description string) error
}

type CustomerRepository interface {
	Create(ctx context.Context, customer *model.Customer) error
	Get(ctx context.Context, id uuid.UUID) (*model.Customer, error)
	GetByPhone(ctx context.Context, phone string) (*model.Customer, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	GetMany(ctx context.Context, ids []uuid.UUID) ([]*model.Customer, error)
}

type CreditRepository interface {
	Get(ctx context.Context, businessID, customerID uuid.UUID) (*model.CustomerCredit, error)
	Exists(ctx context.Context, businessID, customerID uuid.UUID) (bool, error)
	Create(ctx context.Context, credit *model.CustomerCredit) error
	ListByBusiness(ctx context.Context, businessID uuid.UUID) ([]*model.CustomerCredit, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*model.CustomerCredit, error)
	ApplyDelta(ctx context.Context, businessID, customerID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)
	Upsert(ctx context.Context, businessID, customerID uuid.UUID, balance decimal.Decimal) (decimal.Decimal, bool, error)
	Recompute(ctx context.Context, businessID, customerID uuid.UUID, compute func(ctx context.Context) (decimal.Decimal, error)) (decimal.Decimal, decimal.Decimal, bool, error)
}

type TransactionRepository interface {
	Create(ctx context.Context, tx *model.Transaction) error
	ListForPair(ctx context.Context, businessID, customerID uuid.UUID) ([]*model.Transaction, error)
	SumForPair(ctx context.Context, businessID, customerID uuid.UUID) (decimal.Decimal, error)
	ListForBusiness(ctx context.Context, businessID uuid.UUID) ([]*model.Transaction, error)
	List(ctx context.Context, filter model.TransactionFilter) ([]*model.Transaction, int64, error)
}

type PendingPaymentRepository interface {
	Create(ctx context.Context, p *model.PendingPayment) error
	Get(ctx context.Context, transactionID uuid.UUID) (*model.PendingPayment, error)
	ListPending(ctx context.Context, businessID uuid.UUID) ([]*model.PendingPayment, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*model.PendingPayment, error)
	Resolve(ctx context.Context, transactionID uuid.UUID, res model.Resolution) (bool, error)
}

// ReconcileScheduler queues a background recomputation of one pair's cached balance.
type ReconcileScheduler interface {
	ScheduleReconcile(ctx context.Context, job model.ReconcileJob) error
}

// StatusNotifier tells the customer app that a pending payment was resolved.
type StatusNotifier interface {
	NotifyStatus(ctx context.Context, update model.PaymentStatusUpdate) error
}
