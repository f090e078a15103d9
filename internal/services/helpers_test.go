package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/khatape/khata-ledger/internal/model"
	"github.com/khatape/khata-ledger/internal/repository"
	"github.com/khatape/khata-ledger/internal/repository/repotest"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	db           *repotest.TestDB
	users        *repository.UserRepository
	businesses   *repository.BusinessRepository
	customers    *repository.CustomerRepository
	credits      *repository.CustomerCreditRepository
	transactions *repository.TransactionRepository
	pending      *repository.PendingPaymentRepository
}

func newTestEnv(t *testing.T) *testEnv {
	db := repotest.NewTestDB(t)
	return &testEnv{
		db:           db,
		users:        repository.NewUserRepository(db.DB),
		businesses:   repository.NewBusinessRepository(db.DB),
		customers:    repository.NewCustomerRepository(db.DB),
		credits:      repository.NewCustomerCreditRepository(db.DB),
		transactions: repository.NewTransactionRepository(db.DB),
		pending:      repository.NewPendingPaymentRepository(db.DB),
	}
}

func (e *testEnv) ledger() *LedgerService {
	return NewLedgerService(e.businesses, e.customers, e.credits, e.transactions)
}

func (e *testEnv) seedBusiness(t *testing.T, pin string) *model.Business {
	t.Helper()
	ctx := context.Background()
	owner := &model.User{Name: "Owner", Phone: "80000" + pin, Type: model.UserTypeBusiness}
	require.NoError(t, e.users.Create(ctx, owner))
	b := &model.Business{UserID: owner.ID, Name: "Sharma Stores", AccessPin: pin}
	require.NoError(t, e.businesses.Create(ctx, b))
	return b
}

func (e *testEnv) seedCustomer(t *testing.T, name, phone string) *model.Customer {
	t.Helper()
	c := &model.Customer{Name: name, Phone: phone}
	require.NoError(t, e.customers.Create(context.Background(), c))
	return c
}

func (e *testEnv) countTransactions(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Raw.Model(&repository.TransactionEntity{}).Count(&n).Error)
	return n
}

func (e *testEnv) countCredits(t *testing.T, businessID, customerID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Raw.Model(&repository.CustomerCreditEntity{}).
		Where("business_id = ? AND customer_id = ?", businessID, customerID).Count(&n).Error)
	return n
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyStatus(ctx context.Context, update model.PaymentStatusUpdate) error {
	args := m.Called(ctx, update)
	return args.Error(0)
}

type recordingScheduler struct {
	mu   sync.Mutex
	jobs []model.ReconcileJob
	err  error
}

func (r *recordingScheduler) ScheduleReconcile(ctx context.Context, job model.ReconcileJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
	return r.err
}

func (r *recordingScheduler) Jobs() []model.ReconcileJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.ReconcileJob(nil), r.jobs...)
}

// failingCredits makes every cache delta fail while the rest of the repository works.
type failingCredits struct {
	*repository.CustomerCreditRepository
	err error
}

func (f *failingCredits) ApplyDelta(ctx context.Context, businessID, customerID uuid.UUID, delta model.Amount) (model.Amount, error) {
	return model.Zero(), f.err
}

func amt(s string) model.Amount {
	return model.MustAmount(s)
}
