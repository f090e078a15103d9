package processor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/khatape/khata-ledger/internal/model"
	"github.com/khatape/khata-ledger/internal/queue"
	"github.com/khatape/khata-ledger/internal/repository"
	"github.com/khatape/khata-ledger/internal/repository/repotest"
	"github.com/khatape/khata-ledger/internal/services"
	"github.com/khatape/khata-ledger/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockReconciler struct {
	mock.Mock
}

func (m *MockReconciler) ReconcilePair(ctx context.Context, businessID, customerID uuid.UUID, source string) (*model.ReconcileResult, error) {
	args := m.Called(ctx, businessID, customerID, source)
	res, _ := args.Get(0).(*model.ReconcileResult)
	return res, args.Error(1)
}

func jobMessage(t *testing.T, job model.ReconcileJob) *queue.Message {
	t.Helper()
	data := []byte(`{"business_id":"` + job.BusinessID.String() + `","customer_id":"` + job.CustomerID.String() + `","reason":"test"}`)
	return &queue.Message{ID: "1-0", Data: data, Attempts: 1}
}

func TestReconcileProcessor_Process(t *testing.T) {
	_, adapter := setupRedis(t)
	ctx := context.Background()
	job := model.ReconcileJob{BusinessID: uuid.New(), CustomerID: uuid.New()}

	t.Run("reconciles and releases the lock", func(t *testing.T) {
		ledger := new(MockReconciler)
		ledger.On("ReconcilePair", mock.Anything, job.BusinessID, job.CustomerID, reconcileSource).
			Return(&model.ReconcileResult{Balance: model.MustAmount("10"), Drifted: true}, nil).Once()

		lock := NewPairLock(adapter, DefaultLockConfig())
		p := NewReconcileProcessor(ledger, lock, adapter)
		require.NoError(t, p.Process(ctx, jobMessage(t, job)))
		ledger.AssertExpectations(t)

		lease, err := lock.Acquire(ctx, job.BusinessID, job.CustomerID)
		require.NoError(t, err)
		require.NoError(t, lock.Release(ctx, lease))
	})

	t.Run("locked pair is retried", func(t *testing.T) {
		ledger := new(MockReconciler)
		lock := NewPairLock(adapter, DefaultLockConfig())
		lease, err := lock.Acquire(ctx, job.BusinessID, job.CustomerID)
		require.NoError(t, err)
		defer lock.Release(ctx, lease)

		p := NewReconcileProcessor(ledger, lock, adapter)
		assert.ErrorIs(t, p.Process(ctx, jobMessage(t, job)), ErrLockHeld)
		ledger.AssertNotCalled(t, "ReconcilePair", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown pair is acked", func(t *testing.T) {
		ledger := new(MockReconciler)
		ledger.On("ReconcilePair", mock.Anything, job.BusinessID, job.CustomerID, reconcileSource).
			Return(nil, apperr.NotFound("reconcile", "business")).Once()
		p := NewReconcileProcessor(ledger, NewPairLock(adapter, DefaultLockConfig()), adapter)
		assert.NoError(t, p.Process(ctx, jobMessage(t, job)))
	})

	t.Run("storage failure is retried", func(t *testing.T) {
		ledger := new(MockReconciler)
		ledger.On("ReconcilePair", mock.Anything, job.BusinessID, job.CustomerID, reconcileSource).
			Return(nil, apperr.Storage("reconcile", errors.New("db down"))).Once()
		p := NewReconcileProcessor(ledger, NewPairLock(adapter, DefaultLockConfig()), adapter)
		assert.ErrorIs(t, p.Process(ctx, jobMessage(t, job)), apperr.ErrStorage)
	})

	t.Run("malformed job is dropped", func(t *testing.T) {
		ledger := new(MockReconciler)
		p := NewReconcileProcessor(ledger, NewPairLock(adapter, DefaultLockConfig()), adapter)
		assert.NoError(t, p.Process(ctx, &queue.Message{ID: "2-0", Data: []byte("nope")}))
	})
}

// TestReconcilePipeline runs writes through the ledger, corrupts the cache and
// lets the background reconciler repair it from the stream.
func TestReconcilePipeline(t *testing.T) {
	_, adapter := setupRedis(t)
	db := repotest.NewTestDB(t)
	ctx := context.Background()

	users := repository.NewUserRepository(db.DB)
	businesses := repository.NewBusinessRepository(db.DB)
	customers := repository.NewCustomerRepository(db.DB)
	credits := repository.NewCustomerCreditRepository(db.DB)
	transactions := repository.NewTransactionRepository(db.DB)

	owner := &model.User{Name: "Owner", Phone: "9100000000", Type: model.UserTypeBusiness}
	require.NoError(t, users.Create(ctx, owner))
	b := &model.Business{UserID: owner.ID, Name: "Corner Shop", AccessPin: "4321"}
	require.NoError(t, businesses.Create(ctx, b))
	c := &model.Customer{Name: "Mohan", Phone: "9100000001"}
	require.NoError(t, customers.Create(ctx, c))

	qcfg := queue.QueueConfig{
		Name:              "reconcile",
		ConsumerGroup:     "reconcilers",
		ConsumerName:      "test",
		MaxRetries:        3,
		VisibilityTimeout: time.Second,
		PollInterval:      10 * time.Millisecond,
		BatchSize:         10,
		EnableDLQ:         true,
	}
	publishQueue, err := queue.NewQueue(adapter, qcfg)
	require.NoError(t, err)
	publisher := queue.NewReconcilePublisher(publishQueue, adapter, time.Minute)

	ledger := services.NewLedgerService(businesses, customers, credits, transactions).WithScheduler(publisher)
	_, err = ledger.RecordTransaction(ctx, model.TransactionCreateRequest{
		BusinessID: b.ID, CustomerID: c.ID, Amount: model.MustAmount("700"), Type: model.TransactionTypeCredit,
	})
	require.NoError(t, err)
	_, err = ledger.RecordTransaction(ctx, model.TransactionCreateRequest{
		BusinessID: b.ID, CustomerID: c.ID, Amount: model.MustAmount("250.25"), Type: model.TransactionTypePayment,
	})
	require.NoError(t, err)

	// the second write was absorbed by the debounce window
	n, err := adapter.XLen(ctx, qcfg.Name)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, _, err = credits.Upsert(ctx, b.ID, c.ID, model.MustAmount("1"))
	require.NoError(t, err)

	svc := NewProcessorService(adapter, ServiceConfig{Queue: qcfg, Consumers: 1, Workers: 2})
	svc.RegisterProcessor(NewReconcileProcessor(ledger, NewPairLock(adapter, DefaultLockConfig()), adapter))
	require.NoError(t, svc.Start())
	defer svc.Stop()

	assert.Eventually(t, func() bool {
		credit, err := credits.Get(ctx, b.ID, c.ID)
		return err == nil && credit.CurrentBalance.Equal(model.MustAmount("449.75"))
	}, 3*time.Second, 20*time.Millisecond)

	assert.Eventually(t, func() bool {
		return svc.Metrics().GetStats().Processed == 1
	}, 3*time.Second, 20*time.Millisecond)

	exists, err := adapter.Exist(ctx, queue.DebounceKey(model.ReconcileJob{BusinessID: b.ID, CustomerID: c.ID}))
	require.NoError(t, err)
	assert.False(t, exists)
}

type sliceLister []*model.CustomerCredit

func (s sliceLister) ListPairs(ctx context.Context) ([]*model.CustomerCredit, error) {
	return s, nil
}

type countingScheduler struct {
	jobs []model.ReconcileJob
}

func (c *countingScheduler) ScheduleReconcile(ctx context.Context, job model.ReconcileJob) error {
	c.jobs = append(c.jobs, job)
	return nil
}

func TestSweep(t *testing.T) {
	pairs := sliceLister{
		{BusinessID: uuid.New(), CustomerID: uuid.New()},
		{BusinessID: uuid.New(), CustomerID: uuid.New()},
	}
	sched := &countingScheduler{}

	n, err := Sweep(context.Background(), pairs, sched, "boot")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, sched.jobs, 2)
	assert.Equal(t, "boot", sched.jobs[0].Reason)
	assert.Equal(t, pairs[1].CustomerID, sched.jobs[1].CustomerID)
}
