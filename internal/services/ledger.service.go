package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/khatape/khata-ledger/internal/model"
	"github.com/khatape/khata-ledger/pkg/apperr"
	"github.com/khatape/khata-ledger/pkg/logger"
	"github.com/khatape/khata-ledger/pkg/pg"
	"github.com/khatape/khata-ledger/pkg/prom"
)

const recentTransactionsLimit = 15

// LedgerService derives balances from transactions and keeps the cached
// customer_credits balance in step with them.
type LedgerService struct {
	businesses   BusinessRepository
	customers    CustomerRepository
	credits      CreditRepository
	transactions TransactionRepository
	scheduler    ReconcileScheduler
}

func NewLedgerService(businesses BusinessRepository, customers CustomerRepository, credits CreditRepository, transactions TransactionRepository) *LedgerService {
	return &LedgerService{
		businesses:   businesses,
		customers:    customers,
		credits:      credits,
		transactions: transactions,
	}
}

// WithScheduler makes every write also queue a background reconcile of the touched pair.
func (s *LedgerService) WithScheduler(scheduler ReconcileScheduler) *LedgerService {
	s.scheduler = scheduler
	return s
}

// GetBalance sums every transaction of the pair: credits minus payments.
// Both parties must exist; a pair with no transactions has a zero balance.
func (s *LedgerService) GetBalance(ctx context.Context, businessID, customerID uuid.UUID) (model.Amount, error) {
	if err := s.ensurePair(ctx, "get_balance", businessID, customerID); err != nil {
		return model.Zero(), err
	}
	return s.balance(ctx, businessID, customerID)
}

func (s *LedgerService) balance(ctx context.Context, businessID, customerID uuid.UUID) (model.Amount, error) {
	txs, err := s.transactions.ListForPair(ctx, businessID, customerID)
	if err != nil {
		return model.Zero(), err
	}
	return sumBalance(txs), nil
}

func sumBalance(txs []*model.Transaction) model.Amount {
	credits, payments := model.Zero(), model.Zero()
	for _, tx := range txs {
		switch tx.Type {
		case model.TransactionTypeCredit:
			credits = credits.Add(tx.Amount)
		case model.TransactionTypePayment:
			payments = payments.Add(tx.Amount)
		}
	}
	return credits.Sub(payments)
}

// balancesByCustomer groups a business's transactions per customer.
func balancesByCustomer(txs []*model.Transaction) map[uuid.UUID]model.Amount {
	out := make(map[uuid.UUID]model.Amount)
	for _, tx := range txs {
		out[tx.CustomerID] = out[tx.CustomerID].Add(tx.Delta())
	}
	return out
}

// Reconcile recomputes the pair's balance and overwrites the cache with it.
func (s *LedgerService) Reconcile(ctx context.Context, businessID, customerID uuid.UUID) (model.Amount, error) {
	res, err := s.ReconcilePair(ctx, businessID, customerID, "reconcile")
	if err != nil {
		return model.Zero(), err
	}
	return res.Balance, nil
}

// ReconcilePair is Reconcile with the full result. source labels the drift metric.
func (s *LedgerService) ReconcilePair(ctx context.Context, businessID, customerID uuid.UUID, source string) (*model.ReconcileResult, error) {
	if err := s.ensurePair(ctx, "reconcile", businessID, customerID); err != nil {
		return nil, err
	}

	// summed under the cache row lock, on the primary
	balance, previous, existed, err := s.credits.Recompute(ctx, businessID, customerID, func(ctx context.Context) (model.Amount, error) {
		return s.transactions.SumForPair(ctx, businessID, customerID)
	})
	if err != nil {
		return nil, err
	}

	res := &model.ReconcileResult{
		BusinessID: businessID,
		CustomerID: customerID,
		Balance:    balance,
		Previous:   previous,
		Existed:    existed,
		Drifted:    existed && !previous.Equal(balance),
	}
	if res.Drifted {
		logger.Warn("cached balance drifted from ledger, repaired",
			"business_id", businessID,
			"customer_id", customerID,
			"cached", previous.StringFixed(2),
			"computed", balance.StringFixed(2),
			"source", source)
		prom.IncBalanceDrift(source)
	}
	return res, nil
}

// RecordTransaction appends a ledger entry and applies its delta to the cache.
// Only the insert is fatal: a failed cache update is logged and left for reconciliation.
func (s *LedgerService) RecordTransaction(ctx context.Context, req model.TransactionCreateRequest) (*model.Transaction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.ensurePair(ctx, "record_transaction", req.BusinessID, req.CustomerID); err != nil {
		return nil, err
	}

	id, err := pg.NewID()
	if err != nil {
		return nil, apperr.Storage("record_transaction", err)
	}
	tx := &model.Transaction{
		ID:              id,
		BusinessID:      req.BusinessID,
		CustomerID:      req.CustomerID,
		Amount:          req.Amount,
		Type:            req.Type,
		Notes:           req.Notes,
		ReceiptImageURL: req.ReceiptImageURL,
		PaymentMethod:   req.PaymentMethod,
		CreatedAt:       time.Now().UTC(),
		CreatedBy:       req.CreatedBy,
	}
	if err := s.transactions.Create(ctx, tx); err != nil {
		return nil, err
	}
	prom.IncTransactionRecorded(string(tx.Type))

	s.applyDelta(ctx, "record_transaction", tx)
	return tx, nil
}

// applyDelta updates the cache after a committed insert and queues a reconcile.
func (s *LedgerService) applyDelta(ctx context.Context, op string, tx *model.Transaction) {
	if _, err := s.credits.ApplyDelta(ctx, tx.BusinessID, tx.CustomerID, tx.Delta()); err != nil {
		logger.Warn("failed to update cached balance, reconcile will repair it",
			"op", op,
			"transaction_id", tx.ID,
			"business_id", tx.BusinessID,
			"customer_id", tx.CustomerID,
			"error", err)
		prom.IncCacheUpdateFailure(op)
	}
	s.schedule(ctx, tx.BusinessID, tx.CustomerID, op)
}

func (s *LedgerService) schedule(ctx context.Context, businessID, customerID uuid.UUID, reason string) {
	if s.scheduler == nil {
		return
	}
	job := model.ReconcileJob{BusinessID: businessID, CustomerID: customerID, Reason: reason}
	if err := s.scheduler.ScheduleReconcile(ctx, job); err != nil {
		logger.Warn("failed to schedule reconcile", "business_id", businessID, "customer_id", customerID, "error", err)
	}
}

func (s *LedgerService) ListTransactions(ctx context.Context, filter model.TransactionFilter) ([]*model.Transaction, int64, error) {
	filter.Normalize()
	return s.transactions.List(ctx, filter)
}

// Statement loads the pair's parties and full history for export.
func (s *LedgerService) Statement(ctx context.Context, businessID, customerID uuid.UUID) (*model.Statement, error) {
	business, err := s.businesses.Get(ctx, businessID)
	if err != nil {
		return nil, err
	}
	customer, err := s.customers.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}
	txs, err := s.transactions.ListForPair(ctx, businessID, customerID)
	if err != nil {
		return nil, err
	}
	return &model.Statement{Business: business, Customer: customer, Transactions: txs}, nil
}

// Summary is the business dashboard: relationship count, outstanding total and latest activity.
func (s *LedgerService) Summary(ctx context.Context, businessID uuid.UUID) (*model.BusinessSummary, error) {
	business, err := s.businesses.Get(ctx, businessID)
	if err != nil {
		return nil, err
	}
	credits, err := s.credits.ListByBusiness(ctx, businessID)
	if err != nil {
		return nil, err
	}
	txs, err := s.transactions.ListForBusiness(ctx, businessID)
	if err != nil {
		return nil, err
	}

	outstanding := model.Zero()
	for _, balance := range balancesByCustomer(txs) {
		if balance.IsPositive() {
			outstanding = outstanding.Add(balance)
		}
	}

	recent, _, err := s.transactions.List(ctx, model.TransactionFilter{BusinessID: &businessID, Limit: recentTransactionsLimit})
	if err != nil {
		return nil, err
	}

	return &model.BusinessSummary{
		Business:           business,
		CustomerCount:      len(credits),
		TotalOutstanding:   outstanding,
		RecentTransactions: recent,
	}, nil
}

// CustomerBalances lists every customer of the business by name with computed and cached balances.
func (s *LedgerService) CustomerBalances(ctx context.Context, businessID uuid.UUID) ([]*model.CustomerBalance, error) {
	if err := s.ensureBusiness(ctx, "customer_balances", businessID); err != nil {
		return nil, err
	}
	credits, err := s.credits.ListByBusiness(ctx, businessID)
	if err != nil {
		return nil, err
	}
	txs, err := s.transactions.ListForBusiness(ctx, businessID)
	if err != nil {
		return nil, err
	}
	computed := balancesByCustomer(txs)

	cached := make(map[uuid.UUID]model.Amount, len(credits))
	ids := make([]uuid.UUID, 0, len(credits))
	for _, c := range credits {
		cached[c.CustomerID] = c.CurrentBalance
		ids = append(ids, c.CustomerID)
	}

	customers, err := s.customers.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*model.CustomerBalance, 0, len(customers))
	for _, c := range customers {
		out = append(out, &model.CustomerBalance{
			Customer: c,
			Balance:  computed[c.ID],
			Cached:   cached[c.ID],
		})
	}
	return out, nil
}

// Accounts lists the businesses a customer has a relationship with and the balance owed to each.
func (s *LedgerService) Accounts(ctx context.Context, customerID uuid.UUID) ([]*model.CustomerAccount, error) {
	exists, err := s.customers.Exists(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperr.NotFound("accounts", "customer")
	}

	credits, err := s.credits.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	out := make([]*model.CustomerAccount, 0, len(credits))
	for _, c := range credits {
		business, err := s.businesses.Get(ctx, c.BusinessID)
		if err != nil {
			return nil, err
		}
		balance, err := s.balance(ctx, c.BusinessID, customerID)
		if err != nil {
			return nil, err
		}
		out = append(out, &model.CustomerAccount{Business: business, Balance: balance})
	}
	return out, nil
}

func (s *LedgerService) ensureBusiness(ctx context.Context, op string, businessID uuid.UUID) error {
	exists, err := s.businesses.Exists(ctx, businessID)
	if err != nil {
		return err
	}
	if !exists {
		return apperr.NotFound(op, "business")
	}
	return nil
}

func (s *LedgerService) ensurePair(ctx context.Context, op string, businessID, customerID uuid.UUID) error {
	if err := s.ensureBusiness(ctx, op, businessID); err != nil {
		return err
	}
	exists, err := s.customers.Exists(ctx, customerID)
	if err != nil {
		return err
	}
	if !exists {
		return apperr.NotFound(op, "customer")
	}
	return nil
}
