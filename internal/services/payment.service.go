package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/khatape/khata-ledger/internal/model"
	"github.com/khatape/khata-ledger/pkg/apperr"
	"github.com/khatape/khata-ledger/pkg/logger"
	"github.com/khatape/khata-ledger/pkg/prom"
)

const DefaultNotifyTimeout = 5 * time.Second

// PaymentService runs the pending -> approved | rejected workflow for
// customer-reported payments.
type PaymentService struct {
	db            Transactor
	businesses    BusinessRepository
	customers     CustomerRepository
	pending       PendingPaymentRepository
	transactions  TransactionRepository
	ledger        *LedgerService
	notifier      StatusNotifier
	notifyTimeout time.Duration
	now           func() time.Time
	inflight      sync.WaitGroup
}

func NewPaymentService(db Transactor, businesses BusinessRepository, customers CustomerRepository, pending PendingPaymentRepository, transactions TransactionRepository, ledger *LedgerService, notifier StatusNotifier) *PaymentService {
	return &PaymentService{
		db:            db,
		businesses:    businesses,
		customers:     customers,
		pending:       pending,
		transactions:  transactions,
		ledger:        ledger,
		notifier:      notifier,
		notifyTimeout: DefaultNotifyTimeout,
		now:           time.Now,
	}
}

func (s *PaymentService) SetNotifyTimeout(d time.Duration) {
	if d > 0 {
		s.notifyTimeout = d
	}
}

func (s *PaymentService) SubmitPendingPayment(ctx context.Context, req model.PendingPaymentCreateRequest) (*model.PendingPayment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	exists, err := s.businesses.Exists(ctx, req.BusinessID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperr.NotFound("submit_pending_payment", "business")
	}
	exists, err = s.customers.Exists(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperr.NotFound("submit_pending_payment", "customer")
	}

	p := &model.PendingPayment{
		BusinessID:    req.BusinessID,
		CustomerID:    req.CustomerID,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
		Status:        model.PendingStatusPending,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.pending.Create(ctx, p); err != nil {
		return nil, err
	}
	logger.Info("pending payment submitted",
		"transaction_id", p.TransactionID,
		"business_id", p.BusinessID,
		"customer_id", p.CustomerID,
		"amount", p.Amount.StringFixed(2))
	return p, nil
}

// Approve turns a pending payment into a payment transaction that reuses the reserved id.
// The status flip and the ledger insert commit together; at most one approval can win.
func (s *PaymentService) Approve(ctx context.Context, businessID, transactionID, approverID uuid.UUID) (*model.Transaction, error) {
	p, err := s.loadPending(ctx, "approve", businessID, transactionID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	method := p.PaymentMethod
	pendingID := p.TransactionID
	notes := method + " Payment"
	if p.Notes != "" {
		notes += ": " + p.Notes
	}
	tx := &model.Transaction{
		ID:                p.TransactionID,
		BusinessID:        p.BusinessID,
		CustomerID:        p.CustomerID,
		Amount:            p.Amount,
		Type:              model.TransactionTypePayment,
		Notes:             notes,
		PaymentMethod:     &method,
		CreatedAt:         now,
		CreatedBy:         approverID,
		ApprovedAt:        &now,
		OriginalPendingID: &pendingID,
	}

	err = s.db.WithinTransaction(ctx, func(ctx context.Context) error {
		ok, err := s.pending.Resolve(ctx, transactionID, model.Resolution{Status: model.PendingStatusApproved, At: now, By: approverID})
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Conflict("approve", "payment %s was already processed", transactionID)
		}
		return s.transactions.Create(ctx, tx)
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindConflict {
			logger.Warn("approve lost to a concurrent resolution", "transaction_id", transactionID)
		}
		return nil, err
	}

	prom.IncPendingResolution(string(model.PendingStatusApproved))
	prom.IncTransactionRecorded(string(tx.Type))
	logger.Info("pending payment approved",
		"transaction_id", transactionID,
		"business_id", businessID,
		"approved_by", approverID,
		"amount", tx.Amount.StringFixed(2))

	s.ledger.applyDelta(ctx, "approve", tx)
	s.notifyAsync(model.PaymentStatusUpdate{
		TransactionID: transactionID,
		Status:        model.PendingStatusApproved,
		BusinessID:    p.BusinessID,
		CustomerID:    p.CustomerID,
		Amount:        p.Amount,
		Timestamp:     now,
	})
	return tx, nil
}

// Reject closes a pending payment without touching the ledger.
func (s *PaymentService) Reject(ctx context.Context, businessID, transactionID, rejecterID uuid.UUID, reason string) (*model.PendingPayment, error) {
	p, err := s.loadPending(ctx, "reject", businessID, transactionID)
	if err != nil {
		return nil, err
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = model.DefaultRejectionReason
	}
	now := s.now().UTC()

	ok, err := s.pending.Resolve(ctx, transactionID, model.Resolution{Status: model.PendingStatusRejected, At: now, By: rejecterID, Reason: reason})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Conflict("reject", "payment %s was already processed", transactionID)
	}

	p.Status = model.PendingStatusRejected
	p.RejectedAt = &now
	p.RejectedBy = &rejecterID
	p.RejectionReason = &reason

	prom.IncPendingResolution(string(model.PendingStatusRejected))
	logger.Info("pending payment rejected", "transaction_id", transactionID, "business_id", businessID, "reason", reason)

	s.notifyAsync(model.PaymentStatusUpdate{
		TransactionID:   transactionID,
		Status:          model.PendingStatusRejected,
		BusinessID:      p.BusinessID,
		CustomerID:      p.CustomerID,
		Amount:          p.Amount,
		Timestamp:       now,
		RejectionReason: reason,
	})
	return p, nil
}

func (s *PaymentService) ListPending(ctx context.Context, businessID uuid.UUID) ([]*model.PendingPayment, error) {
	return s.pending.ListPending(ctx, businessID)
}

func (s *PaymentService) ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]*model.PendingPayment, error) {
	return s.pending.ListByCustomer(ctx, customerID)
}

// loadPending returns the payment only if it belongs to businessID and is still pending.
func (s *PaymentService) loadPending(ctx context.Context, op string, businessID, transactionID uuid.UUID) (*model.PendingPayment, error) {
	p, err := s.pending.Get(ctx, transactionID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound(op, "pending payment")
		}
		return nil, err
	}
	if p.BusinessID != businessID {
		return nil, apperr.NotFound(op, "pending payment")
	}
	if !p.IsPending() {
		return nil, apperr.Conflict(op, "payment %s is already %s", transactionID, p.Status)
	}
	return p, nil
}

// notifyAsync posts the update in the background. Failures are logged only.
func (s *PaymentService) notifyAsync(update model.PaymentStatusUpdate) {
	if s.notifier == nil {
		return
	}
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()
		if err := s.notifier.NotifyStatus(ctx, update); err != nil {
			logger.Warn("failed to notify customer app",
				"transaction_id", update.TransactionID,
				"status", update.Status,
				"error", err)
		}
	}()
}

// Wait blocks until every in-flight notification has finished.
func (s *PaymentService) Wait() {
	s.inflight.Wait()
}
