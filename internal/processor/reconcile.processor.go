package processor

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/khatape/khata-ledger/internal/model"
	"github.com/khatape/khata-ledger/internal/queue"
	"github.com/khatape/khata-ledger/pkg/apperr"
	"github.com/khatape/khata-ledger/pkg/logger"
	"github.com/khatape/khata-ledger/pkg/prom"
	"github.com/khatape/khata-ledger/pkg/redis"
)

const reconcileSource = "reconciler"

type Reconciler interface {
	ReconcilePair(ctx context.Context, businessID, customerID uuid.UUID, source string) (*model.ReconcileResult, error)
}

// ReconcileProcessor recomputes the cached balance of the pair named by each job.
type ReconcileProcessor struct {
	ledger  Reconciler
	lock    *PairLock
	adapter redis.RedisAdapter
}

func NewReconcileProcessor(ledger Reconciler, lock *PairLock, adapter redis.RedisAdapter) *ReconcileProcessor {
	return &ReconcileProcessor{ledger: ledger, lock: lock, adapter: adapter}
}

func (p *ReconcileProcessor) GetType() string {
	return "reconcile"
}

// Process returns an error only for failures worth retrying.
func (p *ReconcileProcessor) Process(ctx context.Context, msg *queue.Message) error {
	start := time.Now()

	job, err := queue.DecodeReconcileJob(msg)
	if err != nil {
		logger.Error("dropping malformed reconcile job", "message_id", msg.ID, "error", err)
		prom.ObserveReconcileJob("invalid", time.Since(start).Seconds())
		return nil
	}

	// writes landing from here on queue a new job
	if err := queue.ClearDebounce(ctx, p.adapter, job); err != nil {
		logger.Warn("failed to clear reconcile debounce", "business_id", job.BusinessID, "customer_id", job.CustomerID, "error", err)
	}

	lease, err := p.lock.Acquire(ctx, job.BusinessID, job.CustomerID)
	if err != nil {
		prom.ObserveReconcileJob("locked", time.Since(start).Seconds())
		return err
	}
	defer func() { _ = p.lock.Release(context.WithoutCancel(ctx), lease) }()

	res, err := p.ledger.ReconcilePair(ctx, job.BusinessID, job.CustomerID, reconcileSource)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			logger.Warn("reconcile job for unknown pair", "business_id", job.BusinessID, "customer_id", job.CustomerID)
			prom.ObserveReconcileJob("not_found", time.Since(start).Seconds())
			return nil
		}
		prom.ObserveReconcileJob("failure", time.Since(start).Seconds())
		return err
	}

	result := "ok"
	if res.Drifted {
		result = "repaired"
	}
	prom.ObserveReconcileJob(result, time.Since(start).Seconds())
	logger.Debug("pair reconciled",
		"business_id", job.BusinessID,
		"customer_id", job.CustomerID,
		"balance", res.Balance.StringFixed(2),
		"reason", job.Reason,
		"attempt", msg.Attempts)
	return nil
}

type PairLister interface {
	ListPairs(ctx context.Context) ([]*model.CustomerCredit, error)
}

type Scheduler interface {
	ScheduleReconcile(ctx context.Context, job model.ReconcileJob) error
}

// Sweep queues a reconcile job for every known pair and returns how many were queued.
func Sweep(ctx context.Context, pairs PairLister, scheduler Scheduler, reason string) (int, error) {
	credits, err := pairs.ListPairs(ctx)
	if err != nil {
		return 0, err
	}
	queued := 0
	for _, c := range credits {
		if err := ctx.Err(); err != nil {
			return queued, err
		}
		job := model.ReconcileJob{BusinessID: c.BusinessID, CustomerID: c.CustomerID, Reason: reason}
		if err := scheduler.ScheduleReconcile(ctx, job); err != nil {
			return queued, err
		}
		queued++
	}
	logger.Info("reconcile sweep queued", "pairs", queued, "reason", reason)
	return queued, nil
}
