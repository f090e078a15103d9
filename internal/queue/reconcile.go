package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/khatape/khata-ledger/internal/model"
	"github.com/khatape/khata-ledger/pkg/redis"
)

const jobTypeReconcile = "reconcile"

// ReconcilePublisher queues reconcile jobs. A job already waiting for the same
// pair absorbs new requests until the consumer clears its debounce key.
type ReconcilePublisher struct {
	queue    *Queue
	adapter  redis.RedisAdapter
	debounce time.Duration
}

func NewReconcilePublisher(q *Queue, adapter redis.RedisAdapter, debounce time.Duration) *ReconcilePublisher {
	return &ReconcilePublisher{queue: q, adapter: adapter, debounce: debounce}
}

func DebounceKey(job model.ReconcileJob) string {
	return fmt.Sprintf("reconcile:queued:%s:%s", job.BusinessID, job.CustomerID)
}

func (p *ReconcilePublisher) ScheduleReconcile(ctx context.Context, job model.ReconcileJob) error {
	if p.debounce > 0 {
		fresh, err := p.adapter.SetNX(ctx, DebounceKey(job), []byte(job.Reason), p.debounce)
		if err != nil {
			return fmt.Errorf("failed to set debounce key: %w", err)
		}
		if !fresh {
			return nil
		}
	}
	_, err := p.queue.PublishJSON(ctx, job, map[string]string{"type": jobTypeReconcile, "reason": job.Reason})
	return err
}

// ClearDebounce lets the next write of the pair queue a fresh job.
// Consumers call it before recomputing.
func ClearDebounce(ctx context.Context, adapter redis.RedisAdapter, job model.ReconcileJob) error {
	return adapter.Del(ctx, DebounceKey(job))
}

func DecodeReconcileJob(msg *Message) (model.ReconcileJob, error) {
	var job model.ReconcileJob
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		return job, fmt.Errorf("invalid reconcile job %s: %w", msg.ID, err)
	}
	return job, nil
}
