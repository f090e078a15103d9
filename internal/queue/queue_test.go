package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/khatape/khata-ledger/internal/model"
	"github.com/khatape/khata-ledger/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr := miniredis.RunT(t)

	// unique connection name per test, the adapter registry is global
	connName := t.Name() + "-" + mr.Addr()
	adapter, err := redis.NewRedisAdapter(connName, "test:", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)
	return mr, adapter
}

func testConfig() QueueConfig {
	return QueueConfig{
		Name:              "reconcile",
		ConsumerGroup:     "reconcilers",
		ConsumerName:      "test-consumer",
		MaxRetries:        2,
		VisibilityTimeout: 20 * time.Millisecond,
		PollInterval:      10 * time.Millisecond,
		BatchSize:         10,
		MaxLen:            1000,
		EnableDLQ:         true,
	}
}

func TestQueue_PublishAndPoll(t *testing.T) {
	_, adapter := setupTestRedis(t)
	q, err := NewQueue(adapter, testConfig())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = q.PublishJSON(ctx, map[string]string{"key": "value"}, map[string]string{"type": "test"})
	require.NoError(t, err)

	var got *Message
	q.handler = func(ctx context.Context, msg *Message) error {
		got = msg
		return nil
	}
	q.Poll(ctx)

	require.NotNil(t, got)
	var data map[string]string
	require.NoError(t, json.Unmarshal(got.Data, &data))
	assert.Equal(t, "value", data["key"])
	assert.Equal(t, "test", got.Metadata["type"])
	assert.Equal(t, 1, got.Attempts)

	stats, err := q.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalMessages)
	assert.Equal(t, int64(0), stats.PendingMessages)
	assert.Equal(t, 0, stats.InFlight)
}

func TestQueue_NewQueueIsIdempotent(t *testing.T) {
	_, adapter := setupTestRedis(t)
	_, err := NewQueue(adapter, testConfig())
	require.NoError(t, err)
	_, err = NewQueue(adapter, testConfig())
	require.NoError(t, err)

	_, err = NewQueue(adapter, QueueConfig{})
	assert.Error(t, err)
}

func TestQueue_RetriesAfterVisibilityTimeout(t *testing.T) {
	_, adapter := setupTestRedis(t)
	q, err := NewQueue(adapter, testConfig())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = q.Publish(ctx, []byte("payload"), nil)
	require.NoError(t, err)

	var attempts []int
	q.handler = func(ctx context.Context, msg *Message) error {
		attempts = append(attempts, msg.Attempts)
		if msg.Attempts == 1 {
			return errors.New("transient")
		}
		return nil
	}

	q.Poll(ctx)
	pending, err := adapter.XPendingCount(ctx, q.Name(), "reconcilers")
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)

	time.Sleep(40 * time.Millisecond)
	q.Poll(ctx)

	assert.Equal(t, []int{1, 2}, attempts)
	pending, err = adapter.XPendingCount(ctx, q.Name(), "reconcilers")
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending)
}

func TestQueue_DeadLetterAfterMaxRetries(t *testing.T) {
	_, adapter := setupTestRedis(t)
	cfg := testConfig()
	cfg.MaxRetries = 1
	q, err := NewQueue(adapter, cfg)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = q.Publish(ctx, []byte("poison"), map[string]string{"type": "reconcile"})
	require.NoError(t, err)

	calls := 0
	q.handler = func(ctx context.Context, msg *Message) error {
		calls++
		return errors.New("always fails")
	}

	q.Poll(ctx)
	time.Sleep(40 * time.Millisecond)
	q.Poll(ctx)

	assert.Equal(t, 1, calls)
	stats, err := q.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.PendingMessages)
	assert.Equal(t, int64(1), stats.DeadLetters)
}

func TestQueue_ConsumeAndStop(t *testing.T) {
	_, adapter := setupTestRedis(t)
	q, err := NewQueue(adapter, testConfig())
	require.NoError(t, err)
	ctx := context.Background()

	received := make(chan string, 1)
	require.NoError(t, q.Consume(func(ctx context.Context, msg *Message) error {
		received <- string(msg.Data)
		return nil
	}))

	_, err = q.Publish(ctx, []byte("hello"), nil)
	require.NoError(t, err)

	select {
	case data := <-received:
		assert.Equal(t, "hello", data)
	case <-time.After(2 * time.Second):
		t.Fatal("message was not consumed")
	}

	assert.NoError(t, q.Stop(time.Second))
	assert.Error(t, q.Consume(nil))
}

func TestReconcilePublisher_Debounce(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	q, err := NewQueue(adapter, testConfig())
	require.NoError(t, err)
	ctx := context.Background()

	p := NewReconcilePublisher(q, adapter, time.Minute)
	job := model.ReconcileJob{BusinessID: uuid.New(), CustomerID: uuid.New(), Reason: "record_transaction"}

	require.NoError(t, p.ScheduleReconcile(ctx, job))
	require.NoError(t, p.ScheduleReconcile(ctx, job))

	n, err := adapter.XLen(ctx, q.Name())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.True(t, mr.Exists("test:"+DebounceKey(job)))

	other := model.ReconcileJob{BusinessID: job.BusinessID, CustomerID: uuid.New()}
	require.NoError(t, p.ScheduleReconcile(ctx, other))

	require.NoError(t, ClearDebounce(ctx, adapter, job))
	require.NoError(t, p.ScheduleReconcile(ctx, job))

	n, err = adapter.XLen(ctx, q.Name())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	var decoded []model.ReconcileJob
	q.handler = func(ctx context.Context, msg *Message) error {
		j, err := DecodeReconcileJob(msg)
		require.NoError(t, err)
		assert.Equal(t, "reconcile", msg.Metadata["type"])
		decoded = append(decoded, j)
		return nil
	}
	q.Poll(ctx)
	require.Len(t, decoded, 3)
	assert.Equal(t, job, decoded[0])
}

func TestDecodeReconcileJob_Invalid(t *testing.T) {
	_, err := DecodeReconcileJob(&Message{ID: "1-0", Data: []byte("{")})
	assert.Error(t, err)
}
