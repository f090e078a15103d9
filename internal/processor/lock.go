package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/khatape/khata-ledger/pkg/logger"
	"github.com/khatape/khata-ledger/pkg/redis"
)

var ErrLockHeld = errors.New("pair is locked by another reconciler")

type LockConfig struct {
	TTL       time.Duration
	KeyPrefix string
}

func DefaultLockConfig() LockConfig {
	return LockConfig{
		TTL:       30 * time.Second,
		KeyPrefix: "lock:pair:",
	}
}

// PairLock serialises reconciliation of one business/customer pair across reconcilers.
type PairLock struct {
	redis  redis.RedisAdapter
	config LockConfig
}

func NewPairLock(redisAdapter redis.RedisAdapter, config LockConfig) *PairLock {
	if config.TTL <= 0 {
		config.TTL = DefaultLockConfig().TTL
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultLockConfig().KeyPrefix
	}
	return &PairLock{redis: redisAdapter, config: config}
}

// Lease is a held lock. Only the holder's token can release it.
type Lease struct {
	key   string
	token []byte
}

func (l *PairLock) key(businessID, customerID uuid.UUID) string {
	return l.config.KeyPrefix + businessID.String() + ":" + customerID.String()
}

func (l *PairLock) Acquire(ctx context.Context, businessID, customerID uuid.UUID) (*Lease, error) {
	lease := &Lease{key: l.key(businessID, customerID), token: []byte(uuid.NewString())}

	acquired, err := l.redis.SetNX(ctx, lease.key, lease.token, l.config.TTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire pair lock: %w", err)
	}
	if !acquired {
		return nil, ErrLockHeld
	}
	logger.Debug("pair lock acquired", "key", lease.key, "ttl", l.config.TTL)
	return lease, nil
}

// Release drops the lock if it is still ours. An expired lease is not an error.
func (l *PairLock) Release(ctx context.Context, lease *Lease) error {
	if lease == nil {
		return nil
	}
	released, err := l.redis.DelIfEqual(ctx, lease.key, lease.token)
	if err != nil {
		logger.Warn("failed to release pair lock", "key", lease.key, "error", err)
		return err
	}
	if !released {
		logger.Warn("pair lock expired before release", "key", lease.key)
	}
	return nil
}
