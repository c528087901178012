package service

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"

	goredis "github.com/redis/go-redis/v9"

	redisclient "github.com/commentflow/outreach-server-go/internal/redis"
)

// ErrLeaseHeld is returned when another execution currently holds the
// account's lease.
var ErrLeaseHeld = errors.New("account lease held elsewhere")

// Lease is an exclusive, expiring hold on one execution account.
type Lease interface {
	Release(ctx context.Context) error
}

// AccountLocker hands out exclusive account leases so two concurrent
// executions never drive the same credential's session at once.
type AccountLocker interface {
	Obtain(ctx context.Context, accountID string, ttl time.Duration) (Lease, error)
}

type redisLocker struct {
	locker *redislock.Client
}

// NewAccountLocker builds a redislock-backed locker.
func NewAccountLocker(client *goredis.Client) AccountLocker {
	return &redisLocker{locker: redislock.New(client)}
}

func (l *redisLocker) Obtain(ctx context.Context, accountID string, ttl time.Duration) (Lease, error) {
	lock, err := l.locker.Obtain(ctx, redisclient.AccountLeaseKey(accountID), ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLeaseHeld
	}
	if err != nil {
		return nil, err
	}
	return redisLease{lock: lock}, nil
}

type redisLease struct {
	lock *redislock.Lock
}

func (l redisLease) Release(ctx context.Context) error {
	err := l.lock.Release(ctx)
	if errors.Is(err, redislock.ErrLockNotHeld) {
		// Lease already expired; the TTL did its job.
		return nil
	}
	return err
}
