package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/figflow/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// ErrLockAcquire wraps Redis failures while taking a document lock.
var ErrLockAcquire = errors.New("failed to acquire distributed lock")

// DefaultRetryInterval is how often a blocked Lock polls the key.
const DefaultRetryInterval = 50 * time.Millisecond

// Deletes the lock only while it still carries the caller's token.
var releaseScript = backend.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Locker serializes write-backs on a document across processes.
type Locker struct {
	client *backend.Client
	prefix string
	retry  time.Duration
}

// LockerOption configures a Locker.
type LockerOption func(*Locker)

// WithRetryInterval changes how often a blocked Lock polls.
func WithRetryInterval(d time.Duration) LockerOption {
	return func(l *Locker) {
		if d > 0 {
			l.retry = d
		}
	}
}

// NewLocker creates a Locker whose keys live under prefix+"lock:". An empty prefix uses
// DefaultPrefix.
func NewLocker(client *backend.Client, prefix string, opts ...LockerOption) *Locker {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	l := &Locker{client: client, prefix: prefix, retry: DefaultRetryInterval}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Lock takes key with SET NX PX and keeps polling while another holder owns it.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	k := l.prefix + "lock:" + key
	token, err := newToken()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLockAcquire, err)
	}

	var poll *time.Ticker
	for {
		ok, err := l.client.SetNX(ctx, k, token, ttl).Result()
		switch {
		case err != nil && ctx.Err() != nil:
			return nil, ctx.Err()
		case err != nil:
			return nil, fmt.Errorf("%w: %w", ErrLockAcquire, err)
		case ok:
			return func(ctx context.Context) error {
				return releaseScript.Run(ctx, l.client, []string{k}, token).Err()
			}, nil
		}

		if poll == nil {
			poll = time.NewTicker(l.retry)
			defer poll.Stop()
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-poll.C:
		}
	}
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

var _ ports.DistributedLocker = (*Locker)(nil)
