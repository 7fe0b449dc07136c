package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when another holder owns the lock.
var ErrLockHeld = errors.New("lock: already held")

// releaseScript deletes the key only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker hands out short-lived exclusive locks backed by SET NX PX.
type Locker struct {
	cache *Cache
}

// NewLocker creates a Locker.
func NewLocker(cache *Cache) *Locker {
	return &Locker{cache: cache}
}

// Lock is a held lock. Release it when the protected work is done.
type Lock struct {
	client *redis.Client
	key    string
	token  string
}

// Acquire takes the lock for resource or returns ErrLockHeld.
// The lock expires after ttl even if never released.
func (l *Locker) Acquire(ctx context.Context, resource string, ttl time.Duration) (*Lock, error) {
	key := l.cache.Key(PrefixLock, resource)
	token := uuid.NewString()

	ok, err := l.cache.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return &Lock{client: l.cache.client, key: key, token: token}, nil
}

// Release frees the lock if it is still ours.
func (k *Lock) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, k.client, []string{k.key}, k.token).Err()
}

// TryLock is Acquire in the shape expected by background jobs: ok is false
// when another holder owns the lock.
func (l *Locker) TryLock(ctx context.Context, resource string, ttl time.Duration) (func(context.Context) error, bool, error) {
	lock, err := l.Acquire(ctx, resource, ttl)
	if errors.Is(err, ErrLockHeld) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return lock.Release, true, nil
}
