package redis

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still holds our token, so an
// expired lock taken over by another holder is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock is a per-key mutual exclusion lock with a TTL. Each Acquire stores a
// random token; Release only removes keys holding the token this Lock set,
// Delete removes the key whoever holds it.
type Lock struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration

	mu     sync.Mutex
	leases map[string]lease
}

type lease struct {
	token   string
	expires time.Time
}

// NewLock panics on a nil client or a non-positive ttl.
func NewLock(client redis.UniversalClient, prefix string, ttl time.Duration) *Lock {
	if client == nil {
		panic("redis: client is required")
	}
	if ttl <= 0 {
		panic("redis: lock ttl must be positive")
	}
	return &Lock{client: client, prefix: prefix, ttl: ttl, leases: make(map[string]lease)}
}

// Acquire returns false when another holder owns the key.
func (l *Lock) Acquire(ctx context.Context, key string) (bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.prefix+key, token, l.ttl).Result()
	if err != nil {
		return false, err
	}
	if ok {
		now := time.Now()
		l.mu.Lock()
		// keys never released locally expire in Redis; forget them too
		for k, v := range l.leases {
			if now.After(v.expires) {
				delete(l.leases, k)
			}
		}
		l.leases[key] = lease{token: token, expires: now.Add(l.ttl)}
		l.mu.Unlock()
	}
	return ok, nil
}

// Release drops the lock if this Lock still owns it.
func (l *Lock) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	held, ok := l.leases[key]
	delete(l.leases, key)
	l.mu.Unlock()
	if !ok {
		return nil
	}
	err := releaseScript.Run(ctx, l.client, []string{l.prefix + key}, held.token).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// Delete removes the key regardless of which holder set it.
func (l *Lock) Delete(ctx context.Context, key string) error {
	l.mu.Lock()
	delete(l.leases, key)
	l.mu.Unlock()
	return l.client.Del(ctx, l.prefix+key).Err()
}
