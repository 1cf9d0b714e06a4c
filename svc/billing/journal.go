package billing

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/familykit/pkg/subscription"
)

// RedisJournal keeps pending local writes in Redis so they survive restarts
// and are visible to every replica. Entries expire after ttl.
type RedisJournal struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ subscription.ReconciliationJournal = (*RedisJournal)(nil)

func NewRedisJournal(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisJournal {
	if client == nil {
		panic("billing: redis client is required")
	}
	return &RedisJournal{client: client, prefix: prefix, ttl: ttl}
}

func (j *RedisJournal) key(userID uuid.UUID) string {
	return j.prefix + userID.String()
}

func (j *RedisJournal) Record(ctx context.Context, w subscription.PendingWrite) error {
	data, err := json.Marshal(w)
	if err != nil {
		return errors.Join(ErrJournal, err)
	}
	if err := j.client.Set(ctx, j.key(w.UserID), data, j.ttl).Err(); err != nil {
		return errors.Join(ErrJournal, err)
	}
	return nil
}

func (j *RedisJournal) Pending(ctx context.Context, userID uuid.UUID) (*subscription.PendingWrite, error) {
	data, err := j.client.Get(ctx, j.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Join(ErrJournal, err)
	}
	var w subscription.PendingWrite
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, errors.Join(ErrJournal, err)
	}
	return &w, nil
}

func (j *RedisJournal) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := j.client.Del(ctx, j.key(userID)).Err(); err != nil {
		return errors.Join(ErrJournal, err)
	}
	return nil
}
