package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/crudkit/sampleapi/internal/model"
	"github.com/redis/go-redis/v9"
)

type RedisIdempotencyStore struct {
	client redis.Cmdable
	ttl    time.Duration
	prefix string
}

func NewRedisIdempotencyStore(client redis.Cmdable, ttl time.Duration) *RedisIdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisIdempotencyStore{
		client: client,
		ttl:    ttl,
		prefix: "idem:",
	}
}

// GetOrLock claims key with SET NX. A failed claim returns the stored record.
func (s *RedisIdempotencyStore) GetOrLock(ctx context.Context, key string) (*model.IdempotencyRecord, bool) {
	pending, _ := encodeIdemRecord(model.IdempotencyRecord{
		CreatedAt:  time.Now().UTC(),
		Processing: true,
	})
	ok, err := s.client.SetNX(ctx, s.prefix+key, pending, s.ttl).Result()
	if err == nil && ok {
		return nil, false
	}

	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		// redis 不可用时放行，不阻塞业务
		return nil, false
	}
	rec, err := decodeIdemRecord(raw)
	if err != nil {
		return nil, false
	}
	return rec, true
}

func (s *RedisIdempotencyStore) Save(ctx context.Context, key string, status int, body []byte) {
	payload, err := encodeIdemRecord(model.IdempotencyRecord{
		Status:    status,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return
	}
	_ = s.client.Set(ctx, s.prefix+key, payload, s.ttl).Err()
}

func (s *RedisIdempotencyStore) Unlock(ctx context.Context, key string) {
	_ = s.client.Del(ctx, s.prefix+key).Err()
}

func encodeIdemRecord(rec model.IdempotencyRecord) ([]byte, error) {
	return json.Marshal(rec)
}

func decodeIdemRecord(raw []byte) (*model.IdempotencyRecord, error) {
	if len(raw) == 0 {
		return nil, errors.New("empty idempotency record")
	}
	var rec model.IdempotencyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
