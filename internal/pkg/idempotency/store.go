// Package idempotency lets clients retry unsafe requests. The first request
// carrying an Idempotency-Key reserves the key in Redis; its response is then
// stored under the key and replayed to every retry until the key expires.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrNotFound   = errors.New("idempotency key not found")
	ErrInProgress = errors.New("request with this idempotency key is still in progress")
)

const inProgressMarker = "in-progress"

// Response is what gets replayed for a repeated key.
type Response struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

type RedisStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisStore(rdb redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Key(scope, key string) string {
	return fmt.Sprintf("idem:%s:%s", scope, key)
}

// Reserve claims key. It reports false when the key was already claimed.
func (s *RedisStore) Reserve(ctx context.Context, key string) (bool, error) {
	return s.rdb.SetNX(ctx, key, inProgressMarker, s.ttl).Result()
}

func (s *RedisStore) Load(ctx context.Context, key string) (Response, error) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Response{}, ErrNotFound
	}
	if err != nil {
		return Response{}, err
	}
	if string(data) == inProgressMarker {
		return Response{}, ErrInProgress
	}

	var resp Response
	if err = json.Unmarshal(data, &resp); err != nil {
		return Response{}, fmt.Errorf("decode stored response: %w", err)
	}
	return resp, nil
}

func (s *RedisStore) Save(ctx context.Context, key string, resp Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, data, s.ttl).Err()
}

// Release drops a reservation so the request can be retried from scratch.
func (s *RedisStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
