package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "docqa:job:"

// RedisStore keeps job snapshots in Redis so that any API instance can
// answer a status poll. Keys expire after the job TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// DialRedis connects to addr and pings it.
func DialRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:                  addr,
		ContextTimeoutEnabled: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

func (s *RedisStore) Save(ctx context.Context, snap JobSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", snap.ID, err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+snap.ID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save job %s: %w", snap.ID, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (JobSnapshot, bool, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return JobSnapshot{}, false, nil
	}
	if err != nil {
		return JobSnapshot{}, false, fmt.Errorf("get job %s: %w", id, err)
	}
	var snap JobSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return JobSnapshot{}, false, fmt.Errorf("decode job %s: %w", id, err)
	}
	return snap, true, nil
}

// Cleanup is a no-op; Redis expires keys itself.
func (s *RedisStore) Cleanup(context.Context) error {
	return nil
}
