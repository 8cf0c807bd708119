package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore implements the Store interface using Redis. The TTL
// doubles as a second line of expiry for the mirror: if the whole
// process dies, the records age out on their own.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a new RedisStore.
func NewRedisStore(client *redis.Client, ttl time.Duration) Store {
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

func recordKey(sessionID string) string {
	return fmt.Sprintf("photobooth:session:%s", sessionID)
}

// Save stores a record in Redis with a TTL.
func (s *RedisStore) Save(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal session record: %w", err)
	}
	return s.client.Set(ctx, recordKey(rec.SessionID), data, s.ttl).Err()
}

// Get retrieves a record from Redis.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (*Record, error) {
	data, err := s.client.Get(ctx, recordKey(sessionID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Not found is not an error, just means no record
		}
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session record: %w", err)
	}
	return &rec, nil
}

// Delete removes a record from Redis.
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, recordKey(sessionID)).Err()
}

// Touch updates the expiration time of a record key in Redis.
// If the key doesn't exist, it's a no-op which is fine.
func (s *RedisStore) Touch(ctx context.Context, sessionID string) error {
	return s.client.Expire(ctx, recordKey(sessionID), s.ttl).Err()
}
