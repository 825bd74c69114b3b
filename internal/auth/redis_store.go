package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSessionStore keeps sessions in Redis so replicas share state and
// expiry is enforced server-side via key TTLs.
type RedisSessionStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// RedisSessionConfig describes the Redis connection for session storage.
type RedisSessionConfig struct {
	Addr      string
	Username  string
	Password  string
	DB        int
	KeyPrefix string
}

// NewRedisSessionStore connects to Redis and verifies the connection.
func NewRedisSessionStore(cfg RedisSessionConfig) (*RedisSessionStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis session addr required")
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{cfg.Addr},
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis session store: %w", err)
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "session:"
	}
	return &RedisSessionStore{client: client, keyPrefix: prefix}, nil
}

// Close releases the Redis client resources.
func (s *RedisSessionStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *RedisSessionStore) key(token string) string {
	return s.keyPrefix + token
}

// Save stores the session with a TTL matching its expiry; Redis drops the
// key on its own once the session lapses.
func (s *RedisSessionStore) Save(token, userID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return s.Delete(token)
	}
	return s.client.Set(context.Background(), s.key(token), userID, ttl).Err()
}

// Get retrieves the session record for the provided token.
func (s *RedisSessionStore) Get(token string) (SessionRecord, bool, error) {
	ctx := context.Background()
	key := s.key(token)
	userID, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return SessionRecord{}, false, nil
		}
		return SessionRecord{}, false, fmt.Errorf("get session: %w", err)
	}
	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return SessionRecord{}, false, fmt.Errorf("session ttl: %w", err)
	}
	record := SessionRecord{Token: token, UserID: userID}
	if ttl > 0 {
		record.ExpiresAt = time.Now().Add(ttl).UTC()
	}
	return record, true, nil
}

// Delete removes the session token.
func (s *RedisSessionStore) Delete(token string) error {
	return s.client.Del(context.Background(), s.key(token)).Err()
}

// PurgeExpired is a no-op: Redis evicts expired session keys itself.
func (s *RedisSessionStore) PurgeExpired(time.Time) error {
	return nil
}

// Ping verifies the Redis connection.
func (s *RedisSessionStore) Ping(ctx context.Context) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("redis session client not configured")
	}
	return s.client.Ping(ctx).Err()
}
