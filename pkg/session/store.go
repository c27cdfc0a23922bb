package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/platinummonkey/authgate/pkg/config"
)

// keyPrefix namespaces session records in the shared Redis keyspace.
const keyPrefix = "session:"

// userField is the hash field holding the owning user's id.
const userField = "user"

// RedisStore handles session record operations
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis-backed session store
func NewRedisStore(cfg config.SessionConfig) (*RedisStore, error) {
	// Parse Redis URL or use default options
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	// Override with config values if provided
	if cfg.RedisPassword != "" {
		opts.Password = cfg.RedisPassword
	}
	if cfg.RedisDB >= 0 {
		opts.DB = cfg.RedisDB
	}
	if cfg.RedisMaxRetries > 0 {
		opts.MaxRetries = cfg.RedisMaxRetries
	}
	if cfg.RedisPoolSize > 0 {
		opts.PoolSize = cfg.RedisPoolSize
	}

	// Set connection timeouts
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolTimeout = 4 * time.Second

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreWithClient wraps an existing client (used by tests)
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Exists reports whether a session record exists for the token
func (s *RedisStore) Exists(ctx context.Context, token string) (bool, error) {
	n, err := s.client.Exists(ctx, keyPrefix+token).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists failed: %w", err)
	}
	return n > 0, nil
}

// Put writes a session record with the given lifetime. The write and
// the expiry are two commands; a crash between them leaves a record
// without a TTL, which the proxy treats the same as any live session.
func (s *RedisStore) Put(ctx context.Context, token string, userID int64, ttl time.Duration) error {
	key := keyPrefix + token
	if err := s.client.HSet(ctx, key, userField, strconv.FormatInt(userID, 10)).Err(); err != nil {
		return fmt.Errorf("redis hset failed: %w", err)
	}
	if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("redis expire failed: %w", err)
	}
	return nil
}

// GetUser returns the user id a token resolves to. The second return
// is false when the record is missing, expired, or holds a value that
// does not parse as a positive user id.
func (s *RedisStore) GetUser(ctx context.Context, token string) (int64, bool, error) {
	val, err := s.client.HGet(ctx, keyPrefix+token, userField).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis hget failed: %w", err)
	}

	userID, err := strconv.ParseInt(val, 10, 64)
	if err != nil || userID <= 0 {
		// Corrupt record; drop it rather than keep resolving to garbage.
		// User ids start at 1, so a stored zero is as invalid as text.
		s.client.Del(ctx, keyPrefix+token)
		return 0, false, nil
	}
	return userID, true, nil
}

// Delete removes a session record. Deleting an absent token is a no-op.
func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, keyPrefix+token).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

// Ping checks Redis connectivity
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Client returns the underlying Redis client for health checks
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
