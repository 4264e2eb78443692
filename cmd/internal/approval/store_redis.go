package approval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Store backed by Redis string keys.
//
// Durability follows the server's persistence policy (appendfsync). The optional
// retention TTL bounds sessions that never reach a terminal state.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisOption configures RedisStore behavior.
type RedisOption func(*RedisStore)

// WithKeyPrefix overrides the default "approval:" key prefix.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithRetention sets a TTL applied on every Put. Zero keeps keys until deleted.
func WithRetention(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewRedisStore creates a Redis-backed Store. The client is owned by the caller.
func NewRedisStore(client *redis.Client, opts ...RedisOption) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("approval: nil redis client")
	}
	s := &RedisStore{client: client, prefix: "approval:"}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// DialRedis connects and pings within two seconds.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// Close is a no-op because the client is owned by the caller.
func (s *RedisStore) Close() error { return nil }

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

// Put upserts the state for id.
func (s *RedisStore) Put(ctx context.Context, id string, state State) error {
	if err := validatePut(id, state); err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(id), string(state), s.ttl).Err(); err != nil {
		return fmt.Errorf("redis put: %w", err)
	}
	return nil
}

// Get returns the state for id, or StatePending when absent.
func (s *RedisStore) Get(ctx context.Context, id string) (State, error) {
	if err := validateID(id); err != nil {
		return "", err
	}

	val, err := s.client.Get(ctx, s.key(id)).Result()
	if errors.Is(err, redis.Nil) {
		return StatePending, nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get: %w", err)
	}
	return ParseState(val)
}

// Delete removes id if present.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}
