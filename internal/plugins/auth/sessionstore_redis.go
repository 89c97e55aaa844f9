package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// sessionKeyPrefix is the Redis key prefix for session data.
const sessionKeyPrefix = "session:"

// RedisSessionStore keeps sessions in Redis as JSON values so they survive
// restarts and are shared between app instances. The Redis key TTL is the
// session lifetime; zero means no expiry.
type RedisSessionStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisSessionStore creates a store on the given client.
func NewRedisSessionStore(rdb *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{redis: rdb, ttl: ttl}
}

// Create generates a token and writes the session under session:<token>.
func (s *RedisSessionStore) Create(ctx context.Context, sess *Session) (string, error) {
	token, err := generateSessionToken()
	if err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return "", fmt.Errorf("marshaling session: %w", err)
	}

	// SetNX guards against the (astronomically unlikely) token collision
	// overwriting someone else's session.
	ok, err := s.redis.SetNX(ctx, sessionKeyPrefix+token, data, s.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("storing session in Redis: %w", err)
	}
	if !ok {
		return "", errors.New("session token collision")
	}

	return token, nil
}

// Get reads and decodes the session for token.
func (s *RedisSessionStore) Get(ctx context.Context, token string) (*Session, error) {
	data, err := s.redis.Get(ctx, sessionKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading session from Redis: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("unmarshaling session: %w", err)
	}

	return &sess, nil
}

// Delete removes the session key.
func (s *RedisSessionStore) Delete(ctx context.Context, token string) error {
	if err := s.redis.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("deleting session from Redis: %w", err)
	}
	return nil
}
