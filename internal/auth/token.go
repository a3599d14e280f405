// Package auth supplies the bearer token used for REST calls and channel handshakes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrNoToken is returned when no token is available.
var ErrNoToken = errors.New("authentication token not found")

// TokenSource returns the current access token.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Refresher is implemented by sources that can obtain a newer token after a 401.
type Refresher interface {
	Refresh(ctx context.Context) (string, error)
}

// StaticToken is a fixed token, typically from the environment. It cannot refresh.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", ErrNoToken
	}
	return string(t), nil
}

// RedisTokenSource reads the session token from Redis, where the login flow keeps it.
// Key layout: chat:session:{session}:access -> jwt (String, TTL).
type RedisTokenSource struct {
	rdb     *redis.Client
	session string

	mu     sync.Mutex
	cached string
}

func NewRedisTokenSource(rdb *redis.Client, session string) *RedisTokenSource {
	return &RedisTokenSource{rdb: rdb, session: session}
}

func (s *RedisTokenSource) key() string {
	return fmt.Sprintf("chat:session:%s:access", s.session)
}

// Token returns the cached token, loading it from Redis on first use.
func (s *RedisTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	cached := s.cached
	s.mu.Unlock()
	if cached != "" {
		return cached, nil
	}
	return s.load(ctx)
}

// Refresh drops the cached token and reads the current one from Redis.
func (s *RedisTokenSource) Refresh(ctx context.Context) (string, error) {
	s.mu.Lock()
	stale := s.cached
	s.cached = ""
	s.mu.Unlock()

	token, err := s.load(ctx)
	if err != nil {
		return "", err
	}
	if token == stale {
		return "", fmt.Errorf("refresh token: %w", ErrNoToken)
	}
	return token, nil
}

// Store writes a token for the session. Used by the login flow and tests.
func (s *RedisTokenSource) Store(ctx context.Context, token string, ttl time.Duration) error {
	if s == nil || s.rdb == nil {
		return fmt.Errorf("redis client is nil")
	}
	return s.rdb.Set(ctx, s.key(), token, ttl).Err()
}

func (s *RedisTokenSource) load(ctx context.Context) (string, error) {
	if s == nil || s.rdb == nil {
		return "", fmt.Errorf("redis client is nil")
	}
	token, err := s.rdb.Get(ctx, s.key()).Result()
	if errors.Is(err, redis.Nil) || (err == nil && token == "") {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}

	s.mu.Lock()
	s.cached = token
	s.mu.Unlock()
	return token, nil
}
