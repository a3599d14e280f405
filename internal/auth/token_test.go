package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func TestStaticToken(t *testing.T) {
	if _, err := StaticToken("").Token(context.Background()); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
	tok, err := StaticToken("abc").Token(context.Background())
	if err != nil || tok != "abc" {
		t.Fatalf("unexpected token %q err %v", tok, err)
	}
}

func TestRedisTokenSource_LoadAndCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	src := NewRedisTokenSource(rdb, "s1")
	ctx := context.Background()

	if _, err := src.Token(ctx); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken before login, got %v", err)
	}

	if err := src.Store(ctx, "jwt-1", time.Hour); err != nil {
		t.Fatalf("Store err: %v", err)
	}
	tok, err := src.Token(ctx)
	if err != nil || tok != "jwt-1" {
		t.Fatalf("Token = %q, %v", tok, err)
	}

	// cached value survives a backend change until Refresh
	mr.Set("chat:session:s1:access", "jwt-2")
	tok, _ = src.Token(ctx)
	if tok != "jwt-1" {
		t.Fatalf("expected cached jwt-1, got %q", tok)
	}
}

func TestRedisTokenSource_Refresh(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	src := NewRedisTokenSource(rdb, "s1")
	ctx := context.Background()
	_ = src.Store(ctx, "jwt-1", time.Hour)
	_, _ = src.Token(ctx)

	if _, err := src.Refresh(ctx); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected refresh failure when token unchanged, got %v", err)
	}

	mr.Set("chat:session:s1:access", "jwt-2")
	tok, err := src.Refresh(ctx)
	if err != nil || tok != "jwt-2" {
		t.Fatalf("Refresh = %q, %v", tok, err)
	}

	mr.FastForward(2 * time.Hour)
	mr.Del("chat:session:s1:access")
	if _, err := src.Refresh(ctx); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken after expiry, got %v", err)
	}
}
