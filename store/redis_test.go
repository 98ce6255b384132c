package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupRedis(t *testing.T, prefix string) (*RedisBackend, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	b := NewRedisBackend(client, prefix, time.Second)
	t.Cleanup(func() { _ = b.Close() })
	return b, mr
}

func TestRedisBackend_Contract(t *testing.T) {
	b, _ := setupRedis(t, "catalog:")
	exerciseBackend(t, b)
}

func TestRedisBackend_Prefix(t *testing.T) {
	b, mr := setupRedis(t, "catalog:")
	ctx := context.Background()

	if err := b.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	got, err := mr.Get("catalog:k")
	if err != nil {
		t.Fatalf("expected prefixed key in redis: %v", err)
	}
	if got != "v" {
		t.Fatalf("value = %q", got)
	}
	if err := b.Ping(ctx); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
}

func TestRedisBackend_ServerDown(t *testing.T) {
	b, mr := setupRedis(t, "")
	ctx := context.Background()
	mr.Close()

	if _, _, err := b.Get(ctx, "k"); err == nil {
		t.Fatal("expected error from closed server")
	}
	if err := b.Set(ctx, "k", []byte("v")); err == nil {
		t.Fatal("expected error from closed server")
	}

	// Storage swallows the failure
	s := NewStorage(b)
	if s.Exists(ctx) {
		t.Fatal("Exists should report false when redis is down")
	}
	if s.SaveProducts(ctx, nil) {
		t.Fatal("SaveProducts should report false when redis is down")
	}
}
