package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// Runs only when REDIS_ADDR points at a reachable server.
func TestRedisKV_RoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unreachable: %v", err)
	}

	kv := NewRedisKV(rdb, "roadassist:test:"+t.Name())
	if _, err := kv.Get(ctx, KeyUser); err != ErrNotFound {
		t.Fatalf("Get missing = %v, want ErrNotFound", err)
	}
	if err := kv.Set(ctx, KeyUser, "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, err := kv.Get(ctx, KeyUser); err != nil || got != "v" {
		t.Errorf("Get = (%q, %v), want (v, nil)", got, err)
	}
	if err := kv.Delete(ctx, KeyUser); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := kv.Delete(ctx, KeyUser); err != nil {
		t.Errorf("Delete missing: %v", err)
	}
}
