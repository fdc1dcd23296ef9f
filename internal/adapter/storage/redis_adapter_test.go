package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestRedisRevoke(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client)
	id := uuid.NewString()
	defer client.Del(ctx, revokedKeyPrefix+id)

	revoked, err := adapter.IsRevoked(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if revoked {
		t.Fatal("fresh token reported revoked")
	}

	if err := adapter.Revoke(ctx, id, time.Minute); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	// second revoke is a no-op
	if err := adapter.Revoke(ctx, id, time.Hour); err != nil {
		t.Fatalf("second Revoke failed: %v", err)
	}

	revoked, err = adapter.IsRevoked(ctx, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !revoked {
		t.Error("expected token to be revoked")
	}

	ttl := client.TTL(ctx, revokedKeyPrefix+id).Val()
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("expected ttl within a minute, got %s", ttl)
	}
}

func TestRedisRevoke_ExpiredTokenIsSkipped(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client)
	id := uuid.NewString()

	if err := adapter.Revoke(ctx, id, 0); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if n := client.Exists(ctx, revokedKeyPrefix+id).Val(); n != 0 {
		t.Error("expired token should not be stored")
	}
}
