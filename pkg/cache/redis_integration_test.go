package cache

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestRedisCacheIntegration(t *testing.T) {
	addr := os.Getenv("STUDIO_REDIS_ADDR")
	if addr == "" {
		t.Skip("STUDIO_REDIS_ADDR not set")
	}

	ctx := context.Background()
	c, err := NewRedisCache(ctx, addr)
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	defer c.Close()

	key := NewScopedKeyer(nil, "templatestudio-test:").ImageKey("https://cdn.example.com/a.jpg", true)
	defer c.Delete(ctx, key)

	if _, hit, err := c.Get(ctx, key); hit || err != nil {
		t.Fatalf("Get before Set = %v, %v; want miss", hit, err)
	}
	if err := c.Set(ctx, key, []byte("bytes"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, key)
	if err != nil || !hit || string(data) != "bytes" {
		t.Errorf("Get = %q, %v, %v; want bytes, true, nil", data, hit, err)
	}
}
