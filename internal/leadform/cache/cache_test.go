package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T, ttl time.Duration) (*ConfigCache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, ttl), srv
}

func TestConfigCacheRoundTrip(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	if _, ok, err := c.Get(ctx); err != nil || ok {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}

	if err := c.Set(ctx, []byte(`{"maxScore":100}`)); err != nil {
		t.Fatalf("set: %v", err)
	}

	raw, ok, err := c.Get(ctx)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if string(raw) != `{"maxScore":100}` {
		t.Fatalf("unexpected cached value %s", raw)
	}
}

func TestConfigCacheExpires(t *testing.T) {
	c, srv := newTestCache(t, 30*time.Second)
	ctx := context.Background()

	if err := c.Set(ctx, []byte("x")); err != nil {
		t.Fatalf("set: %v", err)
	}
	srv.FastForward(31 * time.Second)

	if _, ok, _ := c.Get(ctx); ok {
		t.Fatal("expected entry to expire")
	}
}

func TestConfigCacheInvalidate(t *testing.T) {
	c, srv := newTestCache(t, 0)
	ctx := context.Background()

	if err := c.Set(ctx, []byte("x")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if ttl := srv.TTL(effectiveConfigKey); ttl != DefaultTTL {
		t.Fatalf("expected default ttl, got %s", ttl)
	}
	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if srv.Exists(effectiveConfigKey) {
		t.Fatal("expected key to be deleted")
	}
}

func TestConfigCacheReportsServerErrors(t *testing.T) {
	c, srv := newTestCache(t, time.Minute)
	srv.Close()

	if _, _, err := c.Get(context.Background()); err == nil {
		t.Fatal("expected error when redis is down")
	}
}
