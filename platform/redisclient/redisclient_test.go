package redisclient

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

type redisCfg struct {
	url      string
	insecure bool
}

func (c redisCfg) GetRedisURL() string       { return c.url }
func (c redisCfg) GetRedisTLSInsecure() bool { return c.insecure }

func TestNewConnectsToServer(t *testing.T) {
	srv := miniredis.RunT(t)

	client, err := New(context.Background(), redisCfg{url: "redis://" + srv.Addr()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer client.Close()

	if err := client.Set(context.Background(), "k", "v", 0).Err(); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if got, _ := srv.Get("k"); got != "v" {
		t.Fatalf("expected value in miniredis, got %q", got)
	}
}

func TestOptionsRequiresURL(t *testing.T) {
	if _, err := Options(redisCfg{}); err == nil {
		t.Fatal("expected error for empty redis url")
	}
}

func TestOptionsInsecureTLS(t *testing.T) {
	opt, err := Options(redisCfg{url: "redis://localhost:6379/0", insecure: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opt.TLSConfig == nil || !opt.TLSConfig.InsecureSkipVerify {
		t.Fatal("expected insecure TLS config")
	}
}
