package ratelimit

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, limit int) (*FixedWindowLimiter, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	limiter, err := NewFixedWindowLimiter(client, "test:ratelimit", limit, time.Second)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	return limiter, srv
}

func TestFixedWindowLimiter(t *testing.T) {
	limiter, _ := newTestLimiter(t, 2)
	if !limiter.Allow("ip-1") {
		t.Fatalf("first request should pass")
	}
	if !limiter.Allow("ip-1") {
		t.Fatalf("second request should pass")
	}
	if limiter.Allow("ip-1") {
		t.Fatalf("third request should be blocked")
	}
	if !limiter.Allow("ip-2") {
		t.Fatalf("different key should have its own window")
	}
}

func TestFixedWindowLimiterFailClosed(t *testing.T) {
	limiter, srv := newTestLimiter(t, 1)
	srv.Close()
	if limiter.Allow("ip-1") {
		t.Fatalf("limiter should fail closed on redis errors")
	}
}

func TestFixedWindowLimiterRequiresClient(t *testing.T) {
	if _, err := NewFixedWindowLimiter(nil, "test:ratelimit", 1, time.Second); err == nil {
		t.Fatalf("expected constructor error for nil client")
	}
}
