package cache

import (
	"context"
	"testing"
	"time"

	"github.com/dujiao-next/mall/internal/config"
)

func TestDisabledCacheIsNoop(t *testing.T) {
	if err := InitRedis(&config.RedisConfig{Enabled: false, Prefix: "shop"}); err != nil {
		t.Fatalf("init redis failed: %v", err)
	}
	if Enabled() || Client() != nil {
		t.Fatalf("expected redis disabled")
	}

	ctx := context.Background()
	callbacks := NewCallbackCache(0)
	if callbacks.ttl != callbackMarkerTTL {
		t.Fatalf("unexpected default ttl: %s", callbacks.ttl)
	}
	callbacks.MarkApplied(ctx, "pay:M1")
	if callbacks.IsApplied(ctx, "pay:M1") {
		t.Fatalf("disabled cache must never report a hit")
	}

	if err := SetJSON(ctx, "k", map[string]int{"a": 1}, time.Minute); err != nil {
		t.Fatalf("set json failed: %v", err)
	}
	if hit, err := Exists(ctx, "k"); err != nil || hit {
		t.Fatalf("expected miss, got hit=%v err=%v", hit, err)
	}
	if err := Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}

func TestKey(t *testing.T) {
	redisPrefix = defaultPrefix
	if got := Key(" callback:pay:M1 "); got != "mall:callback:pay:M1" {
		t.Fatalf("unexpected key: %s", got)
	}
	if got := Key(""); got != "mall" {
		t.Fatalf("unexpected empty key: %s", got)
	}
	if got := callbackKey("pay:I1_0"); got != "callback:pay:I1_0" {
		t.Fatalf("unexpected callback key: %s", got)
	}
}

func TestRedisAddr(t *testing.T) {
	if got := redisAddr("", 0); got != "127.0.0.1:6379" {
		t.Fatalf("unexpected default addr: %s", got)
	}
	if got := redisAddr(" redis ", 6380); got != "redis:6380" {
		t.Fatalf("unexpected addr: %s", got)
	}
}
