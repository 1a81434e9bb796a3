package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, policies map[string]Policy) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewLimiter(rdb, policies), mr
}

func TestAllowUpToLimitThenBlock(t *testing.T) {
	l, _ := newTestLimiter(t, map[string]Policy{"game_start": {MaxCount: 3, Window: time.Minute}})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "u1", "game_start")
		if err != nil {
			t.Fatalf("Allow #%d: %v", i+1, err)
		}
		if !ok {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	ok, err := l.Allow(ctx, "u1", "game_start")
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if ok {
		t.Fatalf("fourth attempt should be blocked")
	}
}

func TestWindowExpiryResetsCounter(t *testing.T) {
	l, mr := newTestLimiter(t, map[string]Policy{"game_start": {MaxCount: 1, Window: time.Minute}})
	ctx := context.Background()

	if ok, _ := l.Allow(ctx, "u1", "game_start"); !ok {
		t.Fatalf("first attempt should be allowed")
	}
	if ok, _ := l.Allow(ctx, "u1", "game_start"); ok {
		t.Fatalf("second attempt within window should be blocked")
	}

	mr.FastForward(2 * time.Minute)

	if ok, err := l.Allow(ctx, "u1", "game_start"); err != nil || !ok {
		t.Fatalf("attempt after window expiry should be allowed: ok=%v err=%v", ok, err)
	}
}

func TestUsersAndActionsAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(t, map[string]Policy{
		"game_start":     {MaxCount: 1, Window: time.Minute},
		"profile_update": {MaxCount: 1, Window: time.Minute},
	})
	ctx := context.Background()

	if ok, _ := l.Allow(ctx, "u1", "game_start"); !ok {
		t.Fatalf("u1 game_start should be allowed")
	}
	if ok, _ := l.Allow(ctx, "u2", "game_start"); !ok {
		t.Fatalf("u2 game_start should be allowed")
	}
	if ok, _ := l.Allow(ctx, "u1", "profile_update"); !ok {
		t.Fatalf("u1 profile_update should be allowed")
	}
}

func TestUnknownActionAlwaysAllowed(t *testing.T) {
	l, _ := newTestLimiter(t, DefaultPolicies())
	for i := 0; i < 10; i++ {
		ok, err := l.Allow(context.Background(), "u1", "unlisted_action")
		if err != nil || !ok {
			t.Fatalf("unlisted action should pass: ok=%v err=%v", ok, err)
		}
	}
}
