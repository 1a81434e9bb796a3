// Package ratelimit enforces per-user, per-action fixed-window limits on top
// of Redis. The counter is a single INCR per check, so concurrent requests
// from the same user cannot race past the limit the way a read-then-write
// scheme would.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Policy bounds one action type.
type Policy struct {
	MaxCount int
	Window   time.Duration
}

// Action types known to the default policy table.
const (
	ActionGameStart       = "game_start"
	ActionMatchmakingJoin = "matchmaking_join"
	ActionAPICall         = "api_call"
	ActionProfileUpdate   = "profile_update"
)

// DefaultPolicies mirrors the product defaults; deployments override via
// config, not by editing this table.
func DefaultPolicies() map[string]Policy {
	return map[string]Policy{
		ActionGameStart:       {MaxCount: 50, Window: time.Hour},
		ActionMatchmakingJoin: {MaxCount: 100, Window: time.Hour},
		ActionAPICall:         {MaxCount: 1000, Window: time.Hour},
		ActionProfileUpdate:   {MaxCount: 10, Window: time.Hour},
	}
}

type Limiter struct {
	rdb      *redis.Client
	policies map[string]Policy
}

// NewLimiter uses DefaultPolicies when policies is nil.
func NewLimiter(rdb *redis.Client, policies map[string]Policy) *Limiter {
	if policies == nil {
		policies = DefaultPolicies()
	}
	return &Limiter{rdb: rdb, policies: policies}
}

// Allow counts one occurrence of action for userID and reports whether it is
// within policy. The window starts at the first counted action; key expiry
// implements the reset-to-1 rule when a stale window has elapsed. Actions
// without a policy are always allowed.
func (l *Limiter) Allow(ctx context.Context, userID, action string) (bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, fmt.Errorf("rate limit requires a user id")
	}
	policy, ok := l.policies[action]
	if !ok {
		return true, nil
	}

	key := l.key(userID, action)
	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit incr: %w", err)
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, key, policy.Window).Err(); err != nil {
			return false, fmt.Errorf("rate limit expire: %w", err)
		}
	}
	return count <= int64(policy.MaxCount), nil
}

func (l *Limiter) key(userID, action string) string {
	return "rl:" + action + ":" + userID
}
