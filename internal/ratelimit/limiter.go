// Package ratelimit implements the per-user, per-UTC-day message limiter with
// "first notice then silent" semantics, keyed on the shared KV store.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/ira-chat/ira/internal/kv"
	"github.com/ira-chat/ira/internal/model"
)

// DefaultNamespace prefixes all limiter keys.
const DefaultNamespace = "ira"

// Daily message limits per tier. Enterprise is unlimited.
const (
	FreeDailyLimit    = 10
	PremiumDailyLimit = 100
)

// Result is the outcome of one CheckAndIncrement call.
// Remaining is nil for unlimited tiers.
type Result struct {
	Allowed        bool
	Remaining      *int
	ResetInSeconds int
	FirstNotice    bool
}

// Limiter counts messages per (user, UTC day) and records whether the single
// daily over-limit notice has already been delivered.
type Limiter struct {
	store kv.Store
	ns    string
	now   func() time.Time
}

// Config configures a Limiter.
type Config struct {
	Store     kv.Store
	Namespace string           // defaults to DefaultNamespace
	Now       func() time.Time // injectable clock, defaults to time.Now
}

// NewLimiter creates a Limiter on the given store.
func NewLimiter(cfg Config) *Limiter {
	ns := cfg.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Limiter{store: cfg.Store, ns: ns, now: now}
}

// limitForTier returns the daily limit and whether the tier is limited at all.
func limitForTier(tier model.Tier) (int, bool) {
	switch tier {
	case model.TierEnterprise:
		return 0, false
	case model.TierPremium:
		return PremiumDailyLimit, true
	default:
		return FreeDailyLimit, true
	}
}

func (l *Limiter) countKey(userID, day string) string {
	return fmt.Sprintf("%s:rl:count:%s:%s", l.ns, day, userID)
}

func (l *Limiter) noticeKey(userID, day string) string {
	return fmt.Sprintf("%s:rl:notice:%s:%s", l.ns, day, userID)
}

// CheckAndIncrement records one message for the user and decides whether it
// may proceed. The day counter is incremented even when the user is already
// over limit, so repeat offenders stay classified for the full day.
func (l *Limiter) CheckAndIncrement(ctx context.Context, userID string, tier model.Tier) (Result, error) {
	now := l.now().UTC()
	reset := secondsUntilUTCMidnight(now)

	limit, limited := limitForTier(tier)
	if !limited {
		return Result{Allowed: true, ResetInSeconds: reset}, nil
	}

	day := utcDayKey(now)
	countKey := l.countKey(userID, day)

	count, ttl, err := l.store.IncrWithTTL(ctx, countKey)
	if err != nil {
		return Result{}, err
	}

	// First increment of the day: bind the counter's lifetime to UTC midnight.
	if ttl < 0 {
		if err := l.store.Expire(ctx, countKey, time.Duration(reset)*time.Second); err != nil {
			return Result{}, err
		}
	}

	if count <= int64(limit) {
		remaining := limit - int(count)
		if remaining < 0 {
			remaining = 0
		}
		return Result{Allowed: true, Remaining: &remaining, ResetInSeconds: reset}, nil
	}

	// Over limit: the notice key decides who delivers the one friendly
	// message of the day. SET NX makes the race between concurrent
	// over-limit messages pick exactly one winner.
	firstNotice, err := l.store.SetNX(ctx, l.noticeKey(userID, day), "1", time.Duration(reset)*time.Second)
	if err != nil {
		return Result{}, err
	}

	zero := 0
	return Result{
		Allowed:        false,
		Remaining:      &zero,
		ResetInSeconds: reset,
		FirstNotice:    firstNotice,
	}, nil
}

// utcDayKey formats the UTC calendar day as YYYY-MM-DD.
func utcDayKey(now time.Time) string {
	return now.UTC().Format("2006-01-02")
}

// secondsUntilUTCMidnight returns the seconds to the next UTC midnight, >= 1.
func secondsUntilUTCMidnight(now time.Time) int {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	s := int(midnight.Sub(now).Seconds())
	if s < 1 {
		s = 1
	}
	return s
}
