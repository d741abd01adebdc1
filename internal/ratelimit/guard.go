package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	// UnknownIP is the sentinel used when the transport layer cannot supply
	// a sender address. Tolerated, not an error: those requests share one
	// counting bucket per recipient.
	UnknownIP = "unknown"

	dayWindow  = 24 * time.Hour
	hourWindow = time.Hour
)

// Guard performs admission control for anonymous message submission.
// Counting windows are fixed, keyed by the record's first attempt; both the
// hourly and daily caps count attempts, allowed or not.
type Guard struct {
	repo  Repository
	cache *policyCache
}

// NewGuard creates a new guard with the given policy cache TTL.
func NewGuard(repo Repository, cacheTTL time.Duration) *Guard {
	return &Guard{
		repo:  repo,
		cache: newPolicyCache(cacheTTL),
	}
}

// CheckAndRecord decides whether the sender may message the recipient and
// persists the attempt either way. A failed record write is logged and the
// request allowed: this is an anti-abuse heuristic, not a security boundary.
func (g *Guard) CheckAndRecord(ctx context.Context, ip, recipientUserID string) Decision {
	if ip == "" {
		ip = UnknownIP
	}

	policy := g.currentPolicy(ctx)
	now := time.Now()

	record, err := g.repo.GetRecord(ctx, ip, recipientUserID)
	switch {
	case errors.Is(err, ErrRecordNotFound):
		record = &Record{
			IPAddress:       ip,
			RecipientUserID: recipientUserID,
			FirstAttemptAt:  now,
		}
	case err != nil:
		slog.Error("failed to load rate limit record, allowing", "error", err)
		recordDecision("error_open")
		return Decision{Allowed: true}
	}

	decision := g.evaluate(record, policy, now)

	if err := g.repo.UpsertRecord(ctx, record); err != nil {
		slog.Error("failed to persist rate limit record", "error", err)
		if decision.Allowed {
			recordDecision("error_open")
			return decision
		}
	}

	if decision.Allowed {
		recordDecision("allowed")
	} else if record.IsBlocked {
		recordDecision("blocked")
	} else {
		recordDecision("limited")
	}

	return decision
}

// evaluate mutates record with the new attempt and returns the decision.
func (g *Guard) evaluate(record *Record, policy Policy, now time.Time) Decision {
	// Active block: deny until the block window since the last attempt has
	// passed. The attempt still counts.
	if record.IsBlocked {
		blockedUntil := record.LastAttemptAt.Add(policy.BlockDuration())
		if now.Before(blockedUntil) {
			record.AttemptCount++
			record.LastAttemptAt = now
			return Decision{Allowed: false, RetryAfter: blockedUntil}
		}
		// Block expired: fresh window.
		g.reset(record, now)
		return Decision{Allowed: true}
	}

	// Day window expired: fresh window.
	if now.Sub(record.FirstAttemptAt) > dayWindow {
		g.reset(record, now)
		return Decision{Allowed: true}
	}

	record.AttemptCount++
	record.LastAttemptAt = now

	withinHour := now.Sub(record.FirstAttemptAt) <= hourWindow
	overHourly := withinHour && record.AttemptCount > policy.MaxMessagesPerHour
	overDaily := record.AttemptCount > policy.MaxMessagesPerDay

	if overHourly || overDaily {
		record.IsBlocked = true
		return Decision{
			Allowed:    false,
			RetryAfter: now.Add(policy.BlockDuration()),
		}
	}

	return Decision{Allowed: true}
}

func (g *Guard) reset(record *Record, now time.Time) {
	record.AttemptCount = 1
	record.FirstAttemptAt = now
	record.LastAttemptAt = now
	record.IsBlocked = false
}

// currentPolicy returns the policy from cache, store, last-known snapshot or
// hardcoded defaults, in that order. Policy reads always fail open.
func (g *Guard) currentPolicy(ctx context.Context) Policy {
	if cached, fresh := g.cache.get(); fresh {
		return *cached
	}

	policy, err := g.repo.GetCurrentPolicy(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoPolicy) {
			slog.Warn("failed to fetch rate limit policy, using fallback", "error", err)
		}
		if stale, _ := g.cache.get(); stale != nil {
			return *stale
		}
		return DefaultPolicy()
	}

	g.cache.set(policy)
	return *policy
}

// SavePolicy validates and appends a new policy version, then invalidates
// the cache before returning so the next check observes the new thresholds.
func (g *Guard) SavePolicy(ctx context.Context, policy *Policy) error {
	if policy.MaxMessagesPerHour <= 0 || policy.MaxMessagesPerDay <= 0 || policy.BlockDurationHours <= 0 {
		return fmt.Errorf("policy thresholds must be positive")
	}

	if err := g.repo.InsertPolicy(ctx, policy); err != nil {
		return fmt.Errorf("insert policy: %w", err)
	}

	g.InvalidateConfigCache()

	slog.Info("rate limit policy updated",
		"max_per_hour", policy.MaxMessagesPerHour,
		"max_per_day", policy.MaxMessagesPerDay,
		"block_hours", policy.BlockDurationHours,
	)
	return nil
}

// CurrentPolicy exposes the effective policy for the admin GET endpoint.
func (g *Guard) CurrentPolicy(ctx context.Context) Policy {
	return g.currentPolicy(ctx)
}

// InvalidateConfigCache drops the cached policy snapshot's freshness.
func (g *Guard) InvalidateConfigCache() {
	g.cache.invalidate()
}
