// Package anticheat records integrity violations and escalates repeat
// offenders to time-boxed bans.
package anticheat

import (
	"context"
	"time"

	"github.com/playforge/tabletop-server/internal/domain"
)

// Violation types reported by the session integrity layer.
const (
	ViolationTiming            = "timing_violation"
	ViolationStateManipulation = "state_manipulation"
)

const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Escalation policy: banThreshold violations inside violationWindow earn a
// banDuration ban.
const (
	violationWindow = 24 * time.Hour
	banThreshold    = 5
	banDuration     = 7 * 24 * time.Hour
	banReason       = "Multiple anti-cheat violations"
)

// severityFor derives severity from the violation type: timing anomalies are
// advisory-grade, direct state manipulation is not.
func severityFor(violationType string) string {
	switch violationType {
	case ViolationTiming:
		return SeverityLow
	case ViolationStateManipulation:
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

// Repository persists violations and bans.
type Repository interface {
	InsertViolation(ctx context.Context, v *domain.Violation) error
	CountViolationsSince(ctx context.Context, userID string, since time.Time) (int, error)
	InsertBan(ctx context.Context, b *domain.Ban) error
	// ActiveBan returns nil without error when no ban applies at now.
	ActiveBan(ctx context.Context, userID string, now time.Time) (*domain.Ban, error)
}
