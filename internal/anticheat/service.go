package anticheat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/playforge/tabletop-server/internal/domain"
	"github.com/playforge/tabletop-server/internal/obslog"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// LogViolation appends one violation row, then applies the escalation policy:
// five or more violations inside the trailing 24 hours earn a 7-day ban.
// Logging succeeds or fails as a unit; escalation failures are reported but
// the violation row stays.
func (s *Service) LogViolation(ctx context.Context, userID, sessionID, violationType, details string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("violation requires a user id")
	}
	now := s.now()

	v := &domain.Violation{
		UserID:    userID,
		SessionID: sessionID,
		Type:      violationType,
		Details:   details,
		Severity:  severityFor(violationType),
		CreatedAt: now,
	}
	if err := s.repo.InsertViolation(ctx, v); err != nil {
		return fmt.Errorf("insert violation: %w", err)
	}
	obslog.L().Warn("violation_logged",
		zap.String("user_id", userID),
		zap.String("session_id", sessionID),
		zap.String("violation_type", violationType),
		zap.String("severity", v.Severity),
	)

	count, err := s.repo.CountViolationsSince(ctx, userID, now.Add(-violationWindow))
	if err != nil {
		return fmt.Errorf("count violations: %w", err)
	}
	if count < banThreshold {
		return nil
	}

	ban := &domain.Ban{
		UserID:      userID,
		Reason:      banReason,
		BannedUntil: now.Add(banDuration),
		CreatedAt:   now,
	}
	if err := s.repo.InsertBan(ctx, ban); err != nil {
		return fmt.Errorf("insert ban: %w", err)
	}
	obslog.L().Warn("user_banned",
		zap.String("user_id", userID),
		zap.Int("violation_count", count),
		zap.Time("banned_until", ban.BannedUntil),
	)
	return nil
}

// IsUserBanned reports whether a permanent ban or an unexpired timed ban
// exists for the user.
func (s *Service) IsUserBanned(ctx context.Context, userID string) (bool, error) {
	ban, err := s.repo.ActiveBan(ctx, strings.TrimSpace(userID), s.now())
	if err != nil {
		return false, fmt.Errorf("lookup ban: %w", err)
	}
	return ban != nil, nil
}

// Ban inserts an explicit ban outside the automatic escalation path
// (moderation tooling).
func (s *Service) Ban(ctx context.Context, userID, reason string, until time.Time, permanent bool) error {
	b := &domain.Ban{
		UserID:      strings.TrimSpace(userID),
		Reason:      strings.TrimSpace(reason),
		BannedUntil: until,
		IsPermanent: permanent,
		CreatedAt:   s.now(),
	}
	if b.UserID == "" {
		return fmt.Errorf("ban requires a user id")
	}
	if err := s.repo.InsertBan(ctx, b); err != nil {
		return fmt.Errorf("insert ban: %w", err)
	}
	return nil
}

// WithClock overrides the time source; tests use this to walk ban windows.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}
