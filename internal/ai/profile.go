// Package ai selects moves for the single-player opponents. Strength is
// shaped by a difficulty profile: a deliberate thinking delay plus a chance
// of discarding the evaluated best move for a random legal one.
package ai

import (
	"fmt"
	"strings"
	"time"
)

// Profile parameterizes one AI-backed session. Immutable once chosen.
type Profile struct {
	Level        string
	ThinkingTime time.Duration
	// ErrorRate is the probability in [0,1] that the AI plays a uniformly
	// random legal move instead of its evaluated best.
	ErrorRate float64
	// LookAheadDepth is carried for forward compatibility with a multi-ply
	// search; the current evaluation is one ply deep and does not read it.
	LookAheadDepth int
}

var profiles = map[string]Profile{
	"easy":   {Level: "easy", ThinkingTime: 500 * time.Millisecond, ErrorRate: 0.4, LookAheadDepth: 1},
	"medium": {Level: "medium", ThinkingTime: 1000 * time.Millisecond, ErrorRate: 0.2, LookAheadDepth: 2},
	"hard":   {Level: "hard", ThinkingTime: 1500 * time.Millisecond, ErrorRate: 0.05, LookAheadDepth: 3},
	"expert": {Level: "expert", ThinkingTime: 2000 * time.Millisecond, ErrorRate: 0.01, LookAheadDepth: 4},
}

const DefaultLevel = "medium"

// ProfileFor resolves a difficulty level name, case-insensitively.
func ProfileFor(level string) (Profile, error) {
	key := strings.ToLower(strings.TrimSpace(level))
	if key == "" {
		key = DefaultLevel
	}
	p, ok := profiles[key]
	if !ok {
		return Profile{}, fmt.Errorf("unknown difficulty level %q", level)
	}
	return p, nil
}

// Levels lists the known difficulty level names in ascending strength.
func Levels() []string {
	return []string{"easy", "medium", "hard", "expert"}
}

func ValidateProfile(p Profile) error {
	if p.ThinkingTime < 0 {
		return fmt.Errorf("profile %s: thinking time must not be negative", p.Level)
	}
	if p.ErrorRate < 0 || p.ErrorRate > 1 {
		return fmt.Errorf("profile %s: error rate must be within [0,1]", p.Level)
	}
	if p.LookAheadDepth < 1 {
		return fmt.Errorf("profile %s: look-ahead depth must be at least 1", p.Level)
	}
	return nil
}
