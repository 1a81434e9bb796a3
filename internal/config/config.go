package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

type AppConfig struct {
	ListenAddr string

	RedisURL    string
	DatabaseURL string

	AntiCheatSecret string

	DefaultDifficulty string
	SessionTTLSec     int

	RateGameStartPerHour   int
	RateMatchJoinPerHour   int
	RateAPICallPerHour     int
	RateProfileEditPerHour int
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:        ":8080",
		DefaultDifficulty: "medium",
		SessionTTLSec:     86400,

		RateGameStartPerHour:   50,
		RateMatchJoinPerHour:   100,
		RateAPICallPerHour:     1000,
		RateProfileEditPerHour: 10,
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.AntiCheatSecret = strings.TrimSpace(os.Getenv("ANTI_CHEAT_SECRET"))

	if v := strings.TrimSpace(os.Getenv("DEFAULT_DIFFICULTY")); v != "" {
		cfg.DefaultDifficulty = v
	}
	if v := strings.TrimSpace(os.Getenv("SESSION_TTL")); v != "" { // seconds
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SessionTTLSec = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("RATE_GAME_START_PER_HOUR")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateGameStartPerHour = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("RATE_MATCH_JOIN_PER_HOUR")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateMatchJoinPerHour = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("RATE_API_CALL_PER_HOUR")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateAPICallPerHour = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("RATE_PROFILE_EDIT_PER_HOUR")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateProfileEditPerHour = n
		}
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.AntiCheatSecret == "" {
		return nil, errors.New("ANTI_CHEAT_SECRET is required")
	}

	return cfg, nil
}
