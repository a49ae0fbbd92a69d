package config

import (
	"os"
	"strconv"
	"time"
)

// RateLimitTier is one fixed-window quota: at most Limit requests per
// Window for a single client key.
type RateLimitTier struct {
	Name    string
	Limit   int
	Window  time.Duration
	Message string
}

type RateLimitConfig struct {
	Enabled     bool
	KeyStrategy string
	Prefix      string
	Debug       bool

	General RateLimitTier // every /api route
	Strict  RateLimitTier // state-changing admin routes
	Auth    RateLimitTier // login and register
}

func LoadRateLimitConfig() RateLimitConfig {
	def := RateLimitConfig{
		Enabled:     envBool("RATE_LIMIT_ENABLED", true),
		KeyStrategy: envStr("RATE_LIMIT_KEY_STRATEGY", "ip"),
		Prefix:      envStr("RATE_LIMIT_PREFIX", "rl"),
		Debug:       envBool("RATE_LIMIT_DEBUG", false),
		General: RateLimitTier{
			Name:    "general",
			Limit:   envInt("RATE_LIMIT_GENERAL_MAX", 100),
			Window:  envDur("RATE_LIMIT_GENERAL_WINDOW", 15*time.Minute),
			Message: "Too many requests from this IP, please try again after 15 minutes",
		},
		Strict: RateLimitTier{
			Name:    "strict",
			Limit:   envInt("RATE_LIMIT_STRICT_MAX", 20),
			Window:  envDur("RATE_LIMIT_STRICT_WINDOW", 15*time.Minute),
			Message: "Too many requests for this operation, please try again later",
		},
		Auth: RateLimitTier{
			Name:    "auth",
			Limit:   envInt("RATE_LIMIT_AUTH_MAX", 5),
			Window:  envDur("RATE_LIMIT_AUTH_WINDOW", 15*time.Minute),
			Message: "Too many authentication attempts, please try again after 15 minutes",
		},
	}
	for _, t := range []*RateLimitTier{&def.General, &def.Strict, &def.Auth} {
		if t.Limit < 1 {
			t.Limit = 1
		}
		if t.Window <= 0 {
			t.Window = time.Minute
		}
	}
	return def
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
