package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/office-booking/internal/config"
)

// windowCounter increments the hit counter of key inside a fixed window and
// returns the new count and the time left in the window.
type windowCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
}

// The window starts at the first hit and the counter expires with it.
var fixedWindowScript = redis.NewScript(`
	local current = redis.call('INCR', KEYS[1])
	if current == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	local ttl = redis.call('PTTL', KEYS[1])
	if ttl < 0 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
		ttl = tonumber(ARGV[1])
	end
	return { current, ttl }
`)

type redisCounter struct {
	rdb *redis.Client
}

func (r redisCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	vals, err := fixedWindowScript.Run(ctx, r.rdb, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(vals) != 2 {
		return 0, 0, redis.Nil
	}
	return vals[0], time.Duration(vals[1]) * time.Millisecond, nil
}

// NewFixedWindow limits each client to tier.Limit requests per tier.Window.
// Without Redis, or when disabled, it passes every request through.  Redis
// errors fail open.
func NewFixedWindow(cfg config.RateLimitConfig, tier config.RateLimitTier, rdb *redis.Client, log *logrus.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return fixedWindow(cfg, tier, redisCounter{rdb: rdb}, log)
}

func fixedWindow(cfg config.RateLimitConfig, tier config.RateLimitTier, counter windowCounter, log *logrus.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method == http.MethodOptions || c.Path() == "/" {
				return next(c)
			}
			key := buildRateKey(cfg, tier, c)
			count, ttl, err := counter.Hit(c.Request().Context(), key, tier.Window)
			if err != nil {
				if cfg.Debug {
					log.WithError(err).WithField("key", key).Warn("ratelimit: counter unavailable")
				}
				return next(c)
			}

			allowed, remaining, reset := windowDecision(count, ttl, tier.Limit)
			h := c.Response().Header()
			h.Set("RateLimit-Limit", strconv.Itoa(tier.Limit))
			h.Set("RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("RateLimit-Reset", strconv.Itoa(reset))
			if !allowed {
				h.Set("Retry-After", strconv.Itoa(reset))
				if cfg.Debug {
					log.WithFields(logrus.Fields{"key": key, "count": count}).Info("ratelimit: blocked")
				}
				return c.JSON(http.StatusTooManyRequests, echo.Map{"error": tier.Message})
			}
			return next(c)
		}
	}
}

// windowDecision turns a counter reading into the response: whether the
// request passes, how many remain and the seconds until the window resets.
func windowDecision(count int64, ttl time.Duration, limit int) (allowed bool, remaining, resetSecs int) {
	remaining = limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	resetSecs = int((ttl + time.Second - 1) / time.Second)
	if resetSecs < 0 {
		resetSecs = 0
	}
	return count <= int64(limit), remaining, resetSecs
}

func buildRateKey(cfg config.RateLimitConfig, tier config.RateLimitTier, c echo.Context) string {
	parts := []string{cfg.Prefix, tier.Name}
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	uid := userKey(c)
	route := c.Request().Method + " " + c.Path()

	switch strings.ToLower(cfg.KeyStrategy) {
	case "user":
		parts = append(parts, "user", uid)
	case "ip_user":
		parts = append(parts, "ip", ip, "user", uid)
	case "ip_route":
		parts = append(parts, "ip", ip, "route", route)
	case "ip_user_route":
		parts = append(parts, "ip", ip, "user", uid, "route", route)
	default: // "ip"
		parts = append(parts, "ip", ip)
	}
	return strings.Join(parts, ":")
}
