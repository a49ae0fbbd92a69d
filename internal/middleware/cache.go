package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/office-booking/internal/config"
)

// Cache groups.  A write to one of these resources drops every cached
// response of its group.
const (
	CacheGroupFloors  = "floors"
	CacheGroupSpaces  = "spaces"
	CacheGroupCatalog = "catalog"
)

// bodyRecorder tees the response body into buf until it grows past limit.
// Once over the limit the response still reaches the client but is marked
// as not storable.
type bodyRecorder struct {
	http.ResponseWriter
	status   int
	buf      bytes.Buffer
	limit    int64
	overflow bool
}

func (br *bodyRecorder) WriteHeader(code int) {
	br.status = code
	br.ResponseWriter.WriteHeader(code)
}

func (br *bodyRecorder) Write(b []byte) (int, error) {
	if !br.overflow {
		if br.limit > 0 && int64(br.buf.Len()+len(b)) > br.limit {
			br.overflow = true
			br.buf.Reset()
		} else {
			br.buf.Write(b)
		}
	}
	return br.ResponseWriter.Write(b)
}

func (br *bodyRecorder) storable() bool {
	return br.status == http.StatusOK && !br.overflow
}

func groupPrefix(cfg config.CacheConfig, group string) string {
	return cfg.Prefix + ":" + group + ":"
}

// cacheKeyFrom builds a stable key under the group's prefix.
func cacheKeyFrom(cfg config.CacheConfig, group string, c echo.Context) string {
	r := c.Request()
	var parts []string
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route":
		parts = []string{"route", c.Path()}
	case "method_route_query":
		parts = []string{"method", r.Method, "route", c.Path(), "q", r.URL.RawQuery}
	default: // "route_query"
		parts = []string{"route", c.Path(), "q", r.URL.RawQuery}
	}
	// Path params are part of the request identity (e.g. /floors/:id/stats).
	for _, name := range c.ParamNames() {
		parts = append(parts, "p", name, c.Param(name))
	}
	sum := sha1.Sum([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("%s%x", groupPrefix(cfg, group), sum[:])
}

// cachedResponse is what gets stored in Redis for one listing.
type cachedResponse struct {
	Status int         `json:"status"`
	Header http.Header `json:"header,omitempty"`
	Body   []byte      `json:"body"`
}

func loadCached(ctx context.Context, rdb *redis.Client, key string) (*cachedResponse, bool) {
	bs, err := rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var cr cachedResponse
	if err := json.Unmarshal(bs, &cr); err != nil || cr.Status == 0 {
		return nil, false
	}
	return &cr, true
}

// replay writes a stored response, minus Content-Length which echo sets.
func (cr *cachedResponse) replay(c echo.Context) {
	h := c.Response().Header()
	for k, vals := range cr.Header {
		if http.CanonicalHeaderKey(k) == echo.HeaderContentLength {
			continue
		}
		for _, v := range vals {
			h.Add(k, v)
		}
	}
	h.Set("X-Cache", "HIT")
	c.Response().WriteHeader(cr.Status)
	_, _ = c.Response().Write(cr.Body)
}

// NewRedisCache caches 200 responses of the wrapped routes under group.
// Bodies larger than MaxBodyBytes are served but not stored.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, group string) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}
			key := cacheKeyFrom(cfg, group, c)
			if cr, ok := loadCached(c.Request().Context(), rdb, key); ok {
				cr.replay(c)
				return nil
			}

			rec := &bodyRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: int64(cfg.MaxBodyBytes)}
			c.Response().Writer = rec
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil || !rec.storable() {
				return err
			}

			hdr := c.Response().Header().Clone()
			hdr.Del("X-Cache")
			bs, err := json.Marshal(cachedResponse{Status: rec.status, Header: hdr, Body: rec.buf.Bytes()})
			if err != nil {
				return nil
			}
			_ = rdb.SetEx(context.Background(), key, bs, ttl).Err()
			return nil
		}
	}
}

// InvalidateOnSuccess drops the cached responses of groups after the wrapped
// handler completes with a 2xx status.
func InvalidateOnSuccess(cfg config.CacheConfig, rdb *redis.Client, log *logrus.Logger, groups ...string) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err != nil || c.Response().Status >= 300 {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			for _, g := range groups {
				if perr := PurgeGroup(ctx, rdb, cfg, g); perr != nil {
					log.WithError(perr).WithField("group", g).Warn("cache: purge failed")
				}
			}
			return nil
		}
	}
}

// PurgeGroup deletes every cached response of group.
func PurgeGroup(ctx context.Context, rdb *redis.Client, cfg config.CacheConfig, group string) error {
	iter := rdb.Scan(ctx, 0, groupPrefix(cfg, group)+"*", 200).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 200 {
			if err := rdb.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return rdb.Del(ctx, batch...).Err()
	}
	return nil
}
