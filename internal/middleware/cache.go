package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/Tcborder/ethernal-tickets/internal/config"
)

// cachedResponse is the envelope stored in Redis for one cacheable
// response. encoding/json base64-codes the body.
type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// cacheWriter tees the response body into a buffer while forwarding it
// to the client. A response that grows past limit is marked oversized
// and its buffer dropped: a truncated body must never be served from
// cache.
type cacheWriter struct {
	http.ResponseWriter
	status    int
	body      bytes.Buffer
	limit     int
	oversized bool
}

func (w *cacheWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *cacheWriter) Write(b []byte) (int, error) {
	if !w.oversized {
		if w.limit > 0 && w.body.Len()+len(b) > w.limit {
			w.oversized = true
			w.body.Reset()
		} else {
			w.body.Write(b)
		}
	}
	return w.ResponseWriter.Write(b)
}

// cacheKey hashes method, route and query into a fixed-size key under
// the configured prefix.
func cacheKey(prefix string, c echo.Context) string {
	r := c.Request()
	sum := sha1.Sum([]byte(r.Method + " " + c.Path() + "?" + r.URL.RawQuery))
	return fmt.Sprintf("%s:%x", prefix, sum)
}

// NewRedisCache caches successful responses of the configured methods.
// The sold-seat listings are the intended consumers: the seat map
// polls them on every pan and tolerates a few seconds of staleness, so
// a short TTL takes the read load off MySQL without weakening the
// purchase path, which never goes through this middleware.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return func(c echo.Context) error { return next(c) } }
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[c.Request().Method] {
				return next(c)
			}
			key := cacheKey(cfg.Prefix, c)

			if raw, err := rdb.Get(c.Request().Context(), key).Bytes(); err == nil {
				var hit cachedResponse
				if json.Unmarshal(raw, &hit) == nil && hit.Status != 0 {
					if hit.ContentType != "" {
						c.Response().Header().Set(echo.HeaderContentType, hit.ContentType)
					}
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(hit.Status)
					_, werr := c.Response().Write(hit.Body)
					return werr
				}
			}

			w := &cacheWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = w
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}

			if w.status == http.StatusOK && !w.oversized {
				payload, err := json.Marshal(cachedResponse{
					Status:      w.status,
					ContentType: c.Response().Header().Get(echo.HeaderContentType),
					Body:        w.body.Bytes(),
				})
				if err == nil {
					// The response is already on the wire; a cancelled
					// request must not lose the entry.
					_ = rdb.SetEx(context.Background(), key, payload, ttl).Err()
				}
			}
			return nil
		}
	}
}
