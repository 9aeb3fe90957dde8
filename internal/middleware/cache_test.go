package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/Tcborder/ethernal-tickets/internal/config"
)

func TestCacheWriterSkipsOversizedBodies(t *testing.T) {
	rec := httptest.NewRecorder()
	w := &cacheWriter{ResponseWriter: rec, status: http.StatusOK, limit: 8}

	if _, err := w.Write([]byte("12345")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if w.oversized {
		t.Fatal("writer marked oversized below the limit")
	}
	if got := w.body.String(); got != "12345" {
		t.Fatalf("buffered body = %q, want %q", got, "12345")
	}

	if _, err := w.Write([]byte("67890")); err != nil {
		t.Fatalf("second write: %v", err)
	}
	if !w.oversized {
		t.Fatal("writer not marked oversized past the limit")
	}
	if w.body.Len() != 0 {
		t.Fatalf("oversized buffer holds %d bytes, want 0", w.body.Len())
	}
	// The client still gets the full body either way.
	if got := rec.Body.String(); got != "1234567890" {
		t.Fatalf("client body = %q, want %q", got, "1234567890")
	}
}

func TestCacheKeyDistinguishesRequests(t *testing.T) {
	e := echo.New()
	key := func(method, path, query string) string {
		req := httptest.NewRequest(method, path+"?"+query, nil)
		c := e.NewContext(req, httptest.NewRecorder())
		c.SetPath(path)
		return cacheKey("cache", c)
	}

	base := key(http.MethodGet, "/api/tickets/sold", "")
	if again := key(http.MethodGet, "/api/tickets/sold", ""); again != base {
		t.Fatalf("identical requests hash differently: %q vs %q", base, again)
	}
	if other := key(http.MethodGet, "/api/tickets/sold/gala", ""); other == base {
		t.Fatal("different routes share a cache key")
	}
	if other := key(http.MethodGet, "/api/tickets/sold", "page=2"); other == base {
		t.Fatal("different queries share a cache key")
	}
	if other := key(http.MethodHead, "/api/tickets/sold", ""); other == base {
		t.Fatal("different methods share a cache key")
	}
}

func TestCacheDisabledIsPassthrough(t *testing.T) {
	mw := NewRedisCache(config.CacheConfig{Enabled: true}, nil)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/tickets/sold", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	err := mw(func(c echo.Context) error {
		called = true
		return c.String(http.StatusOK, "ok")
	})(c)
	if err != nil {
		t.Fatalf("passthrough handler: %v", err)
	}
	if !called {
		t.Fatal("handler not invoked without a Redis client")
	}
	if rec.Header().Get("X-Cache") != "" {
		t.Fatalf("unexpected X-Cache header %q", rec.Header().Get("X-Cache"))
	}
}
