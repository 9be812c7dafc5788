package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-spot-reservation/internal/config"
)

func TestEncodeDecodePayload(t *testing.T) {
	raw := encodePayload(200, "application/json", []byte(`{"ok":true}`))
	status, ct, body, ok := decodePayload(raw)
	if !ok {
		t.Fatal("decode failed")
	}
	if status != 200 || ct != "application/json" || string(body) != `{"ok":true}` {
		t.Errorf("round trip mismatch: %d %q %q", status, ct, body)
	}
}

func TestDecodePayloadTruncated(t *testing.T) {
	if _, _, _, ok := decodePayload([]byte{0, 200}); ok {
		t.Error("expected failure on short payload")
	}
	// header claims a longer content type than the buffer holds
	if _, _, _, ok := decodePayload([]byte{0, 200, 0, 50, 'a'}); ok {
		t.Error("expected failure on truncated content type")
	}
}

func newTestContext(method, target string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/lots")
	return c
}

func TestCacheKeyIgnoresQueryOrder(t *testing.T) {
	cfg := config.CacheConfig{KeyStrategy: "route_query", Prefix: "cache"}
	a := cacheKeyFrom(newTestContext(http.MethodGet, "/v1/lots?a=1&b=2"), cfg)
	b := cacheKeyFrom(newTestContext(http.MethodGet, "/v1/lots?b=2&a=1"), cfg)
	if a != b {
		t.Errorf("keys differ for equivalent queries: %q vs %q", a, b)
	}
}

func TestCacheKeyPerUser(t *testing.T) {
	cfg := config.CacheConfig{KeyStrategy: "route_user", Prefix: "cache"}
	c1 := newTestContext(http.MethodGet, "/v1/lots")
	c1.Set("user_id", uint64(1))
	c2 := newTestContext(http.MethodGet, "/v1/lots")
	c2.Set("user_id", uint64(2))
	if cacheKeyFrom(c1, cfg) == cacheKeyFrom(c2, cfg) {
		t.Error("different users share a cache key")
	}
}
