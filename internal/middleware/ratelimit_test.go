package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-spot-reservation/internal/config"
)

func TestBuildRateKeyStrategies(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/bookings/release", nil)
	req.Header.Set("X-Real-IP", "10.0.0.9")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/bookings/release")
	c.Set("user_id", uint64(7))

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_user_route"}
	key := buildRateKey(c, cfg)
	if !strings.HasPrefix(key, "rl:") {
		t.Errorf("missing prefix: %q", key)
	}
	for _, part := range []string{"10.0.0.9", "7", "/v1/bookings/release"} {
		if !strings.Contains(key, part) {
			t.Errorf("key %q missing %q", key, part)
		}
	}

	cfg.KeyStrategy = "user"
	if got := buildRateKey(c, cfg); got != "rl:7" {
		t.Errorf("user key = %q, want rl:7", got)
	}
}

func TestCurrentUserIDFallsBackToAnon(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if got := currentUserID(c); got != "anon" {
		t.Errorf("got %q, want anon", got)
	}
	c.Set("user_id", float64(12))
	if got := currentUserID(c); got != "12" {
		t.Errorf("got %q, want 12", got)
	}
}

func TestAsInt64(t *testing.T) {
	if n, ok := asInt64(int64(5)); !ok || n != 5 {
		t.Errorf("int64: got %d %v", n, ok)
	}
	if n, ok := asInt64(float64(7)); !ok || n != 7 {
		t.Errorf("float64: got %d %v", n, ok)
	}
	if n, ok := asInt64("9"); !ok || n != 9 {
		t.Errorf("string: got %d %v", n, ok)
	}
	if _, ok := asInt64("x"); ok {
		t.Error("expected failure for non-numeric string")
	}
}
