package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/parking-spot-reservation/internal/config"
)

// captureWriter tees the handler's response so the body can be stored in
// Redis after it has been sent to the client.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (w *captureWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *captureWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	return w.ResponseWriter.Write(p)
}

// cacheKeyFrom builds a deterministic cache key from the request. The
// key strategy decides whether the query string and the authenticated
// user take part; per-user strategies keep booking views from leaking
// between accounts.
func cacheKeyFrom(c echo.Context, cfg config.CacheConfig) string {
	parts := []string{c.Request().Method, c.Path()}

	switch cfg.KeyStrategy {
	case "route":
	case "route_user":
		parts = append(parts, currentUserID(c))
	case "route_query_user":
		parts = append(parts, normalizedQuery(c), currentUserID(c))
	default: // route_query
		parts = append(parts, normalizedQuery(c))
	}

	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return cfg.Prefix + ":" + hex.EncodeToString(sum[:])
}

// normalizedQuery sorts query parameters so equivalent URLs share a key.
func normalizedQuery(c echo.Context) string {
	q := c.QueryParams()
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		vals := append([]string(nil), q[k]...)
		sort.Strings(vals)
		for _, v := range vals {
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(v)
			b.WriteByte('&')
		}
	}
	return b.String()
}

// encodePayload packs status, content type and body into one Redis value:
// [2 bytes status][2 bytes content-type length][content-type][body].
func encodePayload(status int, contentType string, body []byte) []byte {
	out := make([]byte, 4+len(contentType)+len(body))
	binary.BigEndian.PutUint16(out[0:2], uint16(status))
	binary.BigEndian.PutUint16(out[2:4], uint16(len(contentType)))
	copy(out[4:], contentType)
	copy(out[4+len(contentType):], body)
	return out
}

func decodePayload(raw []byte) (status int, contentType string, body []byte, ok bool) {
	if len(raw) < 4 {
		return 0, "", nil, false
	}
	status = int(binary.BigEndian.Uint16(raw[0:2]))
	ctLen := int(binary.BigEndian.Uint16(raw[2:4]))
	if len(raw) < 4+ctLen {
		return 0, "", nil, false
	}
	contentType = string(raw[4 : 4+ctLen])
	body = raw[4+ctLen:]
	return status, contentType, body, true
}

// NewRedisCache returns a response cache middleware backed by Redis.
// Only configured methods are cached and only 200 responses are stored.
// A nil client disables the cache entirely so the service keeps working
// when Redis is down.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Enabled || rdb == nil || !cfg.Methods[c.Request().Method] {
				return next(c)
			}

			key := cacheKeyFrom(c, cfg)
			ctx := c.Request().Context()

			if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
				if status, ct, body, ok := decodePayload(raw); ok {
					c.Response().Header().Set("X-Cache", "HIT")
					return c.Blob(status, ct, body)
				}
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}

			if cw.status == http.StatusOK && cw.buf.Len() <= cfg.MaxBodyBytes {
				payload := encodePayload(cw.status, c.Response().Header().Get(echo.HeaderContentType), cw.buf.Bytes())
				storeCtx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
				defer cancel()
				_ = rdb.Set(storeCtx, key, payload, cfg.TTL).Err()
			}
			return nil
		}
	}
}
