package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/health-tracker/internal/config"
	"github.com/iliyamo/health-tracker/internal/utils"
)

const secret = "test-secret"

func serveWith(t *testing.T, mw echo.MiddlewareFunc, authz string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/form", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	h := mw(func(c echo.Context) error {
		uid, _ := CurrentUserID(c)
		return c.String(http.StatusOK, uid)
	})
	require.NoError(t, h(c))
	return rec, c
}

func TestJWTAuth(t *testing.T) {
	good, err := utils.NewAccessToken(secret, "user-1", "a@b.co", time.Minute)
	require.NoError(t, err)
	expired, err := utils.NewAccessToken(secret, "user-1", "", -time.Minute)
	require.NoError(t, err)
	forged, err := utils.NewAccessToken("other", "user-1", "", time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		authz  string
		status int
		body   string
	}{
		{"valid", "Bearer " + good.Token, http.StatusOK, "user-1"},
		{"missing header", "", http.StatusUnauthorized, `{"message":"missing bearer token"}`},
		{"wrong scheme", "Basic " + good.Token, http.StatusUnauthorized, `{"message":"missing bearer token"}`},
		{"expired", "Bearer " + expired.Token, http.StatusUnauthorized, `{"message":"invalid token"}`},
		{"forged", "Bearer " + forged.Token, http.StatusUnauthorized, `{"message":"invalid token"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, c := serveWith(t, JWTAuth(secret), tc.authz)
			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, tc.body, rec.Body.String())
				assert.Equal(t, "a@b.co", c.Get(EmailKey))
				return
			}
			assert.JSONEq(t, tc.body, rec.Body.String())
		})
	}
}

func TestCurrentUserID(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	_, ok := CurrentUserID(c)
	assert.False(t, ok)
	assert.Equal(t, "anon", userID(c))

	c.Set(UserIDKey, 42)
	_, ok = CurrentUserID(c)
	assert.False(t, ok)

	c.Set(UserIDKey, "u1")
	id, ok := CurrentUserID(c)
	assert.True(t, ok)
	assert.Equal(t, "u1", id)
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/form", nil)
	req.Header.Set("X-Real-Ip", "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/form")
	c.Set(UserIDKey, "u1")

	assert.Equal(t, "rl:ip:10.0.0.1:user:u1:route:POST /form", buildRateKey(config.RateLimitConfig{Prefix: "rl"}, c))
	assert.Equal(t, "rl:user:u1", buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}, c))
	assert.Equal(t, "rl:ip:10.0.0.1", buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "IP"}, c))
}

func TestParseBucketResult(t *testing.T) {
	res, ok := parseBucketResult([]any{int64(1), int64(59), int64(0)})
	require.True(t, ok)
	assert.True(t, res.allowed)
	assert.Equal(t, int64(59), res.remaining)

	res, ok = parseBucketResult([]any{int64(0), "0", int64(750)})
	require.True(t, ok)
	assert.False(t, res.allowed)
	assert.Equal(t, int64(750), res.retryMs)

	_, ok = parseBucketResult("OK")
	assert.False(t, ok)
}

func TestMiddlewares_PassThroughWithoutRedis(t *testing.T) {
	rl := NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, nil)
	rec, _ := serveWith(t, rl, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))

	cache := NewRedisCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil, nil)
	rec, _ = serveWith(t, cache, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestCacheKey_ScopedByUserAndGeneration(t *testing.T) {
	e := echo.New()
	cfg := config.CacheConfig{Prefix: "cache"}
	mk := func(id string) echo.Context {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/form/"+id, nil), httptest.NewRecorder())
		c.SetPath("/form/:recordId")
		c.SetParamNames("recordId")
		c.SetParamValues(id)
		return c
	}
	a := cacheKeyFrom(cfg, mk("r1"), "u1", 0)
	assert.Equal(t, a, cacheKeyFrom(cfg, mk("r1"), "u1", 0))
	assert.NotEqual(t, a, cacheKeyFrom(cfg, mk("r2"), "u1", 0))
	assert.NotEqual(t, a, cacheKeyFrom(cfg, mk("r1"), "u2", 0))
	assert.NotEqual(t, a, cacheKeyFrom(cfg, mk("r1"), "u1", 1))
	assert.Contains(t, a, "cache:user:u1:0:")
	assert.Equal(t, "cache:gen:u1", generationKey(cfg, "u1"))
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`[]`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, hdr, got)
	assert.Equal(t, `[]`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 1})
	assert.False(t, ok)
	_, _, _, ok = decodePayload([]byte{0, 0, 0, 200, 0, 0, 1, 0})
	assert.False(t, ok)
}

func TestCaptureWriter_Limit(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}
	_, err := cw.Write([]byte("abc"))
	require.NoError(t, err)
	_, err = cw.Write([]byte("def"))
	require.NoError(t, err)
	assert.Equal(t, "abcd", cw.buf.String())
	assert.Equal(t, "abcdef", rec.Body.String())
	assert.True(t, cw.truncated())
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	e := echo.New()
	e.Use(RequestLogger(log))
	e.GET("/form", func(c echo.Context) error {
		c.Set(UserIDKey, "u1")
		return c.NoContent(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/form", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	out := buf.String()
	assert.Contains(t, out, `"msg":"request"`)
	assert.Contains(t, out, `"status":200`)
	assert.Contains(t, out, `"user_id":"u1"`)
	assert.Contains(t, out, `"route":"/form"`)
}
