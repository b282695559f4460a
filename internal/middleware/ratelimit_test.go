package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-catalog/internal/config"
)

// scriptStub answers every script call with a fixed reply and remembers
// the keys and arguments it was given.
type scriptStub struct {
	redis.Scripter
	reply []interface{}
	err   error
	keys  []string
	args  []interface{}
}

func (s *scriptStub) EvalSha(ctx context.Context, sha1 string, keys []string, args ...interface{}) *redis.Cmd {
	s.keys, s.args = keys, args
	return redis.NewCmdResult(s.reply, s.err)
}

func (s *scriptStub) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	return s.EvalSha(ctx, "", keys, args...)
}

var testLimits = config.RateLimitConfig{
	Enabled:     true,
	Prefix:      "rl",
	KeyStrategy: "ip_group",
	Read:        config.Bucket{Capacity: 60, RefillEvery: time.Second},
	Write:       config.Bucket{Capacity: 3, RefillEvery: 20 * time.Second},
}

func serve(mw echo.MiddlewareFunc, method string) (*httptest.ResponseRecorder, bool) {
	e := echo.New()
	req := httptest.NewRequest(method, "/movies/", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	_ = mw(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})(c)
	return rec, called
}

func TestRateKey(t *testing.T) {
	cases := map[string]string{
		"ip":       "rl:ip:10.0.0.1:write",
		"group":    "rl:movies:write",
		"ip_group": "rl:movies:ip:10.0.0.1:write",
	}
	for strategy, want := range cases {
		cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: strategy}
		assert.Equal(t, want, rateKey(cfg, "movies", "write", "10.0.0.1"), "strategy %q", strategy)
	}
	assert.Equal(t, "rl:lookups:ip:unknown:read", rateKey(testLimits, "lookups", "read", ""))
}

func TestWritesUseWriteBucket(t *testing.T) {
	stub := &scriptStub{reply: []interface{}{int64(1), int64(2), int64(0)}}
	l := NewLimiter(stub)
	l.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	mw := RateLimit(testLimits, l, "movies")

	rec, called := serve(mw, http.MethodPost)
	assert.True(t, called)
	assert.Equal(t, []string{"rl:movies:ip:10.0.0.1:write"}, stub.keys)
	assert.Equal(t, []interface{}{int64(1_700_000_000_000), 3, int64(20000), int64(60000)}, stub.args)
	assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Remaining"))

	for _, m := range []string{http.MethodPatch, http.MethodDelete} {
		serve(mw, m)
		assert.Equal(t, []string{"rl:movies:ip:10.0.0.1:write"}, stub.keys, m)
	}
	rec, _ = serve(mw, http.MethodGet)
	assert.Equal(t, []string{"rl:movies:ip:10.0.0.1:read"}, stub.keys)
	assert.Equal(t, "60", rec.Header().Get("X-RateLimit-Limit"))
}

func TestEmptyBucketAnswers429(t *testing.T) {
	stub := &scriptStub{reply: []interface{}{int64(0), int64(0), int64(12500)}}
	mw := RateLimit(testLimits, NewLimiter(stub), "movies")

	rec, called := serve(mw, http.MethodPatch)
	assert.False(t, called)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "13", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded","retry_after":13}`, rec.Body.String())
}

func TestRedisFailurePassesThrough(t *testing.T) {
	stub := &scriptStub{err: errors.New("connection refused")}
	rec, called := serve(RateLimit(testLimits, NewLimiter(stub), "movies"), http.MethodPost)
	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestTakeRejectsShortReply(t *testing.T) {
	stub := &scriptStub{reply: []interface{}{int64(1)}}
	_, err := NewLimiter(stub).Take(context.Background(), "k", testLimits.Read)
	require.Error(t, err)
}

func TestDisabledOrMissingLimiterPassesThrough(t *testing.T) {
	off := testLimits
	off.Enabled = false
	stub := &scriptStub{reply: []interface{}{int64(0), int64(0), int64(1000)}}

	for name, mw := range map[string]echo.MiddlewareFunc{
		"disabled":   RateLimit(off, NewLimiter(stub), "movies"),
		"no limiter": RateLimit(testLimits, nil, "movies"),
	} {
		_, called := serve(mw, http.MethodPost)
		assert.True(t, called, name)
	}
	assert.Nil(t, stub.keys)
}
