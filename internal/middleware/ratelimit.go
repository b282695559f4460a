// Package middleware holds the HTTP middleware shared by the catalog routes.
package middleware

import (
    "context"
    "fmt"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/movie-catalog/internal/config"
)

// bucketScript takes one token from the bucket at KEYS[1].
// ARGV: now (ms), capacity, refill period (ms), idle ttl (ms).
// Reply: {allowed 0|1, tokens left, ms until the next token}.
var bucketScript = redis.NewScript(`
local now, cap, every, ttl = tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4])
local s = redis.call('HMGET', KEYS[1], 't', 'ts')
local tokens, ts = tonumber(s[1]), tonumber(s[2])
if tokens == nil or ts == nil or ts > now then
  tokens, ts = cap, now
end
local gained = math.floor((now - ts) / every)
if gained > 0 then
  tokens = math.min(cap, tokens + gained)
  ts = ts + gained * every
end
if tokens >= cap then
  ts = now
end
local allowed, wait = 0, 0
if tokens > 0 then
  allowed, tokens = 1, tokens - 1
else
  wait = every - (now - ts)
end
redis.call('HSET', KEYS[1], 't', tokens, 'ts', ts)
redis.call('PEXPIRE', KEYS[1], ttl)
return {allowed, tokens, wait}
`)

// Decision is the outcome of one Take.
type Decision struct {
    Allowed    bool
    Remaining  int64
    RetryAfter time.Duration
}

// Limiter keeps token buckets in Redis.
type Limiter struct {
    rdb redis.Scripter
    now func() time.Time
}

// NewLimiter returns a Limiter running its script on rdb.
func NewLimiter(rdb redis.Scripter) *Limiter {
    return &Limiter{rdb: rdb, now: time.Now}
}

// Take removes one token from the bucket stored at key, creating it full
// when it does not exist yet.
func (l *Limiter) Take(ctx context.Context, key string, b config.Bucket) (Decision, error) {
    ttl := b.TTL()
    if ttl < time.Second {
        ttl = time.Second
    }
    res, err := bucketScript.Run(ctx, l.rdb, []string{key},
        l.now().UnixMilli(), b.Capacity, b.RefillEvery.Milliseconds(), ttl.Milliseconds()).Int64Slice()
    if err != nil {
        return Decision{}, err
    }
    if len(res) != 3 {
        return Decision{}, fmt.Errorf("ratelimit: unexpected reply %v", res)
    }
    return Decision{
        Allowed:    res[0] == 1,
        Remaining:  res[1],
        RetryAfter: time.Duration(res[2]) * time.Millisecond,
    }, nil
}

// isWrite reports whether the request mutates the catalog.
func isWrite(method string) bool {
    switch method {
    case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
        return true
    }
    return false
}

// RateLimit throttles the routes of one group ("movies", "lookups").  Writes
// draw from cfg.Write and everything else from cfg.Read.  Requests pass
// through when limiting is disabled, l is nil or Redis fails.
func RateLimit(cfg config.RateLimitConfig, l *Limiter, group string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        if !cfg.Enabled || l == nil {
            return next
        }
        return func(c echo.Context) error {
            class, bucket := "read", cfg.Read
            if isWrite(c.Request().Method) {
                class, bucket = "write", cfg.Write
            }
            key := rateKey(cfg, group, class, c.RealIP())

            d, err := l.Take(c.Request().Context(), key, bucket)
            if err != nil {
                c.Logger().Warnf("ratelimit %s: %v", key, err)
                return next(c)
            }
            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(bucket.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
            if d.Allowed {
                return next(c)
            }
            secs := int((d.RetryAfter + time.Second - 1) / time.Second)
            if secs < 1 {
                secs = 1
            }
            h.Set("Retry-After", strconv.Itoa(secs))
            return c.JSON(http.StatusTooManyRequests, echo.Map{
                "error":       "rate limit exceeded",
                "retry_after": secs,
            })
        }
    }
}

// rateKey builds the bucket key, e.g. "rl:movies:ip:10.0.0.1:write".
func rateKey(cfg config.RateLimitConfig, group, class, ip string) string {
    if ip == "" {
        ip = "unknown"
    }
    parts := []string{cfg.Prefix}
    switch cfg.KeyStrategy {
    case "ip":
        parts = append(parts, "ip", ip)
    case "group":
        parts = append(parts, group)
    default:
        parts = append(parts, group, "ip", ip)
    }
    return strings.Join(append(parts, class), ":")
}
