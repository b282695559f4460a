package config

import (
    "strings"
    "time"
)

// Bucket is one token bucket: Capacity requests at once, refilled by one
// token every RefillEvery.
type Bucket struct {
    Capacity    int
    RefillEvery time.Duration
}

// RateLimitConfig configures request throttling on the catalog routes.
// Reads (GET) and writes (POST, PATCH, DELETE) draw from separate buckets so
// a burst of writes cannot starve browsing.  Keys are built per route group
// ("movies", "lookups") and, depending on KeyStrategy, per client IP:
//   ip        one bucket pair per client across all groups
//   group     one bucket pair per group shared by every client
//   ip_group  one bucket pair per client and group (default)
type RateLimitConfig struct {
    Enabled     bool
    Prefix      string
    KeyStrategy string
    Read        Bucket
    Write       Bucket
}

// LoadRateLimitConfig reads RATE_LIMIT_ENABLED, RATE_LIMIT_PREFIX,
// RATE_LIMIT_KEY_STRATEGY and the bucket variables RATE_LIMIT_CAPACITY,
// RATE_LIMIT_REFILL_EVERY, RATE_LIMIT_WRITE_CAPACITY and
// RATE_LIMIT_WRITE_REFILL_EVERY.
func LoadRateLimitConfig() RateLimitConfig {
    cfg := RateLimitConfig{
        Enabled:     envBool("RATE_LIMIT_ENABLED", true),
        Prefix:      envStr("RATE_LIMIT_PREFIX", "rl"),
        KeyStrategy: strings.ToLower(envStr("RATE_LIMIT_KEY_STRATEGY", "ip_group")),
        Read:        loadBucket("RATE_LIMIT", 60, time.Second),
        Write:       loadBucket("RATE_LIMIT_WRITE", 10, 6*time.Second),
    }
    switch cfg.KeyStrategy {
    case "ip", "group", "ip_group":
    default:
        cfg.KeyStrategy = "ip_group"
    }
    return cfg
}

func loadBucket(prefix string, capacity int, every time.Duration) Bucket {
    b := Bucket{
        Capacity:    envInt(prefix+"_CAPACITY", capacity),
        RefillEvery: envDur(prefix+"_REFILL_EVERY", every),
    }
    if b.Capacity < 1 {
        b.Capacity = 1
    }
    if b.RefillEvery < time.Millisecond {
        b.RefillEvery = every
    }
    return b
}

// TTL is how long an idle bucket is kept: long enough to refill completely.
func (b Bucket) TTL() time.Duration {
    return time.Duration(b.Capacity) * b.RefillEvery
}
