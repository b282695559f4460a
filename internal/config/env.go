package config

import (
    "os"
    "strconv"
    "time"
)

// The env* helpers read optional variables; unset or unparsable values fall
// back to the default.

func envStr(k, d string) string {
    if v := os.Getenv(k); v != "" {
        return v
    }
    return d
}

func envBool(k string, d bool) bool {
    if b, err := strconv.ParseBool(os.Getenv(k)); err == nil {
        return b
    }
    return d
}

func envInt(k string, d int) int {
    if n, err := strconv.Atoi(os.Getenv(k)); err == nil {
        return n
    }
    return d
}

func envDur(k string, d time.Duration) time.Duration {
    if dur, err := time.ParseDuration(os.Getenv(k)); err == nil {
        return dur
    }
    return d
}
