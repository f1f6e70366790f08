package config

import "time"

// RateLimitConfig throttles console login attempts (POST /auth/login) in a
// Redis token bucket.  It has no effect without a Redis client.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration
    Prefix         string
}

// LoadRateLimitConfig reads LOGIN_RATE_LIMIT_* with defaults of 5 attempts
// refilled one per 12s.
func LoadRateLimitConfig() RateLimitConfig {
    def := RateLimitConfig{
        Enabled:        envBool("LOGIN_RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("LOGIN_RATE_LIMIT_CAPACITY", 5),
        RefillTokens:   envInt("LOGIN_RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("LOGIN_RATE_LIMIT_REFILL_INTERVAL", 12*time.Second),
        TTL:            envDur("LOGIN_RATE_LIMIT_TTL", 10*time.Minute),
        Prefix:         getenv("LOGIN_RATE_LIMIT_PREFIX", "roadassist:rl:login"),
    }
    if def.Capacity < 1 {
        def.Capacity = 1
    }
    if def.RefillTokens < 1 {
        def.RefillTokens = 1
    }
    if def.RefillInterval <= 0 {
        def.RefillInterval = time.Second
    }
    if minTTL := 5 * def.RefillInterval; def.TTL < minTTL {
        def.TTL = minTTL
    }
    return def
}
