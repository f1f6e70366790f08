package middleware

import (
    "net/http"
    "net/http/httptest"
    "os"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/roadassist-console/internal/config"
)

func TestLoginKey(t *testing.T) {
    if got := loginKey("rl", "10.0.0.1", " Ops1 "); got != "rl:ip:10.0.0.1:user:ops1" {
        t.Errorf("loginKey() = %q", got)
    }
    if got := loginKey("rl", "", ""); got != "rl:ip:unknown:user:-" {
        t.Errorf("loginKey() = %q", got)
    }
}

func TestLoginThrottle_NoRedis_PassesThrough(t *testing.T) {
    e := echo.New()
    e.POST("/auth/login", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
        LoginThrottle(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil))

    for i := 0; i < 3; i++ {
        rec := httptest.NewRecorder()
        e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
        if rec.Code != http.StatusNoContent {
            t.Fatalf("attempt %d: status = %d, want 204", i+1, rec.Code)
        }
    }
}

func TestLoginThrottle_Redis_BlocksAfterCapacity(t *testing.T) {
    addr := os.Getenv("REDIS_ADDR")
    if addr == "" {
        t.Skip("REDIS_ADDR not set")
    }
    rdb := redis.NewClient(&redis.Options{Addr: addr})
    t.Cleanup(func() { rdb.Close() })

    cfg := config.RateLimitConfig{
        Enabled:        true,
        Capacity:       2,
        RefillTokens:   1,
        RefillInterval: time.Minute,
        TTL:            5 * time.Minute,
        Prefix:         "roadassist:test:rl:" + t.Name() + time.Now().Format("150405.000"),
    }
    e := echo.New()
    e.POST("/auth/login", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
        LoginThrottle(cfg, rdb))

    codes := make([]int, 3)
    for i := range codes {
        rec := httptest.NewRecorder()
        e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
        codes[i] = rec.Code
    }
    if codes[0] != http.StatusNoContent || codes[1] != http.StatusNoContent || codes[2] != http.StatusTooManyRequests {
        t.Errorf("codes = %v, want [204 204 429]", codes)
    }
}
