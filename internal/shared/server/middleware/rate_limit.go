package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"docwise-client/internal/shared/server/respond"
	"docwise-client/internal/shared/telemetry"
)

const defaultRateLimitGroup = "DEFAULT"

// RateLimitRule is a token bucket: Rate tokens per second up to Burst. A rule
// with a non-positive Rate or Burst never throttles.
type RateLimitRule struct {
	Rate  float64
	Burst int
}

func (r RateLimitRule) disabled() bool {
	return r.Rate <= 0 || r.Burst <= 0
}

// RateLimitConfig maps request groups to rules. Requests whose group has no
// rule pass through.
type RateLimitConfig struct {
	Rules        map[string]RateLimitRule
	DefaultGroup string
	GroupFor     func(*gin.Context) string
	// KeyFor names the caller a bucket belongs to. An empty result falls back
	// to the session user, then the client IP.
	KeyFor  func(*gin.Context) string
	Limiter *RateLimiter
}

// RateLimiter holds one token bucket per caller and group.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rateBucket
	now     func() time.Time
}

type rateBucket struct {
	tokens float64
	last   time.Time
}

func NewRateLimiter(now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{buckets: make(map[string]*rateBucket), now: now}
}

// RateLimit rejects callers that exhausted their group's bucket with 429 and
// a Retry-After in whole seconds.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limiter == nil {
		cfg.Limiter = NewRateLimiter(nil)
	}
	if cfg.DefaultGroup == "" {
		cfg.DefaultGroup = defaultRateLimitGroup
	}
	return func(c *gin.Context) {
		group := cfg.DefaultGroup
		if cfg.GroupFor != nil {
			if g := strings.TrimSpace(cfg.GroupFor(c)); g != "" {
				group = g
			}
		}
		rule, ok := cfg.Rules[group]
		if !ok || rule.disabled() {
			c.Next()
			return
		}

		key := callerKey(c, cfg.KeyFor) + "|" + group
		allowed, retryAfter := cfg.Limiter.Allow(key, rule)
		if allowed {
			c.Next()
			return
		}
		telemetry.Warn("http.rate_limited", map[string]any{
			"group":          group,
			"path":           c.FullPath(),
			"retry_after_ms": retryAfter.Milliseconds(),
		})
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(retryAfter)))
		respond.Error(c, http.StatusTooManyRequests, "Too many requests")
	}
}

func callerKey(c *gin.Context, keyFor func(*gin.Context) string) string {
	if keyFor != nil {
		if key := strings.TrimSpace(keyFor(c)); key != "" {
			return key
		}
	}
	if userID := strings.TrimSpace(UserIDFromContext(c)); userID != "" {
		return "user:" + userID
	}
	return "ip:" + c.ClientIP()
}

// retryAfterSeconds rounds d up to whole seconds, at least one.
func retryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

// Allow takes one token from key's bucket. When none is left it reports how
// long until the next token.
func (l *RateLimiter) Allow(key string, rule RateLimitRule) (bool, time.Duration) {
	if l == nil || rule.disabled() {
		return true, 0
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		b = &rateBucket{tokens: float64(rule.Burst), last: now}
		l.buckets[key] = b
	}
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = min(float64(rule.Burst), b.tokens+elapsed*rule.Rate)
		b.last = now
	}
	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	wait := time.Duration((1 - b.tokens) / rule.Rate * float64(time.Second))
	return false, wait.Round(time.Millisecond)
}
