package middlewares

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Limiter is a fixed-window counter keyed per client. Allow reports whether
// the request may proceed, and the seconds to wait when it may not.
type Limiter interface {
	Allow(c *gin.Context, key string) (retryAfter int, ok bool)
}

type RateLimiter struct {
	limit   int
	window  time.Duration
	limiter Limiter
}

// NewRateLimiter uses Redis-backed windows when a client is supplied so the
// limit holds across replicas, and an in-process map otherwise.
func NewRateLimiter(limit int, window time.Duration, rdb *redis.Client) *RateLimiter {
	var l Limiter

	if rdb != nil {
		l = &redisLimiter{rdb: rdb, limit: limit, window: window}
	} else {
		l = &memoryLimiter{
			limit:   limit,
			window:  window,
			clients: make(map[string]*clientBucket),
		}
	}

	return &RateLimiter{limit: limit, window: window, limiter: l}
}

// Middleware returns a gin.HandlerFunc that enforces the rate limit for a derived key

func (rl *RateLimiter) Middleware(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)

		if key == "" {
			// fallback to IP if key cannot be derived
			key = clientIP(c)
		}

		retryAfter, ok := rl.limiter.Allow(c, key)

		if !ok {
			c.Header("Retry-After", strconv.Itoa(retryAfter))

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":    "rate_limited",
					"message": "Too many requests. Please try again shortly.",
				},
			})
			return
		}

		c.Next()
	}
}

// in-process implementation

type memoryLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	clients map[string]*clientBucket
}

type clientBucket struct {
	count     int
	windowEnd time.Time
}

func (m *memoryLimiter) Allow(_ *gin.Context, key string) (int, bool) {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.clients[key]

	if !ok || now.After(b.windowEnd) {
		m.clients[key] = &clientBucket{
			count:     1,
			windowEnd: now.Add(m.window),
		}
		return 0, true
	}

	if b.count >= m.limit {
		retryAfter := int(time.Until(b.windowEnd).Seconds())

		if retryAfter < 0 {
			retryAfter = 0
		}

		return retryAfter, false
	}

	b.count++
	return 0, true
}

// redis implementation: INCR with a window-long TTL on first hit

type redisLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
}

func (r *redisLimiter) Allow(c *gin.Context, key string) (int, bool) {
	ctx := c.Request.Context()

	redisKey := "ratelimit:" + key

	count, err := r.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		// Redis being down should not lock everyone out
		return 0, true
	}

	if count == 1 {
		_ = r.rdb.Expire(ctx, redisKey, r.window).Err()
	}

	if count > int64(r.limit) {
		ttl, err := r.rdb.TTL(ctx, redisKey).Result()

		retryAfter := int(r.window.Seconds())
		if err == nil && ttl > 0 {
			retryAfter = int(ttl.Seconds())
		}

		return retryAfter, false
	}

	return 0, true
}

// helper functions

// for unauthenticated endpoints: rate limit by IP
func KeyByIP(c *gin.Context) string {
	return clientIP(c)
}

// For authenticated endpoints: rate limit by userID if available

func KeyByUserOrIP(c *gin.Context) string {
	id, ok := UserIDFromContext(c)

	if ok && id != "" {
		return "user:" + id
	}

	return clientIP(c)
}

func clientIP(c *gin.Context) string {
	// Gin's ClientIP respects X-Forwarded-For / X-Real-IP if configured.
	ip := c.ClientIP()

	// Normalize away any port that slipped through

	host, _, err := net.SplitHostPort(ip)

	if err == nil && host != "" {
		return host
	}

	return ip
}
