package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

// ClientKeyHeader lets a frontend tie rate limits to its chat session
// instead of its IP address.
const ClientKeyHeader = "X-Session-ID"

// RateLimiterConfig holds configuration for rate limiting
type RateLimiterConfig struct {
	RequestsPerMinute int // Sustained completions per client per minute
	BurstSize         int // Allow burst of N requests
	CacheSize         int // Max tracked clients; least recently seen are evicted
}

// TokenBucket implements a token bucket rate limiter
type TokenBucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

// NewTokenBucket creates a new token bucket
func NewTokenBucket(maxTokens float64, refillRate float64) *TokenBucket {
	return &TokenBucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Allow checks if a request can proceed and consumes a token if so
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()

	tb.tokens = min(tb.maxTokens, tb.tokens+(elapsed*tb.refillRate))
	tb.lastRefill = now

	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true
	}
	return false
}

// Remaining returns the number of tokens remaining
func (tb *TokenBucket) Remaining() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	elapsed := time.Since(tb.lastRefill).Seconds()
	return int(min(tb.maxTokens, tb.tokens+(elapsed*tb.refillRate)))
}

// ClientRateLimiter keeps one bucket per client key in a bounded LRU cache,
// so idle clients age out without a cleanup goroutine.
type ClientRateLimiter struct {
	config  RateLimiterConfig
	buckets *lru.Cache
	mu      sync.Mutex
	logger  *zap.Logger
}

// NewClientRateLimiter creates a new client-keyed rate limiter
func NewClientRateLimiter(config RateLimiterConfig, logger *zap.Logger) (*ClientRateLimiter, error) {
	if config.CacheSize <= 0 {
		config.CacheSize = 4096
	}
	if config.BurstSize <= 0 {
		config.BurstSize = 1
	}
	cache, err := lru.New(config.CacheSize)
	if err != nil {
		return nil, err
	}
	return &ClientRateLimiter{
		config:  config,
		buckets: cache,
		logger:  logger,
	}, nil
}

func (crl *ClientRateLimiter) bucket(key string) *TokenBucket {
	crl.mu.Lock()
	defer crl.mu.Unlock()

	if v, ok := crl.buckets.Get(key); ok {
		return v.(*TokenBucket)
	}
	// BurstSize tokens, refill at RequestsPerMinute/60 per second
	refillRate := float64(crl.config.RequestsPerMinute) / 60.0
	b := NewTokenBucket(float64(crl.config.BurstSize), refillRate)
	crl.buckets.Add(key, b)
	return b
}

// Allow checks if a request can proceed for the given client
func (crl *ClientRateLimiter) Allow(key string) bool {
	return crl.bucket(key).Allow()
}

// Limit returns remaining tokens for a client and the bucket size
func (crl *ClientRateLimiter) Limit(key string) (remaining int, limit int) {
	crl.mu.Lock()
	v, ok := crl.buckets.Peek(key)
	crl.mu.Unlock()

	if !ok {
		return crl.config.BurstSize, crl.config.BurstSize
	}
	return v.(*TokenBucket).Remaining(), crl.config.BurstSize
}

// Tracked returns the number of clients currently holding a bucket.
func (crl *ClientRateLimiter) Tracked() int {
	return crl.buckets.Len()
}

func clientKey(c *gin.Context) string {
	if id := c.GetHeader(ClientKeyHeader); id != "" {
		return "session:" + id
	}
	return "ip:" + c.ClientIP()
}

// RateLimitMiddleware rejects completion requests over the per-client budget
func RateLimitMiddleware(limiter *ClientRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := clientKey(c)
		allowed := limiter.Allow(key)
		remaining, limit := limiter.Limit(key)

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			limiter.logger.Warn("Rate limit exceeded",
				zap.String("client", key),
				zap.String("path", c.FullPath()),
				zap.Int("limit", limit))

			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"limit":       limit,
				"remaining":   remaining,
				"retry_after": 60,
			})
			return
		}

		c.Next()
	}
}
