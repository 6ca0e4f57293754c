package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nimbuswolf/finance-api/internal/constants"
	"github.com/nimbuswolf/finance-api/pkg/logger"
	"go.uber.org/zap"
)

// RateLimiter is a per-client sliding window log.
type RateLimiter struct {
	hits       map[string][]time.Time
	maxRequest int
	window     time.Duration
	now        func() time.Time
	mu         sync.Mutex
}

func NewRateLimiter(maxRequest int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		hits:       make(map[string][]time.Time),
		maxRequest: maxRequest,
		window:     window,
		now:        time.Now,
	}
}

// allow records a hit for key and reports whether it fits the window, plus the hits left.
func (rl *RateLimiter) allow(key string) (bool, int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.prune(now)

	hits := rl.hits[key]
	if len(hits) >= rl.maxRequest {
		return false, 0
	}
	rl.hits[key] = append(hits, now)
	return true, rl.maxRequest - len(hits) - 1
}

func (rl *RateLimiter) prune(now time.Time) {
	for key, hits := range rl.hits {
		i := 0
		for i < len(hits) && now.Sub(hits[i]) > rl.window {
			i++
		}
		if i == len(hits) {
			delete(rl.hits, key)
		} else if i > 0 {
			rl.hits[key] = hits[i:]
		}
	}
}

// Middleware limits each client IP. A non-positive limit disables it.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.maxRequest <= 0 || rl.window <= 0 {
			c.Next()
			return
		}

		ip := c.ClientIP()
		ok, remaining := rl.allow(ip)
		if !ok {
			logger.GetLogger().Warn("Rate limit exceeded",
				zap.String("client_ip", ip),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Int("max_requests", rl.maxRequest),
				zap.Duration("window", rl.window),
			)
			c.Header("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, constants.BuildErrorResponse(constants.MsgRateLimited, nil))
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.maxRequest))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Next()
	}
}

func RateLimit(maxRequest int, window time.Duration) gin.HandlerFunc {
	return NewRateLimiter(maxRequest, window).Middleware()
}
