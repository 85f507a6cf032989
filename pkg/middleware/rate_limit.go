package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yeisme/filetally/pkg/configs"
)

const (
	limiterIdleTTL    = 10 * time.Minute
	maxLimiterEntries = 10000
)

// RateLimitMiddleware 返回一个基于配置的限流中间件.
// Key 可取 global、ip 或 header:Header-Name，后两者每个键一个令牌桶. Exempt 中的路径前缀不受限.
func RateLimitMiddleware(cfg configs.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	var allow func(c *gin.Context) bool

	keyMode := strings.ToLower(strings.TrimSpace(cfg.Key))
	if keyMode == "global" || keyMode == "" {
		limiter := rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)
		allow = func(*gin.Context) bool { return limiter.Allow() }
	} else {
		buckets := newLimiterSet(cfg.RPS, cfg.Burst)
		allow = func(c *gin.Context) bool { return buckets.get(limitKey(c, keyMode), time.Now()).Allow() }
	}

	return func(c *gin.Context) {
		if exempt(c.Request.URL.Path, cfg.Exempt) {
			c.Next()
			return
		}

		if !allow(c) {
			rejectRateLimited(c)
			return
		}

		c.Next()
	}
}

func exempt(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}

	return false
}

func rejectRateLimited(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests,
		gin.H{"error": "rate limit exceeded, request too frequent, please try again later"})
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet 按键保存令牌桶，超出上限时淘汰闲置的条目.
type limiterSet struct {
	mu      sync.Mutex
	rps     float64
	burst   int
	entries map[string]*limiterEntry
}

func newLimiterSet(rps float64, burst int) *limiterSet {
	return &limiterSet{rps: rps, burst: burst, entries: map[string]*limiterEntry{}}
}

func (s *limiterSet) get(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		e.lastSeen = now
		return e.limiter
	}

	if len(s.entries) >= maxLimiterEntries {
		for k, e := range s.entries {
			if now.Sub(e.lastSeen) > limiterIdleTTL {
				delete(s.entries, k)
			}
		}
	}

	e := &limiterEntry{limiter: rate.NewLimiter(rate.Limit(s.rps), s.burst), lastSeen: now}
	s.entries[key] = e

	return e.limiter
}

func limitKey(c *gin.Context, keyMode string) string {
	key := ""

	if h, ok := strings.CutPrefix(keyMode, "header:"); ok {
		key = c.GetHeader(h)
	}

	if key == "" {
		key = clientIP(c)
	}

	if key == "" {
		key = "unknown"
	}

	return key
}

func clientIP(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}

	return host
}
