package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/cardgrab/config"
	"github.com/use-agent/cardgrab/models"
	"golang.org/x/time/rate"
)

const (
	visitorIdleTTL  = time.Hour
	visitorSweepGap = 5 * time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitors keeps one token bucket per caller identity.
type visitors struct {
	mu      sync.Mutex
	byID    map[string]*visitor
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
}

func newVisitors(cfg config.RateLimitConfig) *visitors {
	return &visitors{
		byID:    make(map[string]*visitor),
		limit:   rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.Burst,
		idleTTL: visitorIdleTTL,
	}
}

func (v *visitors) allow(id string, now time.Time) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	vis, ok := v.byID[id]
	if !ok {
		vis = &visitor{limiter: rate.NewLimiter(v.limit, v.burst)}
		v.byID[id] = vis
	}
	vis.lastSeen = now
	return vis.limiter.AllowN(now, 1)
}

// evictIdle drops buckets not used since now-idleTTL and returns how many
// went away.
func (v *visitors) evictIdle(now time.Time) int {
	cutoff := now.Add(-v.idleTTL)
	v.mu.Lock()
	defer v.mu.Unlock()
	n := 0
	for id, vis := range v.byID {
		if vis.lastSeen.Before(cutoff) {
			delete(v.byID, id)
			n++
		}
	}
	return n
}

// retryAfter is the whole number of seconds until one token refills.
func (v *visitors) retryAfter() int {
	if v.limit <= 0 {
		return 1
	}
	return int(math.Ceil(1 / float64(v.limit)))
}

// RateLimit applies a token bucket per API key, or per client IP when the
// request is unauthenticated.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	vs := newVisitors(cfg)

	go func() {
		ticker := time.NewTicker(visitorSweepGap)
		defer ticker.Stop()
		for now := range ticker.C {
			vs.evictIdle(now)
		}
	}()

	return func(c *gin.Context) {
		id := c.GetString(APIKeyContextKey)
		if id == "" {
			id = c.ClientIP()
		}
		if !vs.allow(id, time.Now()) {
			c.Header("Retry-After", strconv.Itoa(vs.retryAfter()))
			abort(c, http.StatusTooManyRequests, models.ErrCodeRateLimited, "rate limit exceeded, please slow down")
			return
		}
		c.Next()
	}
}
