package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/oliklab/mledger-sub000/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// rateEntry tracks request counts per client within a fixed window.
type rateEntry struct {
	count     int
	windowEnd time.Time
}

// limiter holds the windows for one RateLimiter instance. Expired entries
// are purged inline every purgeInterval so idle clients do not accumulate.
type limiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	entries   map[string]*rateEntry
	lastPurge time.Time
	now       func() time.Time
}

const purgeInterval = 5 * time.Minute

// allow records one request for key and reports whether it is within the
// limit, plus the end of the current window.
func (l *limiter) allow(key string) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastPurge) > purgeInterval {
		l.purge(now)
	}

	e, ok := l.entries[key]
	if !ok {
		e = &rateEntry{}
		l.entries[key] = e
	}
	if now.After(e.windowEnd) {
		e.count = 0
		e.windowEnd = now.Add(l.window)
	}
	e.count++
	return e.count <= l.limit, e.windowEnd
}

func (l *limiter) purge(now time.Time) {
	purged := 0
	for k, e := range l.entries {
		if now.After(e.windowEnd) {
			delete(l.entries, k)
			purged++
		}
	}
	l.lastPurge = now
	if purged > 0 {
		log.Debug().Int("entries_purged", purged).Int("entries_remaining", len(l.entries)).Msg("rate limiter purged")
	}
}

// RateLimiter returns a fixed-window limiter of limit requests per window per
// client IP. A limit ≤ 0 disables it.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	l := &limiter{limit: limit, window: window, entries: make(map[string]*rateEntry), now: time.Now}
	l.lastPurge = l.now()
	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}
		ok, windowEnd := l.allow(c.ClientIP())
		if !ok {
			secs := int(time.Until(windowEnd).Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.WithCode("rate_limited", "too many requests, try again shortly"))
			return
		}
		c.Next()
	}
}
