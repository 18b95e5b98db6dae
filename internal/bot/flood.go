package bot

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// FloodWindow is the period flood limits are expressed in
const FloodWindow = time.Minute

// FloodGuard rate-limits inbound messages per user with a token bucket.
// A limit <= 0 disables the guard.
type FloodGuard struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	limiters map[int64]*rate.Limiter
}

// NewFloodGuard allows limit events per window for each user
func NewFloodGuard(limit int, window time.Duration) *FloodGuard {
	if window <= 0 {
		window = FloodWindow
	}
	return &FloodGuard{
		limit:    limit,
		window:   window,
		limiters: make(map[int64]*rate.Limiter),
	}
}

// Allow reports whether userID may send another message now
func (g *FloodGuard) Allow(userID int64) bool {
	if g == nil || g.limit <= 0 {
		return true
	}

	g.mu.Lock()
	limiter, ok := g.limiters[userID]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(g.window/time.Duration(g.limit)), g.limit)
		g.limiters[userID] = limiter
	}
	g.mu.Unlock()

	return limiter.Allow()
}
