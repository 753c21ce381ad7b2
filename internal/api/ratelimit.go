package api

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// userLimiter hands out one token bucket per user. The bucket holds a full
// minute's budget; refill is spread evenly across the minute.
type userLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	interval time.Duration
	burst    int
}

func newUserLimiter(perMinute int) *userLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return &userLimiter{
		limiters: make(map[string]*rate.Limiter),
		interval: time.Minute / time.Duration(perMinute),
		burst:    perMinute,
	}
}

// Allow reports whether the user has budget for one more request.
func (u *userLimiter) Allow(userID string) bool {
	u.mu.Lock()
	lim, ok := u.limiters[userID]
	if !ok {
		lim = rate.NewLimiter(rate.Every(u.interval), u.burst)
		u.limiters[userID] = lim
	}
	u.mu.Unlock()

	return lim.Allow()
}
