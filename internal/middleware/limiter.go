package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterCleanupInterval = 5 * time.Minute
	limiterTTL             = 30 * time.Minute
)

type limiterEntry struct {
	limiter *rate.Limiter
	lastUse time.Time
}

// ipLimiters is a keyed set of token buckets whose idle entries are dropped
// by a background sweep.
type ipLimiters struct {
	mu         sync.Mutex
	entries    map[string]*limiterEntry
	limit      rate.Limit
	burst      int
	cleanupRun bool
}

func newIPLimiters(limit rate.Limit, burst int) *ipLimiters {
	return &ipLimiters{entries: make(map[string]*limiterEntry), limit: limit, burst: burst}
}

func (l *ipLimiters) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.startCleanupOnce()
	e, ok := l.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = e
	}
	e.lastUse = time.Now()
	return e.limiter
}

func (l *ipLimiters) startCleanupOnce() {
	if l.cleanupRun {
		return
	}
	l.cleanupRun = true
	go func() {
		ticker := time.NewTicker(limiterCleanupInterval)
		defer ticker.Stop()
		for range ticker.C {
			l.mu.Lock()
			now := time.Now()
			for k, e := range l.entries {
				if now.Sub(e.lastUse) > limiterTTL {
					delete(l.entries, k)
				}
			}
			l.mu.Unlock()
		}
	}()
}
