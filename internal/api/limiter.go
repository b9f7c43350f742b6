package api

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL    = 10 * time.Minute
	limiterMaxClients = 4096
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LoginLimiter throttles login attempts per client key (the remote IP).
// Each client may make perMinute attempts per minute, in a burst.
type LoginLimiter struct {
	mu        sync.Mutex
	perMinute int
	clients   map[string]*limiterEntry
	now       func() time.Time
}

// NewLoginLimiter creates a limiter allowing perMinute attempts per client.
func NewLoginLimiter(perMinute int) *LoginLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &LoginLimiter{
		perMinute: perMinute,
		clients:   make(map[string]*limiterEntry),
		now:       time.Now,
	}
}

// Allow reports whether key may attempt a login now.
func (l *LoginLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if len(l.clients) >= limiterMaxClients {
		l.prune(now)
	}

	e, ok := l.clients[key]
	if !ok {
		e = &limiterEntry{
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMinute)), l.perMinute),
		}
		l.clients[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// prune drops clients idle long enough for their bucket to have refilled.
func (l *LoginLimiter) prune(now time.Time) {
	for key, e := range l.clients {
		if now.Sub(e.lastSeen) > limiterIdleTTL {
			delete(l.clients, key)
		}
	}
}
