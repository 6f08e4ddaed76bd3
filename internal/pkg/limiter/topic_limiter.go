/*
Package limiter provides client-side rate limiting for outbound publishes.

It utilizes the Token Bucket algorithm (rate.Limiter) to bound how fast the
client pushes fire-and-forget messages (chat, ready toggles) onto the realtime
channel, limited independently per destination topic.
*/
package limiter

import (
	"sync"

	"golang.org/x/time/rate"
)

// TopicRateLimiter implements a per-topic token bucket limiter for outbound sends.
type TopicRateLimiter struct {
	// mu protects concurrent access to the limits map.
	mu sync.RWMutex

	// limits stores the map from destination topic to its *rate.Limiter instance.
	// The topic set is small and fixed per session, so entries are never evicted.
	limits map[string]*rate.Limiter

	// r is the sustained rate, in events per second, allowed per topic.
	r rate.Limit

	// b is the burst size (token bucket capacity) per topic.
	b int
}

// NewTopicRateLimiter creates a TopicRateLimiter with rate r and burst capacity b.
func NewTopicRateLimiter(r rate.Limit, b int) *TopicRateLimiter {
	return &TopicRateLimiter{
		limits: make(map[string]*rate.Limiter),
		r:      r,
		b:      b,
	}
}

// GetLimiter retrieves the rate limiter for the given topic, creating it on
// first use. Creation is concurrent-safe via double-checked locking.
func (l *TopicRateLimiter) GetLimiter(topic string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limits[topic]
	l.mu.RUnlock()

	if !exists {
		l.mu.Lock()
		limiter, exists = l.limits[topic]
		if !exists {
			limiter = rate.NewLimiter(l.r, l.b)
			l.limits[topic] = limiter
		}
		l.mu.Unlock()
	}

	return limiter
}

// Allow reports whether a send on the given topic is within the rate limit,
// consuming one token when it is.
func (l *TopicRateLimiter) Allow(topic string) bool {
	return l.GetLimiter(topic).Allow()
}
