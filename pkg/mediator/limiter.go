package mediator

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxTrackedTopics bounds the limiter map; idle topics are pruned past it
const maxTrackedTopics = 1024

// topicLimiter applies one token bucket per session topic
type topicLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

func newTopicLimiter(perSecond float64, burst int) *topicLimiter {
	return &topicLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (tl *topicLimiter) Allow(topic string) bool {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	l, ok := tl.limiters[topic]
	if !ok {
		if len(tl.limiters) >= maxTrackedTopics {
			tl.pruneLocked(time.Now())
		}
		l = rate.NewLimiter(tl.limit, tl.burst)
		tl.limiters[topic] = l
	}
	return l.Allow()
}

func (tl *topicLimiter) Forget(topic string) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	delete(tl.limiters, topic)
}

// pruneLocked drops limiters whose bucket has refilled; a fresh limiter behaves the same
func (tl *topicLimiter) pruneLocked(now time.Time) {
	for topic, l := range tl.limiters {
		if l.TokensAt(now) >= float64(tl.burst) {
			delete(tl.limiters, topic)
		}
	}
}
