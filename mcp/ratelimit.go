package mcp

import (
	"sync"
	"time"

	"github.com/OneOfOne/xxhash"
	"golang.org/x/time/rate"
)

const limiterShardCount = 16
const limiterHashSeed = 0x5bd1e995

// RateLimiter is a per-agent sliding window, matching RateLimitConfig /
// RateLimiter's requests-per-window semantics but built on
// golang.org/x/time/rate's token bucket (refilled continuously rather
// than in per-window bursts) and sharded by agent-id hash the way
// notify.Bus shards by channel, so one noisy agent's limiter lock never
// serializes behind another's.
type RateLimiter struct {
	requestsPerWindow int
	window            time.Duration
	shards            [limiterShardCount]*limiterShard
}

type limiterShard struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewRateLimiter(requestsPerWindow int, window time.Duration) *RateLimiter {
	if requestsPerWindow <= 0 {
		requestsPerWindow = 100
	}
	if window <= 0 {
		window = 60 * time.Second
	}
	rl := &RateLimiter{requestsPerWindow: requestsPerWindow, window: window}
	for i := range rl.shards {
		rl.shards[i] = &limiterShard{limiters: make(map[string]*rate.Limiter)}
	}
	return rl
}

func (rl *RateLimiter) shardFor(agentID string) *limiterShard {
	h := xxhash.ChecksumString64S(agentID, limiterHashSeed)
	return rl.shards[h%limiterShardCount]
}

func (rl *RateLimiter) limiterFor(agentID string) *rate.Limiter {
	s := rl.shardFor(agentID)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[agentID]
	if !ok {
		perSecond := rate.Limit(float64(rl.requestsPerWindow) / rl.window.Seconds())
		l = rate.NewLimiter(perSecond, rl.requestsPerWindow)
		s.limiters[agentID] = l
	}
	return l
}

// Allow admits one request for agentID, matching is_allowed. A dropped
// request is never charged: callers must only act on a true result.
func (rl *RateLimiter) Allow(agentID string) bool {
	return rl.limiterFor(agentID).Allow()
}

// Remaining estimates the requests left in the current window, matching
// get_remaining — rounded down from the token bucket's fractional
// burst since tokens refill continuously rather than resetting at a
// window boundary.
func (rl *RateLimiter) Remaining(agentID string) int {
	tokens := int(rl.limiterFor(agentID).Tokens())
	if tokens < 0 {
		return 0
	}
	if tokens > rl.requestsPerWindow {
		return rl.requestsPerWindow
	}
	return tokens
}
