package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	ActionSendMessage = "send_message"
	ActionCreateChat  = "create_chat"
	ActionTyping      = "typing"
	ActionPriceAlert  = "price_alert"
)

// Policy is the sustained rate and burst for one action.
type Policy struct {
	Every time.Duration
	Burst int
}

var defaultPolicies = map[string]Policy{
	// 10 messages per minute
	ActionSendMessage: {Every: 6 * time.Second, Burst: 10},
	// 30 chat opens per hour
	ActionCreateChat: {Every: 2 * time.Minute, Burst: 30},
	// typing fires on keystrokes, so the burst is generous
	ActionTyping:     {Every: time.Second, Burst: 30},
	ActionPriceAlert: {Every: 10 * time.Second, Burst: 20},
}

var fallbackPolicy = Policy{Every: 3 * time.Second, Burst: 20}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per user and action.
type RateLimiter struct {
	policies map[string]Policy
	buckets  map[string]*bucket
	mutex    sync.Mutex
	now      func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return NewRateLimiterWithPolicies(defaultPolicies)
}

// NewRateLimiterWithPolicies overrides the per-action policies. Actions not in
// the map use the fallback policy.
func NewRateLimiterWithPolicies(policies map[string]Policy) *RateLimiter {
	p := make(map[string]Policy, len(policies))
	for k, v := range policies {
		p[k] = v
	}
	return &RateLimiter{
		policies: p,
		buckets:  make(map[string]*bucket),
		now:      time.Now,
	}
}

func (rl *RateLimiter) policy(action string) Policy {
	if p, ok := rl.policies[action]; ok {
		return p
	}
	return fallbackPolicy
}

// Allow consumes a token for the user action. When the bucket is empty it
// returns false and how long until the next token.
func (rl *RateLimiter) Allow(userID, action string) (bool, time.Duration) {
	key := userID + ":" + action
	now := rl.now()

	rl.mutex.Lock()
	b, ok := rl.buckets[key]
	if !ok {
		p := rl.policy(action)
		b = &bucket{limiter: rate.NewLimiter(rate.Every(p.Every), p.Burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	rl.mutex.Unlock()

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, rl.policy(action).Every
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// GetStatus returns the tokens currently available and the burst size.
func (rl *RateLimiter) GetStatus(userID, action string) (tokens int, maxTokens int) {
	key := userID + ":" + action

	rl.mutex.Lock()
	b, ok := rl.buckets[key]
	rl.mutex.Unlock()
	if !ok {
		p := rl.policy(action)
		return p.Burst, p.Burst
	}
	return int(b.limiter.TokensAt(rl.now())), b.limiter.Burst()
}

// Cleanup removes buckets idle for longer than maxIdle.
func (rl *RateLimiter) Cleanup(maxIdle time.Duration) int {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	removed := 0
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) > maxIdle {
			delete(rl.buckets, key)
			removed++
		}
	}
	return removed
}

// StartCleanupRoutine prunes idle buckets until done is closed.
func (rl *RateLimiter) StartCleanupRoutine(done <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.Cleanup(time.Hour)
			case <-done:
				return
			}
		}
	}()
}
