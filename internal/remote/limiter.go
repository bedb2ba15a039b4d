package remote

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterState holds the throttling state for one service. It is owned
// exclusively by the Gateway; no other component mutates it.
type limiterState struct {
	limiter *rate.Limiter

	mu                  sync.Mutex
	lastRequestAt       time.Time
	backoffUntil        time.Time
	consecutiveFailures int
}

func newLimiterState(minInterval time.Duration) *limiterState {
	if minInterval <= 0 {
		minInterval = time.Second
	}
	return &limiterState{limiter: rate.NewLimiter(rate.Every(minInterval), 1)}
}

// wait blocks until the service may be called again: first until any active
// backoff window has passed, then until the minimum inter-request interval
// since the previous request has elapsed.
func (s *limiterState) wait(ctx context.Context) error {
	s.mu.Lock()
	until := s.backoffUntil
	s.mu.Unlock()

	if delay := time.Until(until); delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return s.limiter.Wait(ctx)
}

// requested stamps the time of the request that was just issued.
func (s *limiterState) requested() {
	s.mu.Lock()
	s.lastRequestAt = time.Now()
	s.mu.Unlock()
}

// succeeded resets the failure counter after a successful response.
func (s *limiterState) succeeded() {
	s.mu.Lock()
	s.consecutiveFailures = 0
	s.backoffUntil = time.Time{}
	s.mu.Unlock()
}

// throttled applies exponential backoff after a throttling signal and returns
// the delay imposed. The delay doubles with each consecutive failure, capped
// at maxDelay.
func (s *limiterState) throttled(baseDelay, maxDelay time.Duration) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	delay := baseDelay << s.consecutiveFailures
	if delay > maxDelay || delay <= 0 {
		delay = maxDelay
	}

	s.backoffUntil = time.Now().Add(delay)
	s.consecutiveFailures++
	return delay
}

// failures returns the current consecutive failure count.
func (s *limiterState) failures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consecutiveFailures
}
