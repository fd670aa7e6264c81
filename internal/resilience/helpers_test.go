package resilience

import (
	"sync"
	"time"
)

// recordingObserver 记录所有事件，供测试断言
type recordingObserver struct {
	mu       sync.Mutex
	retries  []RetryEvent
	breaker  []BreakerEvent
	timeouts []TimeoutEvent
}

func (r *recordingObserver) OnRetry(e RetryEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retries = append(r.retries, e)
}

func (r *recordingObserver) OnBreakerStateChange(e BreakerEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.breaker = append(r.breaker, e)
}

func (r *recordingObserver) OnTimeout(e TimeoutEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timeouts = append(r.timeouts, e)
}

func (r *recordingObserver) retryDelays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	delays := make([]time.Duration, 0, len(r.retries))
	for _, e := range r.retries {
		delays = append(delays, e.Delay)
	}
	return delays
}

func (r *recordingObserver) transitions() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	states := make([]State, 0, len(r.breaker))
	for _, e := range r.breaker {
		states = append(states, e.To)
	}
	return states
}

// fakeClock 手动推进的时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 7, 22, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
