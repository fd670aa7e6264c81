package resilience

import (
	"sync"
	"time"

	"github.com/hewenyu/contentmesh/internal/failure"
)

// State 熔断器状态
type State int

const (
	StateClosed   State = iota // 正常放行
	StateOpen                  // 快速失败
	StateHalfOpen              // 允许一次试探请求
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker 连续失败熔断器
// 同一下游目标的所有调用必须共享同一个实例
type Breaker struct {
	mu sync.Mutex

	target        string
	threshold     int
	breakDuration time.Duration
	observer      Observer

	state               State
	consecutiveFailures int
	openedAt            time.Time
	trialInFlight       bool

	nowFn func() time.Time
}

// NewBreaker 创建熔断器
// threshold: 连续瞬时失败多少次后打开
// breakDuration: 打开状态持续时间
func NewBreaker(target string, threshold int, breakDuration time.Duration, observer Observer) *Breaker {
	if threshold <= 0 {
		threshold = 2
	}
	if breakDuration <= 0 {
		breakDuration = 30 * time.Second
	}
	if observer == nil {
		observer = NoopObserver{}
	}
	return &Breaker{
		target:        target,
		threshold:     threshold,
		breakDuration: breakDuration,
		observer:      observer,
		state:         StateClosed,
	}
}

// State 返回当前状态
func (b *Breaker) State() State {
	b.mu.Lock()
	state, events := b.currentLocked()
	b.mu.Unlock()

	b.emit(events)
	return state
}

// ConsecutiveFailures 返回当前连续失败次数
func (b *Breaker) ConsecutiveFailures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.consecutiveFailures
}

// Allow 判断是否允许发起请求
// 打开状态或半开状态下已有试探请求时返回CircuitOpen错误
func (b *Breaker) Allow() error {
	b.mu.Lock()
	state, events := b.currentLocked()

	var err error
	switch state {
	case StateOpen:
		remaining := b.breakDuration - b.now().Sub(b.openedAt)
		err = failure.Newf(failure.CircuitOpen, b.target, "熔断器已打开，%s后允许试探", remaining.Round(time.Millisecond))
	case StateHalfOpen:
		if b.trialInFlight {
			err = failure.Newf(failure.CircuitOpen, b.target, "熔断器半开，试探请求进行中")
		} else {
			b.trialInFlight = true
		}
	}
	b.mu.Unlock()

	b.emit(events)
	return err
}

// Record 记录一次已放行请求的结果
// 只有瞬时错误计入失败；超时放弃或未归类的请求只释放试探名额
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	state, events := b.currentLocked()

	switch {
	case failure.IsTransient(err):
		switch state {
		case StateClosed:
			b.consecutiveFailures++
			if b.consecutiveFailures >= b.threshold {
				events = append(events, b.transitionLocked(StateOpen, err))
			}
		case StateHalfOpen:
			events = append(events, b.transitionLocked(StateOpen, err))
		}
	case failure.IsTimeout(err), err != nil && failure.KindOf(err) == failure.Unexpected:
		if state == StateHalfOpen {
			b.trialInFlight = false
		}
	default:
		switch state {
		case StateClosed:
			b.consecutiveFailures = 0
		case StateHalfOpen:
			events = append(events, b.transitionLocked(StateClosed, nil))
		}
	}
	b.mu.Unlock()

	b.emit(events)
}

// SetClock 替换时钟，主要用于测试
func (b *Breaker) SetClock(f func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nowFn = f
}

// currentLocked 在打开时长结束后转入半开状态
func (b *Breaker) currentLocked() (State, []BreakerEvent) {
	var events []BreakerEvent
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.breakDuration {
		events = append(events, b.transitionLocked(StateHalfOpen, nil))
	}
	return b.state, events
}

func (b *Breaker) transitionLocked(to State, cause error) BreakerEvent {
	from := b.state
	b.state = to
	switch to {
	case StateClosed:
		b.consecutiveFailures = 0
		b.trialInFlight = false
	case StateOpen:
		b.openedAt = b.now()
		b.consecutiveFailures = 0
		b.trialInFlight = false
	case StateHalfOpen:
		b.trialInFlight = false
	}
	return BreakerEvent{
		Target:        b.target,
		From:          from,
		To:            to,
		BreakDuration: b.breakDuration,
		Cause:         cause,
	}
}

func (b *Breaker) emit(events []BreakerEvent) {
	for _, e := range events {
		b.observer.OnBreakerStateChange(e)
	}
}

func (b *Breaker) now() time.Time {
	if b.nowFn != nil {
		return b.nowFn()
	}
	return time.Now()
}
