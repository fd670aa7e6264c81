package resilience

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/hewenyu/contentmesh/internal/failure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transientErr() error {
	return failure.FromStatus("notify", http.StatusServiceUnavailable)
}

func TestBreakerOpensAfterConsecutiveTransientFailures(t *testing.T) {
	obs := &recordingObserver{}
	b := NewBreaker("userservice", 2, 30*time.Second, obs)

	require.NoError(t, b.Allow())
	b.Record(transientErr())
	assert.Equal(t, StateClosed, b.State(), "一次失败不应打开熔断器")

	require.NoError(t, b.Allow())
	b.Record(transientErr())
	assert.Equal(t, StateOpen, b.State(), "连续两次瞬时失败应打开熔断器")

	err := b.Allow()
	require.Error(t, err)
	assert.True(t, failure.IsCircuitOpen(err))
	assert.Equal(t, []State{StateOpen}, obs.transitions())
	assert.NotNil(t, obs.breaker[0].Cause, "打开事件应携带失败原因")
	assert.Equal(t, 30*time.Second, obs.breaker[0].BreakDuration)
}

func TestBreakerNonTransientResetsCounter(t *testing.T) {
	b := NewBreaker("userservice", 2, 30*time.Second, nil)

	b.Record(transientErr())
	b.Record(failure.FromStatus("notify", http.StatusBadRequest))
	assert.Equal(t, 0, b.ConsecutiveFailures(), "永久错误不计入失败并重置计数")

	b.Record(transientErr())
	assert.Equal(t, StateClosed, b.State(), "失败不连续时不应打开")

	b.Record(nil)
	assert.Equal(t, 0, b.ConsecutiveFailures())
}

func TestBreakerHalfOpenTrial(t *testing.T) {
	clock := newFakeClock()
	obs := &recordingObserver{}
	b := NewBreaker("userservice", 2, 30*time.Second, obs)
	b.SetClock(clock.Now)

	b.Record(transientErr())
	b.Record(transientErr())
	require.Equal(t, StateOpen, b.State())

	// 打开窗口内：5秒后依然快速失败
	clock.Advance(5 * time.Second)
	assert.True(t, failure.IsCircuitOpen(b.Allow()), "熔断窗口内应快速失败")

	// 31秒后：允许一次试探
	clock.Advance(26 * time.Second)
	require.NoError(t, b.Allow(), "熔断时长结束后应允许试探请求")
	assert.Equal(t, StateHalfOpen, b.State())
	assert.True(t, failure.IsCircuitOpen(b.Allow()), "试探进行中时其他请求应被拒绝")

	b.Record(nil)
	assert.Equal(t, StateClosed, b.State(), "试探成功应关闭熔断器")
	assert.Equal(t, []State{StateOpen, StateHalfOpen, StateClosed}, obs.transitions())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	clock := newFakeClock()
	b := NewBreaker("userservice", 2, 30*time.Second, nil)
	b.SetClock(clock.Now)

	b.Record(transientErr())
	b.Record(transientErr())
	clock.Advance(30 * time.Second)

	require.NoError(t, b.Allow())
	b.Record(transientErr())
	assert.Equal(t, StateOpen, b.State(), "试探失败应重新打开")

	// 熔断计时重新开始
	clock.Advance(29 * time.Second)
	assert.True(t, failure.IsCircuitOpen(b.Allow()))
	clock.Advance(time.Second)
	assert.NoError(t, b.Allow())
}

func TestBreakerTimeoutReleasesTrial(t *testing.T) {
	clock := newFakeClock()
	b := NewBreaker("userservice", 1, time.Second, nil)
	b.SetClock(clock.Now)

	b.Record(transientErr())
	clock.Advance(time.Second)

	require.NoError(t, b.Allow())
	b.Record(failure.New(failure.Timeout, "notify", nil))
	assert.Equal(t, StateHalfOpen, b.State(), "超时放弃的试探不改变状态")
	assert.NoError(t, b.Allow(), "试探名额应被释放")
}

func TestBreakerConcurrentFailuresTripOnce(t *testing.T) {
	obs := &recordingObserver{}
	b := NewBreaker("userservice", 2, time.Minute, obs)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Record(transientErr())
		}()
	}
	wg.Wait()

	assert.Equal(t, StateOpen, b.State())
	assert.Equal(t, []State{StateOpen}, obs.transitions(), "并发失败只应触发一次打开")
}

func TestRetryPolicyDelay(t *testing.T) {
	p := RetryPolicy{MaxRetries: 3, BackoffBase: time.Second}
	assert.Equal(t, 2*time.Second, p.Delay(1))
	assert.Equal(t, 4*time.Second, p.Delay(2))
	assert.Equal(t, 8*time.Second, p.Delay(3))
}
