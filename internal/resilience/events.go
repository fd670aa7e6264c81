package resilience

import (
	"time"
)

// RetryEvent 一次重试前发出的事件
type RetryEvent struct {
	Op      string        // 操作名称
	Attempt int           // 即将进行的第几次重试（从1开始）
	Delay   time.Duration // 重试前的退避时间
	Cause   error         // 触发重试的失败原因
}

// BreakerEvent 熔断器状态变化事件
type BreakerEvent struct {
	Target        string        // 下游目标
	From          State         // 变化前状态
	To            State         // 变化后状态
	BreakDuration time.Duration // 打开状态的持续时间
	Cause         error         // 触发打开的失败原因，其他变化时为nil
}

// TimeoutEvent 整体超时事件
type TimeoutEvent struct {
	Op      string        // 操作名称
	Timeout time.Duration // 超时预算
	Elapsed time.Duration // 实际耗时
	Attempt int           // 超时发生时所处的尝试次数
	Cause   error         // 超时前最后一次失败原因，可能为nil
}

// Observer 接收弹性策略的可观测事件
type Observer interface {
	OnRetry(e RetryEvent)
	OnBreakerStateChange(e BreakerEvent)
	OnTimeout(e TimeoutEvent)
}

// NoopObserver 忽略所有事件
type NoopObserver struct{}

func (NoopObserver) OnRetry(RetryEvent)                {}
func (NoopObserver) OnBreakerStateChange(BreakerEvent) {}
func (NoopObserver) OnTimeout(TimeoutEvent)            {}

// Observers 将事件分发给多个Observer
type Observers []Observer

func (o Observers) OnRetry(e RetryEvent) {
	for _, obs := range o {
		obs.OnRetry(e)
	}
}

func (o Observers) OnBreakerStateChange(e BreakerEvent) {
	for _, obs := range o {
		obs.OnBreakerStateChange(e)
	}
}

func (o Observers) OnTimeout(e TimeoutEvent) {
	for _, obs := range o {
		obs.OnTimeout(e)
	}
}

// causeString 返回失败原因的描述
func causeString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
