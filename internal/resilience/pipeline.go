package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hewenyu/contentmesh/internal/failure"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("contentmesh/resilience")

// Call 一次出站请求，必须返回failure.Error分类的错误
type Call func(ctx context.Context) error

// Options 策略管道配置
type Options struct {
	Timeout time.Duration // 整体超时，覆盖全部尝试和退避
	Retry   RetryPolicy
}

// Pipeline 组合超时、重试和熔断的策略管道
// 嵌套顺序：超时（最外层）-> 重试 -> 熔断（最内层）
type Pipeline struct {
	timeout  time.Duration
	retry    RetryPolicy
	breaker  *Breaker
	observer Observer
}

// NewPipeline 创建策略管道
// breaker由调用方构造并注入，访问同一下游目标的调用方共享同一个管道
func NewPipeline(opts Options, breaker *Breaker, observer Observer) *Pipeline {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Retry.BackoffBase <= 0 {
		opts.Retry.BackoffBase = time.Second
	}
	if observer == nil {
		observer = NoopObserver{}
	}
	return &Pipeline{
		timeout:  opts.Timeout,
		retry:    opts.Retry,
		breaker:  breaker,
		observer: observer,
	}
}

// Breaker 返回管道使用的熔断器
func (p *Pipeline) Breaker() *Breaker {
	return p.breaker
}

// Execute 在策略管道中执行call
// 超时预算作用于整个尝试序列，可能在重试用尽前到期。
// 调用方的取消信号不会传入出站调用，只保留上下文中的值。
func (p *Pipeline) Execute(ctx context.Context, op string, call Call) error {
	ctx, span := tracer.Start(ctx, "resilience.Execute")
	defer span.End()
	span.SetAttributes(attribute.String("op", op))

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	err := p.run(ctx, op, call, start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, failure.KindOf(err).String())
	}
	return err
}

func (p *Pipeline) run(ctx context.Context, op string, call Call, start time.Time) error {
	for attempt := 1; ; attempt++ {
		err := p.attempt(ctx, op, attempt, call)
		if err == nil {
			return nil
		}
		if failure.IsTimeout(err) {
			return p.timedOut(op, attempt, start, err)
		}
		if !failure.IsTransient(err) || attempt > p.retry.MaxRetries {
			return err
		}

		delay := p.retry.Delay(attempt)
		p.observer.OnRetry(RetryEvent{Op: op, Attempt: attempt, Delay: delay, Cause: err})
		trace.SpanFromContext(ctx).AddEvent("retry", trace.WithAttributes(
			attribute.Int("attempt", attempt),
			attribute.String("delay", delay.String()),
		))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return p.timedOut(op, attempt, start, err)
		case <-timer.C:
		}
	}
}

// attempt 经过熔断器执行一次请求
func (p *Pipeline) attempt(ctx context.Context, op string, attempt int, call Call) error {
	if err := p.breaker.Allow(); err != nil {
		return annotate(err, attempt)
	}

	err := call(ctx)
	if err != nil && ctx.Err() != nil {
		// 整体超时取消了正在进行的请求
		err = &failure.Error{Kind: failure.Timeout, Op: op, Err: err}
	} else if err != nil {
		var fe *failure.Error
		if !errors.As(err, &fe) {
			err = failure.NewUnexpected(op, err)
		}
	}

	p.breaker.Record(err)
	return annotate(err, attempt)
}

func (p *Pipeline) timedOut(op string, attempt int, start time.Time, cause error) error {
	elapsed := time.Since(start)
	p.observer.OnTimeout(TimeoutEvent{
		Op:      op,
		Timeout: p.timeout,
		Elapsed: elapsed,
		Attempt: attempt,
		Cause:   cause,
	})
	return &failure.Error{
		Kind:    failure.Timeout,
		Op:      op,
		Attempt: attempt,
		Err:     fmt.Errorf("超过整体超时%s: %w", p.timeout, cause),
	}
}

func annotate(err error, attempt int) error {
	var fe *failure.Error
	if errors.As(err, &fe) && fe.Attempt == 0 {
		fe.Attempt = attempt
	}
	return err
}
