package resilience

import (
	"github.com/hewenyu/contentmesh/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// LogObserver 将策略事件写入日志
type LogObserver struct {
	logger config.Logger
}

// NewLogObserver 创建日志观察者
func NewLogObserver(logger config.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

func (o *LogObserver) OnRetry(e RetryEvent) {
	o.logger.Warn("出站调用失败，准备重试",
		zap.String("op", e.Op),
		zap.Int("retry_attempt", e.Attempt),
		zap.Float64("delay_seconds", e.Delay.Seconds()),
		zap.String("reason", causeString(e.Cause)))
}

func (o *LogObserver) OnBreakerStateChange(e BreakerEvent) {
	fields := []zap.Field{
		zap.String("target", e.Target),
		zap.String("from", e.From.String()),
		zap.String("to", e.To.String()),
	}
	switch e.To {
	case StateOpen:
		o.logger.Warn("熔断器已打开", append(fields,
			zap.Float64("duration_seconds", e.BreakDuration.Seconds()),
			zap.String("reason", causeString(e.Cause)))...)
	case StateClosed:
		o.logger.Info("熔断器已重置", fields...)
	default:
		o.logger.Info("熔断器进入半开状态", fields...)
	}
}

func (o *LogObserver) OnTimeout(e TimeoutEvent) {
	o.logger.Warn("出站调用超时",
		zap.String("op", e.Op),
		zap.Float64("timeout_seconds", e.Timeout.Seconds()),
		zap.Duration("elapsed", e.Elapsed),
		zap.Int("attempt", e.Attempt),
		zap.String("reason", causeString(e.Cause)))
}

// MetricsObserver 将策略事件导出为Prometheus指标
type MetricsObserver struct {
	retries     *prometheus.CounterVec
	transitions *prometheus.CounterVec
	state       *prometheus.GaugeVec
	timeouts    *prometheus.CounterVec
}

// NewMetricsObserver 在reg上注册策略指标
func NewMetricsObserver(reg prometheus.Registerer) *MetricsObserver {
	factory := promauto.With(reg)
	return &MetricsObserver{
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "contentmesh",
			Subsystem: "resilience",
			Name:      "retries_total",
			Help:      "Total retries of outbound calls",
		}, []string{"op"}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "contentmesh",
			Subsystem: "resilience",
			Name:      "breaker_transitions_total",
			Help:      "Total circuit breaker state transitions",
		}, []string{"target", "to"}),
		state: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "contentmesh",
			Subsystem: "resilience",
			Name:      "breaker_state",
			Help:      "Current circuit breaker state (0 closed, 1 open, 2 half-open)",
		}, []string{"target"}),
		timeouts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "contentmesh",
			Subsystem: "resilience",
			Name:      "timeouts_total",
			Help:      "Total outbound calls aborted by the aggregate timeout",
		}, []string{"op"}),
	}
}

func (m *MetricsObserver) OnRetry(e RetryEvent) {
	m.retries.WithLabelValues(e.Op).Inc()
}

func (m *MetricsObserver) OnBreakerStateChange(e BreakerEvent) {
	m.transitions.WithLabelValues(e.Target, e.To.String()).Inc()
	m.state.WithLabelValues(e.Target).Set(float64(e.To))
}

func (m *MetricsObserver) OnTimeout(e TimeoutEvent) {
	m.timeouts.WithLabelValues(e.Op).Inc()
}
