package resilience

import (
	"time"
)

// RetryPolicy 指数退避重试策略
type RetryPolicy struct {
	MaxRetries  int           // 最大重试次数，总尝试次数最多为MaxRetries+1
	BackoffBase time.Duration // 退避基数
}

// Delay 返回第n次重试（从1开始）前的等待时间: BackoffBase * 2^n
func (r RetryPolicy) Delay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	return r.BackoffBase * time.Duration(1<<uint(n))
}
