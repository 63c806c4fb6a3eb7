package retry

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"
)

// ErrRetriesExhausted 在所有尝试都以可重试错误结束时返回，
// 调用方用 errors.Is 区分"预算耗尽"与"不可重试的失败"。
var ErrRetriesExhausted = errors.New("retries exhausted")

// RetryPolicy 定义重试策略配置
type RetryPolicy struct {
	MaxRetries      int                                               // 最大重试次数（0 表示只执行一次）
	InitialDelay    time.Duration                                     // 第一次失败后的等待时间
	MaxDelay        time.Duration                                     // 等待时间上限
	Multiplier      float64                                           // 指数退避倍增因子
	RetryableErrors []error                                           // 可重试的错误（为空则重试所有错误）
	OnRetry         func(attempt int, err error, delay time.Duration) // 第 attempt 次失败、即将等待 delay 时调用
}

// PollPolicy 返回任务轮询策略：共 maxAttempts 次尝试，
// 第 n 次尝试后等待 min(initial*multiplier^(n-1), max)，不加抖动。
func PollPolicy(maxAttempts int, initial, max time.Duration, multiplier float64) *RetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RetryPolicy{
		MaxRetries:   maxAttempts - 1,
		InitialDelay: initial,
		MaxDelay:     max,
		Multiplier:   multiplier,
	}
}

// Attempts 返回总尝试次数.
func (p *RetryPolicy) Attempts() int {
	return p.MaxRetries + 1
}

// Delay 返回第 attempt 次失败后的等待时间（attempt 从 1 开始）。
func (p *RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	return time.Duration(delay)
}

// Retryer 按 RetryPolicy 重复执行一个操作，配合 Do 使用.
type Retryer struct {
	policy RetryPolicy
	logger *zap.Logger
}

// NewBackoffRetryer 创建指数退避重试器。policy 会被复制并规范化，
// 调用方之后对它的修改不影响重试器。
func NewBackoffRetryer(policy *RetryPolicy, logger *zap.Logger) *Retryer {
	if policy == nil {
		policy = PollPolicy(1, time.Second, time.Second, 1)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := *policy
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.InitialDelay < 0 {
		p.InitialDelay = 0
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay
	}
	if p.Multiplier < 1.0 {
		p.Multiplier = 1.0
	}

	return &Retryer{policy: p, logger: logger}
}

// isRetryable 检查错误是否可重试
func (r *Retryer) isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if len(r.policy.RetryableErrors) == 0 {
		return true
	}
	for _, retryableErr := range r.policy.RetryableErrors {
		if errors.Is(err, retryableErr) {
			return true
		}
	}
	return false
}

// wait 在第 attempt 次失败后等待，期间监听 context 取消
func (r *Retryer) wait(ctx context.Context, attempt int, lastErr error) error {
	delay := r.policy.Delay(attempt)

	r.logger.Debug("重试中",
		zap.Int("attempt", attempt),
		zap.Int("max_attempts", r.policy.Attempts()),
		zap.Duration("delay", delay),
		zap.Error(lastErr),
	)
	if r.policy.OnRetry != nil {
		r.policy.OnRetry(attempt, lastErr, delay)
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
