package retry

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Do 执行 fn，失败时按策略重试。fn 收到从 1 开始的尝试序号。
//
// 不可重试的错误立即返回；context 取消时返回包装后的 ctx.Err()；
// 所有尝试都以可重试错误结束时返回包装了 ErrRetriesExhausted 和最后一个错误的错误。
//
//	task, err := retry.Do(ctx, r, func(attempt int) (*Task, error) {
//	    return fetchTask(ctx)
//	})
func Do[T any](ctx context.Context, r *Retryer, fn func(attempt int) (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)

	attempts := r.policy.Attempts()
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := r.wait(ctx, attempt-1, lastErr); err != nil {
				return zero, fmt.Errorf("重试被取消: %w", err)
			}
		}

		result, err := fn(attempt)
		if err == nil {
			if attempt > 1 {
				r.logger.Debug("重试成功", zap.Int("attempt", attempt))
			}
			return result, nil
		}
		lastErr = err

		if !r.isRetryable(err) {
			return zero, err
		}
	}

	r.logger.Warn("重试次数耗尽",
		zap.Int("attempts", attempts),
		zap.Error(lastErr),
	)
	return zero, fmt.Errorf("%w: %d 次尝试后仍失败: %w", ErrRetriesExhausted, attempts, lastErr)
}
