package kling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/klingflow/llm/retry"
	"github.com/BaSui01/klingflow/types"
)

// 只有这两类结果会让轮询继续.
var (
	errTaskPending   = errors.New("task not finished")
	errPollTransport = errors.New("poll transport error")
)

// Poll 查询任务状态直到 succeed / failed 或尝试次数耗尽.
// 全程使用提交时的 token。传输错误记日志后重试并消耗一次尝试，
// 服务端拒绝（非 200 或 code != 0）立即失败.
func (c *Client) Poll(ctx context.Context, token *SignedToken, handle *JobHandle) (*TaskResult, error) {
	pollURL := c.endpoint() + "/" + url.PathEscape(handle.TaskID)
	maxAttempts := max(c.pollCfg.MaxAttempts, 1)

	policy := retry.PollPolicy(maxAttempts, c.pollCfg.InitialInterval, c.pollCfg.MaxInterval, c.pollCfg.Multiplier)
	policy.RetryableErrors = []error{errTaskPending, errPollTransport}
	policy.OnRetry = func(attempt int, err error, delay time.Duration) {
		if errors.Is(err, errPollTransport) {
			c.logger.Warn("poll transport error, retrying",
				zap.String("task_id", handle.TaskID),
				zap.String("attempt", fmt.Sprintf("%d/%d", attempt, maxAttempts)),
				zap.Duration("next_in", delay),
				zap.Error(err),
			)
		}
	}
	retryer := retry.NewBackoffRetryer(policy, c.logger)

	var (
		lastStatus TaskStatus
		started    = time.Now()
	)

	result, err := retry.Do(ctx, retryer, func(attempt int) (*TaskResult, error) {
		if !token.Valid(c.now()) {
			c.logger.Warn("poll token outside validity window",
				zap.String("task_id", handle.TaskID),
				zap.Int("attempt", attempt),
				zap.Time("expires_at", token.ExpiresAt),
			)
		}

		status, body, err := c.doAPI(ctx, http.MethodGet, pollURL, token, nil, c.cfg.PollTimeout)
		if err != nil {
			if !types.IsCode(err, types.ErrTransport) {
				if types.IsCode(err, types.ErrServiceError) {
					c.recorder.RecordPollAttempt(pollOutcomeRejected)
				}
				return nil, err
			}
			c.recorder.RecordPollAttempt(pollOutcomeTransport)
			return nil, fmt.Errorf("%w: %w", errPollTransport, err)
		}

		data, err := ValidateResponse(status, body)
		if err != nil {
			c.recorder.RecordPollAttempt(pollOutcomeRejected)
			return nil, err
		}

		var task TaskResult
		if err := json.Unmarshal(data, &task); err != nil {
			c.recorder.RecordPollAttempt(pollOutcomeRejected)
			return nil, types.NewError(types.ErrServiceError, "malformed task data").
				WithCause(err).
				WithHTTPStatus(status).
				WithProvider(providerName)
		}

		if task.Status != lastStatus {
			c.logger.Info("task status changed",
				zap.String("task_id", handle.TaskID),
				zap.String("task_status", string(task.Status)),
				zap.Duration("elapsed", time.Since(started).Truncate(time.Second)),
			)
			c.recorder.RecordTaskStatusChange(string(task.Status))
			lastStatus = task.Status
		}

		switch task.Status {
		case StatusSucceed:
			c.recorder.RecordPollAttempt(pollOutcomeSucceed)
			return &task, nil
		case StatusFailed:
			c.recorder.RecordPollAttempt(pollOutcomeFailed)
			msg := task.StatusMsg
			if msg == "" {
				msg = "task failed"
			}
			return nil, types.NewError(types.ErrTaskFailed, msg).WithProvider(providerName)
		}

		c.recorder.RecordPollAttempt(pollOutcomePending)
		return nil, errTaskPending
	})
	if err != nil {
		if errors.Is(err, retry.ErrRetriesExhausted) {
			return nil, types.Errorf(types.ErrPollTimeout, "task %s not finished after %d attempts", handle.TaskID, maxAttempts).
				WithCause(err).
				WithProvider(providerName)
		}
		return nil, err
	}
	return result, nil
}
