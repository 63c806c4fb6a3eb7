package kling

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/klingflow/llm/image"
	"github.com/BaSui01/klingflow/types"
)

// Submit 提交生成任务并返回任务标识.
// req.Seed 原样发送，seed 为 0 时的替换由 Generate 完成.
// 传输失败不重试.
func (c *Client) Submit(ctx context.Context, token *SignedToken, req *image.GenerateRequest) (*JobHandle, error) {
	payload, err := json.Marshal(createTaskRequest{
		ModelName:      req.Model,
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		AspectRatio:    req.AspectRatio,
		N:              req.N,
		Strength:       req.ImageFidelity,
		Seed:           req.Seed,
	})
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "failed to encode request").WithCause(err)
	}

	status, body, err := c.doAPI(ctx, http.MethodPost, c.endpoint(), token, payload, c.cfg.SubmitTimeout)
	if err != nil {
		return nil, err
	}
	data, err := ValidateResponse(status, body)
	if err != nil {
		return nil, err
	}

	var created createTaskData
	if err := json.Unmarshal(data, &created); err != nil || created.TaskID == "" {
		e := types.NewError(types.ErrServiceError, "response missing task_id").
			WithHTTPStatus(status).
			WithProvider(providerName)
		if err != nil {
			e = e.WithCause(err)
		}
		return nil, e
	}

	c.logger.Info("task submitted",
		zap.String("task_id", created.TaskID),
		zap.String("model_name", req.Model),
	)
	return &JobHandle{TaskID: created.TaskID}, nil
}
