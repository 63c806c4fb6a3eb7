package kling

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/klingflow/llm/image"
	"github.com/BaSui01/klingflow/types"
)

// generation 是一次 Generate 调用的状态，不在调用之间共享.
type generation struct {
	c       *Client
	id      string
	stage   Stage
	taskID  string
	model   string
	started time.Time
	logger  *zap.Logger
}

func (c *Client) newGeneration() *generation {
	id := uuid.NewString()
	return &generation{
		c:       c,
		id:      id,
		stage:   StageIdle,
		started: time.Now(),
		logger:  c.logger.With(zap.String("generation_id", id)),
	}
}

// advance 进入下一阶段.
func (g *generation) advance(to Stage) {
	g.c.recorder.RecordStageTransition(string(g.stage), string(to))
	g.logger.Debug("generation stage",
		zap.String("from", string(g.stage)),
		zap.String("to", string(to)),
	)
	g.stage = to
}

// fail 进入 errored 并记录唯一一条汇总日志，原样返回 err.
func (g *generation) fail(span trace.Span, err error) error {
	failedAt := g.stage
	g.c.recorder.RecordStageTransition(string(g.stage), string(StageErrored))
	g.stage = StageErrored

	g.logger.Error("generation failed",
		zap.String("stage", string(failedAt)),
		zap.String("task_id", g.taskID),
		zap.String("model", g.model),
		zap.String("error_code", string(types.GetErrorCode(err))),
		zap.Error(err),
	)
	g.c.recorder.RecordGeneration(g.model, "error", time.Since(g.started), 0)

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String("kling.failed_stage", string(failedAt)))
	return err
}

// step 在子 span 中执行一个阶段.
func step[T any](ctx context.Context, g *generation, name string, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := g.c.tracer.Start(ctx, "kling."+name)
	defer span.End()
	v, err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return v, err
}

func (g *generation) run(ctx context.Context, creds Credentials, req *image.GenerateRequest) (*image.Batch, error) {
	ctx = types.WithGenerationID(ctx, g.id)
	ctx, span := g.c.tracer.Start(ctx, "kling.generate",
		trace.WithAttributes(attribute.String("generation.id", g.id)))
	defer span.End()

	if req != nil {
		g.model = req.Model
	}

	// 密钥校验必须先于任何网络调用
	if err := creds.Validate(); err != nil {
		return nil, g.fail(span, err)
	}
	if req == nil {
		return nil, g.fail(span, types.NewError(types.ErrInvalidRequest, "request is nil"))
	}
	effective := req.WithDefaults()
	g.model = effective.Model
	if err := effective.Validate(); err != nil {
		return nil, g.fail(span, err)
	}
	if effective.Seed == 0 {
		effective.Seed = g.c.seed()
	}
	g.advance(StageCredentialsChecked)

	span.SetAttributes(
		attribute.String("kling.model", effective.Model),
		attribute.Int("kling.n", effective.N),
		attribute.Int64("kling.seed", effective.Seed),
		attribute.String("kling.aspect_ratio", effective.AspectRatio),
	)
	g.logger.Info("generation started",
		zap.String("model", effective.Model),
		zap.Int("n", effective.N),
		zap.Int64("seed", effective.Seed),
		zap.String("aspect_ratio", effective.AspectRatio),
	)

	token, err := SignToken(creds, g.c.now())
	if err != nil {
		return nil, g.fail(span, err)
	}
	g.advance(StageTokenIssued)

	handle, err := step(ctx, g, "submit", func(ctx context.Context) (*JobHandle, error) {
		return g.c.Submit(ctx, token, effective)
	})
	if err != nil {
		return nil, g.fail(span, err)
	}
	g.taskID = handle.TaskID
	span.SetAttributes(attribute.String("kling.task_id", handle.TaskID))
	g.advance(StageSubmitted)

	g.advance(StagePolling)
	result, err := step(ctx, g, "poll", func(ctx context.Context) (*TaskResult, error) {
		return g.c.Poll(ctx, token, handle)
	})
	if err != nil {
		return nil, g.fail(span, err)
	}

	g.advance(StageFetching)
	batch, err := step(ctx, g, "fetch", func(ctx context.Context) (*image.Batch, error) {
		return g.c.Fetch(ctx, result, effective.N)
	})
	if err != nil {
		return nil, g.fail(span, err)
	}
	batch.Seed = effective.Seed
	g.advance(StageDone)

	elapsed := time.Since(g.started)
	g.c.recorder.RecordGeneration(g.model, "success", elapsed, batch.N)
	g.logger.Info("generation completed",
		zap.String("task_id", g.taskID),
		zap.Int("images", batch.N),
		zap.Int("width", batch.Width),
		zap.Int("height", batch.Height),
		zap.Duration("elapsed", elapsed),
	)
	span.SetStatus(codes.Ok, "")
	return batch, nil
}
