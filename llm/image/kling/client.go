package kling

import (
	"context"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/klingflow/config"
	"github.com/BaSui01/klingflow/llm/image"
)

const (
	createEndpoint = "/images/generations"
	tracerName     = "klingflow/kling"
)

// Client 是文生图服务客户端.
// 只持有不可变配置与共享资源，每次 Generate 的 token、任务与图片都属于该次调用，
// 因此可以被多个 goroutine 同时使用.
type Client struct {
	cfg        config.KlingConfig
	pollCfg    config.PollConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
	recorder   Recorder
	tracer     trace.Tracer
	now        func() time.Time
	seed       func() int64
}

// Option 配置 Client.
type Option func(*Client)

// WithHTTPClient 替换出站 HTTP 客户端.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRecorder 设置指标记录器.
func WithRecorder(r Recorder) Option {
	return func(c *Client) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithTracerProvider 使用指定的 TracerProvider 替代全局 provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		if tp != nil {
			c.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithClock 替换签发 token 使用的时钟.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithSeedSource 替换 seed 为 0 时的随机种子来源.
func WithSeedSource(seed func() int64) Option {
	return func(c *Client) {
		if seed != nil {
			c.seed = seed
		}
	}
}

// NewClient 创建客户端.
func NewClient(cfg config.KlingConfig, pollCfg config.PollConfig, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "kling"))
	cfg, pollCfg = withDefaults(cfg, pollCfg)

	c := &Client{
		cfg:      cfg,
		pollCfg:  pollCfg,
		logger:   logger,
		recorder: nopRecorder{},
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
		seed:     randomSeed,
	}
	if cfg.RateLimitRPS > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), max(cfg.RateLimitBurst, 1))
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = newHTTPClient(cfg, logger)
	}
	return c
}

// withDefaults 用默认值补齐未设置的字段.
func withDefaults(cfg config.KlingConfig, pollCfg config.PollConfig) (config.KlingConfig, config.PollConfig) {
	def := config.DefaultKlingConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = def.SubmitTimeout
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = def.PollTimeout
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = def.DownloadTimeout
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = def.MaxImageBytes
	}

	defPoll := config.DefaultPollConfig()
	if pollCfg.MaxAttempts <= 0 {
		pollCfg.MaxAttempts = defPoll.MaxAttempts
	}
	if pollCfg.InitialInterval <= 0 {
		pollCfg.InitialInterval = defPoll.InitialInterval
	}
	if pollCfg.Multiplier < 1 {
		pollCfg.Multiplier = defPoll.Multiplier
	}
	if pollCfg.MaxInterval < pollCfg.InitialInterval {
		pollCfg.MaxInterval = max(defPoll.MaxInterval, pollCfg.InitialInterval)
	}
	return cfg, pollCfg
}

// endpoint 返回创建任务的 URL.
func (c *Client) endpoint() string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + createEndpoint
}

// randomSeed 返回 [1, MaxSeed] 内均匀分布的种子.
func randomSeed() int64 {
	return rand.Int64N(image.MaxSeed) + 1
}

// Generate 执行一次完整的文生图调用：校验 → 签发 token → 提交 → 轮询 → 下载.
// 失败时返回出错组件的原始错误.
func (c *Client) Generate(ctx context.Context, creds Credentials, req *image.GenerateRequest) (*image.Batch, error) {
	g := c.newGeneration()
	return g.run(ctx, creds, req)
}
