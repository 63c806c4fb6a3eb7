package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/klingflow/internal/telemetry"
	"github.com/BaSui01/klingflow/llm/image"
	"github.com/BaSui01/klingflow/llm/image/kling"
	"github.com/BaSui01/klingflow/nodes"
	"github.com/BaSui01/klingflow/types"
)

// generateOptions 是 generate 命令的参数
type generateOptions struct {
	Prompt         string
	NegativePrompt string
	Model          string
	AspectRatio    string
	N              int
	Seed           int64
	Fidelity       float64
	AccessKey      string
	SecretKey      string
	OutDir         string
	Prefix         string
}

// params 转换为节点参数
func (o generateOptions) params() nodes.Params {
	return nodes.Params{
		"model_name":      o.Model,
		"prompt":          o.Prompt,
		"negative_prompt": o.NegativePrompt,
		"aspect_ratio":    o.AspectRatio,
		"batch_size":      int64(o.N),
		"seed":            o.Seed,
		"access_key":      o.AccessKey,
		"secret_key":      o.SecretKey,
		"image_fidelity":  o.Fidelity,
	}
}

func parseGenerateFlags(args []string, stderr io.Writer) (generateOptions, string, time.Duration, error) {
	var opts generateOptions
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to config file")
	timeout := fs.Duration("timeout", 0, "Overall deadline, 0 disables it")
	fs.StringVar(&opts.Prompt, "prompt", "", "Prompt")
	fs.StringVar(&opts.NegativePrompt, "negative-prompt", "", "Negative prompt")
	fs.StringVar(&opts.Model, "model", image.DefaultModel, "Model name")
	fs.StringVar(&opts.AspectRatio, "aspect-ratio", image.DefaultAspectRatio, "Aspect ratio")
	fs.IntVar(&opts.N, "n", 1, "Number of images")
	fs.Int64Var(&opts.Seed, "seed", 0, "Seed, 0 picks a random one")
	fs.Float64Var(&opts.Fidelity, "fidelity", image.DefaultImageFidelity, "Image fidelity")
	fs.StringVar(&opts.AccessKey, "access-key", "", "Access key")
	fs.StringVar(&opts.SecretKey, "secret-key", "", "Secret key")
	fs.StringVar(&opts.OutDir, "out", ".", "Output directory")
	fs.StringVar(&opts.Prefix, "prefix", "kling", "Output file prefix")
	if err := fs.Parse(args); err != nil {
		return opts, "", 0, err
	}
	return opts, *configPath, *timeout, nil
}

// runGenerate 执行 generate 命令，返回进程退出码
func runGenerate(args []string) int {
	opts, configPath, timeout, err := parseGenerateFlags(args, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	otelProviders, err := telemetry.Init(cfg.Telemetry, telemetry.RoleGenerate, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = otelProviders.Shutdown(shutdownCtx)
	}()

	client := kling.NewClient(cfg.Kling, cfg.Poll, logger,
		kling.WithTracerProvider(otelProviders.TracerProvider()),
	)
	deps := nodes.Deps{
		Generator:          client,
		DefaultCredentials: kling.Credentials{AccessKey: cfg.Kling.AccessKey, SecretKey: cfg.Kling.SecretKey},
		Logger:             logger,
	}

	ctx, stop := signalContext(context.Background())
	defer stop()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	files, err := generate(ctx, nodes.DefaultRegistry(), deps, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation failed: %v\n", err)
		if types.IsCode(err, types.ErrInvalidRequest) || types.IsCode(err, types.ErrInvalidCredentials) {
			return 2
		}
		return 1
	}
	for _, f := range files {
		fmt.Println(f)
	}
	return 0
}

// generate 调用文生图节点并把每张图写为 PNG，返回写入的文件路径
func generate(ctx context.Context, registry *nodes.Registry, deps nodes.Deps, opts generateOptions) ([]string, error) {
	node, err := registry.Build(nodes.KlingText2ImageName, deps)
	if err != nil {
		return nil, err
	}

	batch, err := node.Invoke(ctx, opts.params())
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	files := make([]string, 0, batch.N)
	for i := 0; i < batch.N; i++ {
		data, err := batch.EncodePNG(i)
		if err != nil {
			return files, err
		}
		path := filepath.Join(opts.OutDir, fmt.Sprintf("%s_%d_%02d.png", opts.Prefix, batch.Seed, i))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return files, fmt.Errorf("write %s: %w", path, err)
		}
		files = append(files, path)
	}
	return files, nil
}
