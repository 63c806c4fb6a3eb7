package nodes

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/klingflow/llm/image"
	"github.com/BaSui01/klingflow/llm/image/kling"
	"github.com/BaSui01/klingflow/types"
)

// KlingText2ImageName 是内置文生图节点的注册名.
const KlingText2ImageName = "Kling_v1_5_T2I"

// CategoryKling 节点分类.
const CategoryKling = "KlingAI"

func klingText2ImageRegistration() Registration {
	return Registration{
		Name:        KlingText2ImageName,
		DisplayName: "🔥 Kling Text2Image",
		Category:    CategoryKling,
		Description: "Generate images from a text prompt with the Kling image API",
		Schema:      KlingText2ImageSchema,
		New: func(d Deps) Node {
			return newKlingText2Image(d)
		},
	}
}

// KlingText2ImageSchema 返回文生图节点的参数声明.
func KlingText2ImageSchema() *Schema {
	return &Schema{
		Required: []Param{
			{Name: "model_name", Kind: KindEnum, Options: image.SupportedModels(), Default: image.DefaultModel},
			{Name: "prompt", Kind: KindString, Multiline: true, Default: ""},
			{Name: "negative_prompt", Kind: KindString, Multiline: true, Default: ""},
			{Name: "aspect_ratio", Kind: KindEnum, Options: image.SupportedAspectRatios(), Default: image.DefaultAspectRatio},
			{Name: "batch_size", Kind: KindInt, Min: bound(image.MinBatchSize), Max: bound(image.MaxBatchSize), Default: int64(1)},
			{Name: "access_key", Kind: KindString, Default: ""},
			{Name: "secret_key", Kind: KindString, Password: true, Default: ""},
			{Name: "seed", Kind: KindInt, Min: bound(0), Max: bound(image.MaxSeed), Default: int64(0)},
		},
		Optional: []Param{
			{Name: "image_fidelity", Kind: KindFloat, Min: bound(0), Max: bound(1), Default: image.DefaultImageFidelity},
		},
		ReturnTypes: []string{"IMAGE"},
		ReturnNames: []string{"images"},
	}
}

type klingText2Image struct {
	gen      Generator
	defaults kling.Credentials
	logger   *zap.Logger
}

func newKlingText2Image(d Deps) *klingText2Image {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &klingText2Image{
		gen:      d.Generator,
		defaults: d.DefaultCredentials,
		logger:   logger.With(zap.String("node", KlingText2ImageName)),
	}
}

func (n *klingText2Image) Schema() *Schema {
	return KlingText2ImageSchema()
}

// Invoke 规范化参数后调用生成器.
// 参数中的密钥为空时回退到配置的默认密钥.
func (n *klingText2Image) Invoke(ctx context.Context, params Params) (*image.Batch, error) {
	if n.gen == nil {
		return nil, types.NewError(types.ErrInternalError, "node has no generator")
	}
	p, err := n.Schema().Apply(params)
	if err != nil {
		return nil, err
	}

	creds := kling.Credentials{AccessKey: p.String("access_key"), SecretKey: p.String("secret_key")}
	if strings.TrimSpace(creds.AccessKey) == "" {
		creds.AccessKey = n.defaults.AccessKey
	}
	if strings.TrimSpace(creds.SecretKey) == "" {
		creds.SecretKey = n.defaults.SecretKey
	}

	req := &image.GenerateRequest{
		Model:          p.String("model_name"),
		Prompt:         p.String("prompt"),
		NegativePrompt: p.String("negative_prompt"),
		AspectRatio:    p.String("aspect_ratio"),
		N:              int(p.Int("batch_size")),
		Seed:           p.Int("seed"),
		ImageFidelity:  p.Float("image_fidelity"),
	}

	n.logger.Debug("invoking node",
		zap.String("model", req.Model),
		zap.Int("batch_size", req.N),
		zap.Int64("seed", req.Seed),
	)
	return n.gen.Generate(ctx, creds, req)
}
