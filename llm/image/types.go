// 包图像提供文生图请求模型与解码后的图像批次.
package image

import (
	"slices"
	"strings"

	"github.com/BaSui01/klingflow/types"
)

// 支持的模型名称.
const (
	ModelKlingV1   = "kling-v1"
	ModelKlingV1_5 = "kling-v1-5"
)

// DefaultModel 默认模型.
const DefaultModel = ModelKlingV1_5

// 取值范围.
const (
	MinBatchSize = 1
	MaxBatchSize = 9
	MaxSeed      = 999_999_999
)

// DefaultAspectRatio 默认宽高比.
const DefaultAspectRatio = "1:1"

// DefaultImageFidelity 默认参考强度.
const DefaultImageFidelity = 0.5

// SupportedModels 返回支持的模型列表.
func SupportedModels() []string {
	return []string{ModelKlingV1, ModelKlingV1_5}
}

// SupportedAspectRatios 返回支持的宽高比列表.
func SupportedAspectRatios() []string {
	return []string{"16:9", "9:16", "1:1", "4:3", "3:4", "3:2", "2:3", "21:9"}
}

// GenerateRequest 代表一次文生图请求.
// 构造后不再修改；需要改动时先 Clone.
type GenerateRequest struct {
	Model          string  `json:"model_name"`
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
	AspectRatio    string  `json:"aspect_ratio"`
	N              int     `json:"n"`              // batch size, 1..9
	Seed           int64   `json:"seed"`           // 0 = random
	ImageFidelity  float64 `json:"image_fidelity"` // sent as strength
}

// Clone 返回请求的副本.
func (r *GenerateRequest) Clone() *GenerateRequest {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// WithDefaults 返回填充了默认值的副本（模型、宽高比）.
// N 不补默认值，0 由 Validate 拒绝.
func (r *GenerateRequest) WithDefaults() *GenerateRequest {
	c := r.Clone()
	if strings.TrimSpace(c.Model) == "" {
		c.Model = DefaultModel
	}
	if c.AspectRatio == "" {
		c.AspectRatio = DefaultAspectRatio
	}
	return c
}

// IsSupportedModel 检查模型名称.
func IsSupportedModel(model string) bool {
	return slices.Contains(SupportedModels(), model)
}

// IsSupportedAspectRatio 检查宽高比.
func IsSupportedAspectRatio(ratio string) bool {
	return slices.Contains(SupportedAspectRatios(), ratio)
}

// Validate 检查参数范围，失败时返回 ErrInvalidRequest.
// prompt 不做限制，空提示词原样发给服务端.
func (r *GenerateRequest) Validate() error {
	if r == nil {
		return types.NewError(types.ErrInvalidRequest, "request is nil")
	}
	if !IsSupportedModel(r.Model) {
		return types.Errorf(types.ErrInvalidRequest, "unsupported model %q", r.Model)
	}
	if !IsSupportedAspectRatio(r.AspectRatio) {
		return types.Errorf(types.ErrInvalidRequest, "unsupported aspect ratio %q", r.AspectRatio)
	}
	if r.N < MinBatchSize || r.N > MaxBatchSize {
		return types.Errorf(types.ErrInvalidRequest, "batch size must be in [%d, %d], got %d", MinBatchSize, MaxBatchSize, r.N)
	}
	if r.Seed < 0 || r.Seed > MaxSeed {
		return types.Errorf(types.ErrInvalidRequest, "seed must be in [0, %d], got %d", MaxSeed, r.Seed)
	}
	if r.ImageFidelity < 0 || r.ImageFidelity > 1 {
		return types.Errorf(types.ErrInvalidRequest, "image fidelity must be in [0, 1], got %g", r.ImageFidelity)
	}
	return nil
}
