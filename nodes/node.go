package nodes

import (
	"context"

	"go.uber.org/zap"

	"github.com/BaSui01/klingflow/llm/image"
	"github.com/BaSui01/klingflow/llm/image/kling"
)

// Params 是宿主传入的原始参数.
type Params map[string]any

// String 返回字符串参数，缺失或类型不符时返回空串.
func (p Params) String(key string) string {
	s, _ := p[key].(string)
	return s
}

// Int 返回经过 Schema.Apply 规范化后的整数参数.
func (p Params) Int(key string) int64 {
	v, _ := p[key].(int64)
	return v
}

// Float 返回经过 Schema.Apply 规范化后的浮点参数.
func (p Params) Float(key string) float64 {
	v, _ := p[key].(float64)
	return v
}

// Generator 执行一次文生图调用，*kling.Client 实现了该接口.
type Generator interface {
	Generate(ctx context.Context, creds kling.Credentials, req *image.GenerateRequest) (*image.Batch, error)
}

// Deps 是节点构造时可用的依赖.
type Deps struct {
	Generator Generator
	// 参数中未提供密钥时使用
	DefaultCredentials kling.Credentials
	Logger             *zap.Logger
}

// Node 是可被宿主调用的处理节点.
type Node interface {
	Schema() *Schema
	Invoke(ctx context.Context, params Params) (*image.Batch, error)
}
