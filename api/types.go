package api

import "time"

// =============================================================================
// 节点类型
// =============================================================================

// NodeParam 描述节点的一个输入参数。
// @Description 节点参数声明
type NodeParam struct {
	// 参数名
	Name string `json:"name" example:"prompt"`
	// 参数类型：STRING、INT、FLOAT、ENUM
	Kind string `json:"kind" example:"STRING"`
	// 是否必填
	Required bool `json:"required"`
	// 默认值
	Default any `json:"default,omitempty"`
	// 数值下限
	Min *float64 `json:"min,omitempty"`
	// 数值上限
	Max *float64 `json:"max,omitempty"`
	// ENUM 可选值
	Options []string `json:"options,omitempty"`
	// 多行文本
	Multiline bool `json:"multiline,omitempty"`
	// 敏感输入（如密钥）
	Password bool `json:"password,omitempty"`
}

// NodeInfo 描述一个已注册节点。
// @Description 节点信息
type NodeInfo struct {
	// 节点类型名
	Name string `json:"name" example:"Kling_v1_5_T2I"`
	// 展示名称
	DisplayName string `json:"display_name"`
	// 分类
	Category string `json:"category" example:"KlingAI"`
	// 描述
	Description string `json:"description,omitempty"`
	// 输入参数
	Params []NodeParam `json:"params"`
	// 输出类型
	ReturnTypes []string `json:"return_types"`
	// 输出名称
	ReturnNames []string `json:"return_names"`
}

// =============================================================================
// 调用类型
// =============================================================================

// InvokeRequest 是节点调用请求。
// @Description 节点调用请求
type InvokeRequest struct {
	// 节点参数，键为参数名
	Params map[string]any `json:"params"`
}

// ImageOutput 是一张生成结果。
// @Description 生成的图像
type ImageOutput struct {
	// 在批次中的位置
	Index int `json:"index"`
	// 宽度（像素）
	Width int `json:"width"`
	// 高度（像素）
	Height int `json:"height"`
	// PNG 编码后的 base64
	PNGBase64 string `json:"png_base64"`
}

// InvokeResponse 是节点调用结果。
// @Description 节点调用结果
type InvokeResponse struct {
	// 节点类型名
	Node string `json:"node"`
	// 实际使用的种子
	Seed int64 `json:"seed"`
	// 批次形状 [N, H, W, C]
	Shape [4]int `json:"shape"`
	// 图像列表，按结果顺序
	Images []ImageOutput `json:"images"`
	// 调用耗时
	Duration string `json:"duration"`
}

// =============================================================================
// 健康检查类型
// =============================================================================

// VersionInfo 是 /version 的响应数据。
// @Description 版本信息
type VersionInfo struct {
	Version   string    `json:"version"`
	BuildTime string    `json:"build_time,omitempty"`
	GitCommit string    `json:"git_commit,omitempty"`
	StartedAt time.Time `json:"started_at"`
}
