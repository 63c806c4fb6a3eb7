// Package nodes 把文生图客户端包装成宿主可以按名称发现和调用的节点。
//
// Registry 保存节点类型（名称、显示名、分类、参数声明、构造函数）；
// 内置节点 "Kling_v1_5_T2I" 显示为 "🔥 Kling Text2Image"，分类 "KlingAI"。
// Schema.Apply 负责填充默认值、转换 JSON 数字并检查取值范围。
package nodes
