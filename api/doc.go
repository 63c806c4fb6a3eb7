// Package api 定义 klingflow HTTP API 的请求与响应结构。
//
// # API 概览
//
// klingflow 以 HTTP 方式暴露节点注册表：
//   - GET  /api/v1/nodes                 列出已注册节点及其参数声明
//   - GET  /api/v1/nodes/{name}          查询单个节点
//   - POST /api/v1/nodes/{name}/invoke   调用节点，返回 PNG 图像（base64）
//   - GET  /health, /healthz, /ready     健康检查
//   - GET  /version                      版本信息
//
// # 认证
//
// 配置了 server.api_keys 时，/api/ 下的端点需要携带 X-API-Key 头：
//
//	X-API-Key: your-api-key
//
// # Base URL
//
// 默认地址：
//
//	http://localhost:8080
//
// 指标单独暴露在 metrics 端口（默认 9091）的 /metrics 上。
package api
