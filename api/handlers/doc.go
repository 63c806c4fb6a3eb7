// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 klingflow HTTP API 的请求处理器实现。

# 概述

handlers 包实现节点注册表的 HTTP 端点、健康检查以及统一的
响应/错误处理。所有 Handler 均遵循标准 net/http 接口。

# 核心类型

  - NodeHandler: 节点列表、查询与调用（结果为 base64 PNG）
  - HealthHandler: 服务健康检查（/health, /healthz, /ready, /version）
  - Response: 统一 JSON 响应结构（success + data + error + timestamp）
  - ErrorInfo: 结构化错误信息，含 code、message、retryable 与远端业务码
  - ResponseWriter: 包装 http.ResponseWriter 以捕获状态码
  - HealthCheck: 可插拔健康检查接口

# 主要能力

  - 统一响应格式：WriteSuccess / WriteError / WriteAnyError / WriteJSON
  - 请求验证：DecodeJSONBody（1 MB 限制 + 严格模式 + json.Number）、ValidateContentType
  - ErrorCode → HTTP 状态码映射；远端错误统一映射为 502/504/422，不透传远端状态
  - 健康检查：RegisterCheck 注册必需检查（NodeRegistryHealthCheck），失败时 /ready 返回 503；
    RegisterAdvisoryCheck 注册建议检查（CredentialsHealthCheck），失败时状态为 degraded 仍返回 200
*/
package handlers
