// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 klingflow 程序入口。

# 概述

cmd/klingflow 是文生图节点宿主的可执行入口，提供命令行生成、
节点列表、HTTP API 服务、健康检查和版本查询等子命令。程序支持
YAML 配置文件与 KLINGFLOW_* 环境变量、结构化日志（zap）、
Prometheus 指标与 OpenTelemetry 追踪。

# 核心类型

  - Server: 主服务器，管理 HTTP、Metrics 双端口及优雅关闭
  - Middleware: HTTP 中间件函数签名 func(http.Handler) http.Handler
  - generateOptions: generate 子命令参数

# 主要能力

  - 子命令：generate（写出 PNG）、nodes、serve、version、health
  - 中间件链：Recovery、RequestID、OTelTracing、SecurityHeaders、
    RequestLogger、MetricsMiddleware、RateLimiter（基于 IP）、APIKeyAuth
  - Metrics 服务器：独立端口暴露 /metrics（Prometheus）
  - 优雅关闭：信号监听 → 关闭 HTTP → 关闭 Metrics → 刷新遥测
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
