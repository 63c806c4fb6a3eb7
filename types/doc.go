// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 klingflow 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 llm、nodes、api 等上层
模块提供统一的错误体系与 context 传播工具，以避免循环依赖。

# 核心类型

  - Error / ErrorCode: 结构化错误，含 HTTP 状态码、服务端业务码、Retryable 标记
  - IsCode / GetErrorCode / AsError: 基于 errors.As 的错误识别，包装后依然有效

# Context 传播

  - WithTraceID / WithRequestID / WithGenerationID 及对应的读取函数
*/
package types
