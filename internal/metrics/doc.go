// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖 HTTP 宿主、
文生图生成流程、任务轮询与结果下载四个维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
自动注册机制，避免手动管理 Registry。所有指标按 namespace 隔离。
Collector 的方法签名只使用基础类型，可以直接作为生成客户端的
指标记录器注入。

# 主要能力

  - HTTP 指标：请求总数、请求耗时、请求/响应体大小，
    按 method/path/status 分组，状态码归类为 2xx/3xx/4xx/5xx。
  - 生成指标：生成总数与耗时（按 model/status）、返回图片数、
    阶段转换计数、进行中的生成数。
  - 轮询指标：按结果分类的查询次数、远端任务状态变化次数。
  - 下载指标：下载次数、图片大小、下载耗时。
*/
package metrics
