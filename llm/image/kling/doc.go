// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package kling 实现可灵文生图服务的异步任务客户端。

# 流程

一次 Generate 调用依次经过：

	idle → credentials_checked → token_issued → submitted → polling → fetching → done

任何阶段失败都会进入 errored，记录一条汇总日志并原样返回该阶段的错误。

  - SignToken：HS256 JWT，iss 为 access key，有效期 1800s，nbf 提前 5s。
  - ValidateResponse：只有 HTTP 200 且 code == 0 才算成功。
  - Submit：POST /images/generations，返回任务 ID，不重试。
  - Poll：GET /images/generations/{task_id}，基于 llm/retry 的指数退避，
    默认 30 次、5s 起步、×1.3、封顶 60s；传输错误重试，服务端拒绝立即失败。
  - Fetch：校验图片数量后按顺序下载并解码为 [N,H,W,3] 浮点批次。

错误统一使用 types.Error，错误码见 types 包。
*/
package kling
