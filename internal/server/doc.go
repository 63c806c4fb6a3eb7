// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 管理 klingflow serve 命令的多个监听端点（API 与 /metrics），
提供非阻塞启动、按序排空与系统信号监听。

# 核心类型

  - Endpoint：端点名、端口、Handler 与可选的写超时。
  - Manager：由 config.ServerConfig 构建，Add 注册端点后 Start 统一监听。

# 主要能力

  - 启动回滚：任一端口监听失败时关闭已打开的监听器。
  - 按序排空：Shutdown 按注册顺序关闭端点，API 上的生成调用排空时
    metrics 仍可抓取；超时后取消所有请求 context 并强制关闭。
  - 进行中请求计数：InFlight 返回各端点正在处理的请求数。
  - 信号监听：WaitForShutdown 监听 SIGINT/SIGTERM、ctx 取消与端点异常退出。
*/
package server
