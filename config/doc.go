// Package config 提供 klingflow 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量（KLINGFLOW_*）的顺序叠加，
// 覆盖 HTTP 宿主、远端文生图服务、任务轮询策略、日志与遥测。
package config
