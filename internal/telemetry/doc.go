// Package telemetry 封装 OpenTelemetry SDK 初始化逻辑，
// 为 klingflow 的 serve 与 generate 两种运行方式提供 TracerProvider 和 MeterProvider。
// resource 上带有 klingflow.role 区分两者；生成 span 的采样跟随入站请求。
// 当遥测功能禁用时，使用 noop 实现，不连接任何外部服务。
package telemetry
