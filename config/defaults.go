// =============================================================================
// 📦 klingflow 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Kling:     DefaultKlingConfig(),
		Poll:      DefaultPollConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    45 * time.Minute,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    10,
		RateLimitBurst:  20,
	}
}

// DefaultKlingConfig 返回默认远端服务配置
func DefaultKlingConfig() KlingConfig {
	return KlingConfig{
		BaseURL:         "https://api.klingai.com/v1",
		SubmitTimeout:   30 * time.Second,
		PollTimeout:     15 * time.Second,
		DownloadTimeout: 30 * time.Second,
		MaxImageBytes:   64 << 20,
		RateLimitRPS:    0,
		RateLimitBurst:  1,
		EnableHTTP2:     true,
	}
}

// DefaultPollConfig 返回默认轮询策略：30 次，5s 起步，×1.3，封顶 60s
func DefaultPollConfig() PollConfig {
	return PollConfig{
		MaxAttempts:     30,
		InitialInterval: 5 * time.Second,
		Multiplier:      1.3,
		MaxInterval:     60 * time.Second,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "klingflow",
		SampleRate:   0.1,
	}
}
