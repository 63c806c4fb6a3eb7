package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/klingflow/api/handlers"
	"github.com/BaSui01/klingflow/config"
	"github.com/BaSui01/klingflow/internal/metrics"
	"github.com/BaSui01/klingflow/internal/server"
	"github.com/BaSui01/klingflow/internal/telemetry"
	"github.com/BaSui01/klingflow/llm/image/kling"
	"github.com/BaSui01/klingflow/nodes"
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是 klingflow 的主服务器
type Server struct {
	cfg           *config.Config
	logger        *zap.Logger
	otelProviders *telemetry.Providers

	// 指标命名空间
	namespace string

	// API 与 metrics 端点
	servers *server.Manager

	// Handlers
	healthHandler *handlers.HealthHandler
	nodeHandler   *handlers.NodeHandler

	// 节点与生成器
	registry  *nodes.Registry
	generator nodes.Generator

	// 指标收集器
	metricsCollector *metrics.Collector

	// Rate limiter 生命周期管理
	rateLimiterCancel context.CancelFunc
}

// metrics 端点只服务抓取请求
const metricsWriteTimeout = 30 * time.Second

// NewServer 创建新的服务器实例
func NewServer(cfg *config.Config, logger *zap.Logger, otelProviders *telemetry.Providers) *Server {
	return &Server{
		cfg:           cfg,
		logger:        logger,
		otelProviders: otelProviders,
		namespace:     "klingflow",
		registry:      nodes.DefaultRegistry(),
	}
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 注册 API 与 metrics 端点并启动
func (s *Server) Start() error {
	handler := s.buildHandler()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	s.servers = server.NewManager(s.cfg.Server, s.logger)
	if err := s.servers.Add(server.Endpoint{Name: "api", Port: s.cfg.Server.HTTPPort, Handler: handler}); err != nil {
		return err
	}
	if err := s.servers.Add(server.Endpoint{
		Name:         "metrics",
		Port:         s.cfg.Server.MetricsPort,
		Handler:      metricsMux,
		WriteTimeout: metricsWriteTimeout,
	}); err != nil {
		return err
	}

	if err := s.servers.Start(); err != nil {
		return fmt.Errorf("failed to start servers: %w", err)
	}

	s.logger.Info("All servers started",
		zap.String("http_addr", s.servers.Addr("api")),
		zap.String("metrics_addr", s.servers.Addr("metrics")),
		zap.Int("nodes", s.registry.Len()),
	)

	return nil
}

// =============================================================================
// 🔧 初始化方法
// =============================================================================

// initHandlers 初始化指标收集器、生成器与 handlers
func (s *Server) initHandlers() {
	s.metricsCollector = metrics.NewCollector(s.namespace, s.logger)

	if s.generator == nil {
		s.generator = kling.NewClient(s.cfg.Kling, s.cfg.Poll, s.logger,
			kling.WithRecorder(s.metricsCollector),
			kling.WithTracerProvider(s.otelProviders.TracerProvider()),
		)
	}

	creds := kling.Credentials{AccessKey: s.cfg.Kling.AccessKey, SecretKey: s.cfg.Kling.SecretKey}

	s.healthHandler = handlers.NewHealthHandler(s.logger)
	s.healthHandler.RegisterCheck(handlers.NodeRegistryHealthCheck(s.registry.Len))
	s.healthHandler.RegisterAdvisoryCheck(handlers.CredentialsHealthCheck(func() bool {
		return creds.Validate() == nil
	}))

	s.nodeHandler = handlers.NewNodeHandler(s.registry, nodes.Deps{
		Generator:          s.generator,
		DefaultCredentials: creds,
		Logger:             s.logger,
	}, s.logger)

	if creds.Validate() != nil {
		s.logger.Info("default Kling credentials not configured, requests must carry access_key and secret_key")
	}

	s.logger.Info("Handlers initialized")
}

// buildHandler 注册路由并构建中间件链
func (s *Server) buildHandler() http.Handler {
	s.initHandlers()

	mux := http.NewServeMux()

	// ========================================
	// 健康检查端点
	// ========================================
	mux.HandleFunc("GET /health", s.healthHandler.HandleHealth)
	mux.HandleFunc("GET /healthz", s.healthHandler.HandleHealthz)
	mux.HandleFunc("GET /ready", s.healthHandler.HandleReady)
	mux.HandleFunc("GET /readyz", s.healthHandler.HandleReady)

	// 版本信息端点
	mux.HandleFunc("GET /version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	// ========================================
	// 节点 API
	// ========================================
	mux.HandleFunc("GET /api/v1/nodes", s.nodeHandler.HandleListNodes)
	mux.HandleFunc("GET /api/v1/nodes/{name}", s.nodeHandler.HandleGetNode)
	mux.HandleFunc("POST /api/v1/nodes/{name}/invoke", s.nodeHandler.HandleInvokeNode)

	// ========================================
	// 构建中间件链
	// ========================================
	skipAuthPaths := []string{"/health", "/healthz", "/ready", "/readyz", "/version", "/metrics"}
	rateLimiterCtx, rateLimiterCancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = rateLimiterCancel

	return Chain(mux,
		Recovery(s.logger),
		RequestID(),
		OTelTracing(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		MetricsMiddleware(s.metricsCollector),
		RateLimiter(rateLimiterCtx, float64(s.cfg.Server.RateLimitRPS), s.cfg.Server.RateLimitBurst, s.logger),
		APIKeyAuth(s.cfg.Server.APIKeys, skipAuthPaths, s.logger),
	)
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// WaitForShutdown 等待关闭信号并优雅关闭
func (s *Server) WaitForShutdown(ctx context.Context) {
	// Manager 监听信号、ctx 取消与端点异常，并排空所有端点
	if s.servers != nil {
		s.servers.WaitForShutdown(ctx)
	}

	s.Shutdown()
}

// Shutdown 优雅关闭所有服务
func (s *Server) Shutdown() {
	s.logger.Info("Starting graceful shutdown...")

	// 0. 停止 rate limiter 清理 goroutine
	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}

	// 1. 排空 API 端点，再关闭 metrics 端点（已关闭时为空操作）
	if s.servers != nil {
		if err := s.servers.Shutdown(context.Background()); err != nil {
			s.logger.Error("Server shutdown error", zap.Error(err))
		}
	}

	// 2. 刷新遥测数据
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := s.otelProviders.Shutdown(ctx); err != nil {
		s.logger.Error("Telemetry shutdown error", zap.Error(err))
	}

	s.logger.Info("Graceful shutdown completed")
}
