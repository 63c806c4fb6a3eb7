package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/klingflow/config"
)

// =============================================================================
// 🌐 监听端点管理器
// =============================================================================

// 默认值
const (
	defaultMaxHeaderBytes  = 1 << 20
	defaultShutdownTimeout = 15 * time.Second
)

// Endpoint 描述一个监听端口。API 端点承载可能持续数十分钟的节点调用，
// metrics 端点只服务短请求，因此各自设置写超时。
type Endpoint struct {
	Name    string
	Port    int
	Handler http.Handler

	// WriteTimeout 为 0 时沿用 server.write_timeout
	WriteTimeout time.Duration
}

// endpoint 是运行期状态
type endpoint struct {
	Endpoint
	srv      *http.Server
	listener net.Listener
	inFlight atomic.Int64
}

// Manager 管理 API 与 metrics 等多个监听端点的启动与关闭。
//
// 关闭顺序与注册顺序一致：先排空 API 端点上进行中的生成调用，
// 再关闭 metrics 端点，排空期间指标仍可抓取。
// 超过 ShutdownTimeout 后取消所有请求 context 并强制关闭连接。
type Manager struct {
	cfg    config.ServerConfig
	logger *zap.Logger

	// baseCtx 是所有请求 context 的父 context，强制关闭时取消
	baseCtx    context.Context
	cancelBase context.CancelFunc

	mu        sync.RWMutex
	endpoints []*endpoint
	started   bool
	closed    bool

	errCh chan error
}

// NewManager 创建端点管理器
func NewManager(cfg config.ServerConfig, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	baseCtx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:        cfg,
		logger:     logger.With(zap.String("component", "http_server")),
		baseCtx:    baseCtx,
		cancelBase: cancel,
		errCh:      make(chan error, 1),
	}
}

// Add 注册端点，必须在 Start 之前调用
func (m *Manager) Add(ep Endpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started || m.closed {
		return fmt.Errorf("cannot add endpoint %q after start", ep.Name)
	}
	if ep.Handler == nil {
		return fmt.Errorf("endpoint %q has no handler", ep.Name)
	}
	for _, e := range m.endpoints {
		if e.Name == ep.Name {
			return fmt.Errorf("endpoint %q already registered", ep.Name)
		}
	}

	e := &endpoint{Endpoint: ep}
	e.srv = m.newHTTPServer(e)
	m.endpoints = append(m.endpoints, e)
	return nil
}

func (m *Manager) newHTTPServer(e *endpoint) *http.Server {
	writeTimeout := e.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = m.cfg.WriteTimeout
	}
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", e.Port),
		Handler:           trackInFlight(e, e.Handler),
		ReadHeaderTimeout: m.cfg.ReadTimeout,
		ReadTimeout:       m.cfg.ReadTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       2 * m.cfg.ReadTimeout,
		MaxHeaderBytes:    defaultMaxHeaderBytes,
		BaseContext:       func(net.Listener) context.Context { return m.baseCtx },
	}
}

func trackInFlight(e *endpoint, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e.inFlight.Add(1)
		defer e.inFlight.Add(-1)
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// 🎯 生命周期
// =============================================================================

// Start 依次监听所有端点并在后台服务。任一端点监听失败时，
// 已打开的监听器会被关闭。
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("server is closed")
	}
	if m.started {
		return fmt.Errorf("server already started")
	}
	if len(m.endpoints) == 0 {
		return fmt.Errorf("no endpoints registered")
	}

	for i, e := range m.endpoints {
		listener, err := net.Listen("tcp", e.srv.Addr)
		if err != nil {
			for _, opened := range m.endpoints[:i] {
				_ = opened.listener.Close()
				opened.listener = nil
			}
			return fmt.Errorf("failed to listen on %s for %s: %w", e.srv.Addr, e.Name, err)
		}
		e.listener = listener
	}

	m.started = true
	for _, e := range m.endpoints {
		m.logger.Info("endpoint listening",
			zap.String("endpoint", e.Name),
			zap.String("addr", e.listener.Addr().String()),
		)
		go m.serve(e)
	}
	return nil
}

func (m *Manager) serve(e *endpoint) {
	if err := e.srv.Serve(e.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		m.logger.Error("endpoint failed", zap.String("endpoint", e.Name), zap.Error(err))
		select {
		case m.errCh <- fmt.Errorf("%s: %w", e.Name, err):
		default:
		}
	}
}

// Shutdown 按注册顺序优雅关闭所有端点，共享同一个 ShutdownTimeout。
// 超时后取消进行中请求的 context，强制关闭连接并返回错误。重复调用无副作用。
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	// closed 之后 endpoints 与 listener 不再变化，排空期间不持锁
	endpoints := m.endpoints
	m.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(ctx, m.cfg.ShutdownTimeout)
	defer cancel()
	defer m.cancelBase()

	var errs []error
	for _, e := range endpoints {
		if e.listener == nil {
			continue
		}
		m.logger.Info("draining endpoint",
			zap.String("endpoint", e.Name),
			zap.Int64("in_flight", e.inFlight.Load()),
		)
		if err := e.srv.Shutdown(shutdownCtx); err != nil {
			m.logger.Warn("drain timed out, cancelling in-flight requests",
				zap.String("endpoint", e.Name),
				zap.Int64("in_flight", e.inFlight.Load()),
				zap.Error(err),
			)
			m.cancelBase()
			_ = e.srv.Close()
			errs = append(errs, fmt.Errorf("%s: %w", e.Name, err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	m.logger.Info("all endpoints stopped")
	return nil
}

// WaitForShutdown 阻塞到收到 SIGINT/SIGTERM、ctx 取消或任一端点异常退出，
// 然后调用 Shutdown。
func (m *Manager) WaitForShutdown(ctx context.Context) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		m.logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case <-ctx.Done():
		m.logger.Info("shutdown requested", zap.Error(ctx.Err()))
	case err := <-m.errCh:
		m.logger.Error("endpoint exited unexpectedly", zap.Error(err))
	}

	if err := m.Shutdown(context.WithoutCancel(ctx)); err != nil {
		m.logger.Error("shutdown error", zap.Error(err))
	}
}

// =============================================================================
// 🔧 查询
// =============================================================================

// Addr 返回端点的实际监听地址；未启动或未注册时返回空字符串.
// 关闭后仍返回原地址.
func (m *Manager) Addr(name string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.endpoints {
		if e.Name == name && e.listener != nil {
			return e.listener.Addr().String()
		}
	}
	return ""
}

// InFlight 返回端点上正在处理的请求数
func (m *Manager) InFlight(name string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.endpoints {
		if e.Name == name {
			return e.inFlight.Load()
		}
	}
	return 0
}

// IsRunning 报告是否已启动且尚未关闭
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.started && !m.closed
}
