package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/klingflow/api"
)

// =============================================================================
// 🏥 健康检查 Handler
// =============================================================================

// HealthHandler 健康检查处理器。
// 必需检查失败时 /ready 返回 503；建议检查失败只把状态降为 degraded，
// 例如未配置默认密钥时，携带密钥的调用仍然可以成功。
type HealthHandler struct {
	logger    *zap.Logger
	required  []HealthCheck
	advisory  []HealthCheck
	startedAt time.Time
	mu        sync.RWMutex
}

// HealthCheck 健康检查接口
type HealthCheck interface {
	Name() string
	Check(ctx context.Context) error
}

// 健康状态
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// readyTimeout 限制一次就绪检查的总耗时
const readyTimeout = 5 * time.Second

// ServiceHealthResponse 健康状态响应
type ServiceHealthResponse struct {
	Status    string                 `json:"status"` // healthy / degraded / unhealthy
	Timestamp time.Time              `json:"timestamp"`
	Uptime    string                 `json:"uptime,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult 单个检查结果
type CheckResult struct {
	Status   string `json:"status"` // pass / fail / warn
	Message  string `json:"message,omitempty"`
	Latency  string `json:"latency,omitempty"`
	Advisory bool   `json:"advisory,omitempty"`
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{
		logger:    logger,
		startedAt: time.Now(),
	}
}

// RegisterCheck 注册必需检查
func (h *HealthHandler) RegisterCheck(check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.required = append(h.required, check)
}

// RegisterAdvisoryCheck 注册建议检查，失败不影响就绪
func (h *HealthHandler) RegisterAdvisoryCheck(check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.advisory = append(h.advisory, check)
}

// =============================================================================
// 🎯 HTTP 处理程序
// =============================================================================

// HandleHealth 处理 /health 请求，返回存活状态与运行时长
// @Summary 健康检查
// @Tags 健康
// @Produce json
// @Success 200 {object} ServiceHealthResponse "服务正常"
// @Router /health [get]
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, ServiceHealthResponse{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Uptime:    time.Since(h.startedAt).Truncate(time.Second).String(),
	})
}

// HandleHealthz 处理 /healthz 请求（Kubernetes 活跃度探针，不运行任何检查）
// @Summary Kubernetes 活跃度探针
// @Tags 健康
// @Produce json
// @Success 200 {object} ServiceHealthResponse "服务处于活动状态"
// @Router /healthz [get]
func (h *HealthHandler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, ServiceHealthResponse{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
	})
}

// HandleReady 处理 /ready 或 /readyz 请求（就绪检查）
// @Summary 准备情况检查
// @Description 必需检查全部通过时返回 200；仅建议检查失败时状态为 degraded
// @Tags 健康
// @Produce json
// @Success 200 {object} ServiceHealthResponse "服务已准备就绪"
// @Failure 503 {object} ServiceHealthResponse "服务尚未准备好"
// @Router /ready [get]
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	h.mu.RLock()
	required := append([]HealthCheck(nil), h.required...)
	advisory := append([]HealthCheck(nil), h.advisory...)
	h.mu.RUnlock()

	status := ServiceHealthResponse{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Checks:    make(map[string]CheckResult, len(required)+len(advisory)),
	}

	for _, check := range required {
		result := h.run(ctx, check, false)
		if result.Status != "pass" {
			status.Status = StatusUnhealthy
		}
		status.Checks[check.Name()] = result
	}
	for _, check := range advisory {
		result := h.run(ctx, check, true)
		if result.Status != "pass" && status.Status == StatusHealthy {
			status.Status = StatusDegraded
		}
		status.Checks[check.Name()] = result
	}

	if status.Status == StatusUnhealthy {
		WriteJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	WriteJSON(w, http.StatusOK, status)
}

func (h *HealthHandler) run(ctx context.Context, check HealthCheck, advisory bool) CheckResult {
	start := time.Now()
	err := check.Check(ctx)
	latency := time.Since(start)

	result := CheckResult{Status: "pass", Latency: latency.String(), Advisory: advisory}
	if err == nil {
		return result
	}

	result.Message = err.Error()
	result.Status = "fail"
	if advisory {
		result.Status = "warn"
	}
	h.logger.Warn("health check failed",
		zap.String("check", check.Name()),
		zap.Bool("advisory", advisory),
		zap.Error(err),
		zap.Duration("latency", latency),
	)
	return result
}

// HandleVersion 处理 /version 请求
// @Summary 版本信息
// @Description 返回版本信息
// @Tags 健康
// @Produce json
// @Success 200 {object} api.VersionInfo "版本信息"
// @Router /version [get]
func (h *HealthHandler) HandleVersion(version, buildTime, gitCommit string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteSuccess(w, api.VersionInfo{
			Version:   version,
			BuildTime: buildTime,
			GitCommit: gitCommit,
			StartedAt: h.startedAt,
		})
	}
}

// =============================================================================
// 🔧 内置健康检查实现
// =============================================================================

// FuncHealthCheck 以函数实现的健康检查
type FuncHealthCheck struct {
	name  string
	check func(ctx context.Context) error
}

// NewFuncHealthCheck 创建函数健康检查
func NewFuncHealthCheck(name string, check func(ctx context.Context) error) *FuncHealthCheck {
	return &FuncHealthCheck{
		name:  name,
		check: check,
	}
}

func (c *FuncHealthCheck) Name() string {
	return c.name
}

func (c *FuncHealthCheck) Check(ctx context.Context) error {
	return c.check(ctx)
}

// NodeRegistryHealthCheck 要求注册表中至少有一个节点
func NodeRegistryHealthCheck(count func() int) *FuncHealthCheck {
	return NewFuncHealthCheck("node_registry", func(context.Context) error {
		if count() == 0 {
			return errors.New("no nodes registered")
		}
		return nil
	})
}

// CredentialsHealthCheck 检查是否配置了默认密钥，作为建议检查注册.
func CredentialsHealthCheck(configured func() bool) *FuncHealthCheck {
	return NewFuncHealthCheck("kling_credentials", func(context.Context) error {
		if !configured() {
			return errors.New("default access key and secret key are not configured")
		}
		return nil
	})
}
