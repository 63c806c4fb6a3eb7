package handlers

import (
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/klingflow/api"
	"github.com/BaSui01/klingflow/nodes"
	"github.com/BaSui01/klingflow/types"
)

// =============================================================================
// 🧩 节点 Handler
// =============================================================================

// NodeHandler 暴露节点注册表：列表、查询与调用
type NodeHandler struct {
	registry *nodes.Registry
	deps     nodes.Deps
	logger   *zap.Logger
}

// NewNodeHandler 创建节点处理器
func NewNodeHandler(registry *nodes.Registry, deps nodes.Deps, logger *zap.Logger) *NodeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Logger == nil {
		deps.Logger = logger
	}
	return &NodeHandler{
		registry: registry,
		deps:     deps,
		logger:   logger,
	}
}

// HandleListNodes 列出所有已注册节点
// @Summary 节点列表
// @Tags 节点
// @Produce json
// @Success 200 {object} Response{data=[]api.NodeInfo}
// @Router /api/v1/nodes [get]
func (h *NodeHandler) HandleListNodes(w http.ResponseWriter, r *http.Request) {
	regs := h.registry.List()
	out := make([]api.NodeInfo, 0, len(regs))
	for _, reg := range regs {
		out = append(out, toNodeInfo(reg))
	}
	WriteSuccessFor(w, r, out)
}

// HandleGetNode 查询单个节点
// @Summary 节点详情
// @Tags 节点
// @Produce json
// @Param name path string true "节点类型名"
// @Success 200 {object} Response{data=api.NodeInfo}
// @Failure 404 {object} Response
// @Router /api/v1/nodes/{name} [get]
func (h *NodeHandler) HandleGetNode(w http.ResponseWriter, r *http.Request) {
	name := extractNodeName(r)
	reg, ok := h.registry.Lookup(name)
	if !ok {
		WriteAnyError(w, r, types.Errorf(types.ErrNodeNotFound, "node %q not registered", name), h.logger)
		return
	}
	WriteSuccessFor(w, r, toNodeInfo(reg))
}

// HandleInvokeNode 调用节点，返回 base64 编码的 PNG
// @Summary 调用节点
// @Tags 节点
// @Accept json
// @Produce json
// @Param name path string true "节点类型名"
// @Param request body api.InvokeRequest true "节点参数"
// @Success 200 {object} Response{data=api.InvokeResponse}
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Failure 502 {object} Response
// @Router /api/v1/nodes/{name}/invoke [post]
func (h *NodeHandler) HandleInvokeNode(w http.ResponseWriter, r *http.Request) {
	name := extractNodeName(r)

	node, err := h.registry.Build(name, h.deps)
	if err != nil {
		WriteAnyError(w, r, err, h.logger)
		return
	}

	if !ValidateContentType(w, r, h.logger) {
		return
	}
	var req api.InvokeRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if req.Params == nil {
		req.Params = map[string]any{}
	}

	start := time.Now()
	batch, err := node.Invoke(r.Context(), nodes.Params(req.Params))
	if err != nil {
		WriteAnyError(w, r, err, h.logger)
		return
	}

	resp := api.InvokeResponse{
		Node:     name,
		Seed:     batch.Seed,
		Shape:    batch.Shape(),
		Images:   make([]api.ImageOutput, 0, batch.N),
		Duration: time.Since(start).String(),
	}
	for i := 0; i < batch.N; i++ {
		png, err := batch.EncodePNG(i)
		if err != nil {
			WriteAnyError(w, r, types.NewError(types.ErrInternalError, "encode result").WithCause(err), h.logger)
			return
		}
		resp.Images = append(resp.Images, api.ImageOutput{
			Index:     i,
			Width:     batch.Width,
			Height:    batch.Height,
			PNGBase64: base64.StdEncoding.EncodeToString(png),
		})
	}

	h.logger.Info("node invoked",
		zap.String("node", name),
		zap.Int("images", batch.N),
		zap.Int64("seed", batch.Seed),
		zap.Duration("duration", time.Since(start)),
	)
	WriteSuccessFor(w, r, resp)
}

func toNodeInfo(reg nodes.Registration) api.NodeInfo {
	schema := reg.Schema()
	info := api.NodeInfo{
		Name:        reg.Name,
		DisplayName: reg.DisplayName,
		Category:    reg.Category,
		Description: reg.Description,
		Params:      make([]api.NodeParam, 0, len(schema.Required)+len(schema.Optional)),
		ReturnTypes: schema.ReturnTypes,
		ReturnNames: schema.ReturnNames,
	}
	add := func(p nodes.Param, required bool) {
		info.Params = append(info.Params, api.NodeParam{
			Name:      p.Name,
			Kind:      string(p.Kind),
			Required:  required,
			Default:   p.Default,
			Min:       p.Min,
			Max:       p.Max,
			Options:   p.Options,
			Multiline: p.Multiline,
			Password:  p.Password,
		})
	}
	for _, p := range schema.Required {
		add(p, true)
	}
	for _, p := range schema.Optional {
		add(p, false)
	}
	return info
}

// extractNodeName 优先使用路由参数，回退到路径解析：
// /api/v1/nodes/{name} 与 /api/v1/nodes/{name}/invoke
func extractNodeName(r *http.Request) string {
	if name := r.PathValue("name"); name != "" {
		return name
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/nodes/")
	path = strings.TrimSuffix(path, "/invoke")
	return strings.Trim(path, "/")
}
