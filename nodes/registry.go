package nodes

import (
	"fmt"
	"sort"
	"sync"

	"github.com/BaSui01/klingflow/types"
)

// Registration 描述一个可注册的节点类型.
type Registration struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
	// Schema 返回节点参数声明
	Schema func() *Schema `json:"-"`
	// New 构造节点实例
	New func(Deps) Node `json:"-"`
}

// Registry 是线程安全的节点注册表.
type Registry struct {
	entries map[string]Registration
	mu      sync.RWMutex
}

// NewRegistry 创建空注册表.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Registration)}
}

// DefaultRegistry 返回包含内置节点的注册表.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	if err := r.Register(klingText2ImageRegistration()); err != nil {
		panic(err)
	}
	return r
}

// Register 注册节点类型，名称重复时返回错误.
func (r *Registry) Register(reg Registration) error {
	if reg.Name == "" {
		return fmt.Errorf("node name is required")
	}
	if reg.New == nil || reg.Schema == nil {
		return fmt.Errorf("node %q: constructor and schema are required", reg.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[reg.Name]; ok {
		return fmt.Errorf("node %q already registered", reg.Name)
	}
	r.entries[reg.Name] = reg
	return nil
}

// Lookup 按名称查找节点类型.
func (r *Registry) Lookup(name string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.entries[name]
	return reg, ok
}

// Build 按名称构造节点，未注册时返回 ErrNodeNotFound.
func (r *Registry) Build(name string, deps Deps) (Node, error) {
	reg, ok := r.Lookup(name)
	if !ok {
		return nil, types.Errorf(types.ErrNodeNotFound, "node %q not registered", name)
	}
	return reg.New(deps), nil
}

// List 返回按名称排序的所有节点类型.
func (r *Registry) List() []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Registration, 0, len(r.entries))
	for _, reg := range r.entries {
		out = append(out, reg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len 返回已注册的节点数量.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
