package nodes

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/BaSui01/klingflow/types"
)

// ParamKind 参数类型.
type ParamKind string

const (
	KindString ParamKind = "STRING"
	KindInt    ParamKind = "INT"
	KindFloat  ParamKind = "FLOAT"
	KindEnum   ParamKind = "ENUM"
)

// Param 声明一个节点参数.
type Param struct {
	Name      string    `json:"name"`
	Kind      ParamKind `json:"kind"`
	Default   any       `json:"default,omitempty"`
	Min       *float64  `json:"min,omitempty"`
	Max       *float64  `json:"max,omitempty"`
	Options   []string  `json:"options,omitempty"`
	Multiline bool      `json:"multiline,omitempty"`
	Password  bool      `json:"password,omitempty"`
}

// Schema 声明节点的输入与输出.
type Schema struct {
	Required    []Param  `json:"required"`
	Optional    []Param  `json:"optional,omitempty"`
	ReturnTypes []string `json:"return_types"`
	ReturnNames []string `json:"return_names"`
}

func bound(v float64) *float64 { return &v }

// Param 按名称查找参数声明.
func (s *Schema) Param(name string) (Param, bool) {
	for _, p := range s.Required {
		if p.Name == name {
			return p, true
		}
	}
	for _, p := range s.Optional {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// Apply 校验输入并填充默认值，返回规范化后的参数：
// INT 为 int64，FLOAT 为 float64，STRING/ENUM 为 string.
// 未声明的参数、类型不符或越界返回 ErrInvalidRequest.
func (s *Schema) Apply(in Params) (Params, error) {
	for key := range in {
		if _, ok := s.Param(key); !ok {
			return nil, types.Errorf(types.ErrInvalidRequest, "unknown parameter %q", key)
		}
	}

	out := make(Params, len(s.Required)+len(s.Optional))
	for _, p := range slices.Concat(s.Required, s.Optional) {
		raw, ok := in[p.Name]
		if !ok || raw == nil {
			raw = p.Default
		}
		v, err := p.coerce(raw)
		if err != nil {
			return nil, types.Errorf(types.ErrInvalidRequest, "parameter %q: %v", p.Name, err)
		}
		out[p.Name] = v
	}
	return out, nil
}

func (p Param) coerce(raw any) (any, error) {
	switch p.Kind {
	case KindString:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", raw)
		}
		return s, nil

	case KindEnum:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", raw)
		}
		if !slices.Contains(p.Options, s) {
			return nil, fmt.Errorf("%q is not one of %v", s, p.Options)
		}
		return s, nil

	case KindInt:
		f, err := toFloat(raw)
		if err != nil {
			return nil, err
		}
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("expected integer, got %v", f)
		}
		if err := p.checkRange(f); err != nil {
			return nil, err
		}
		return int64(f), nil

	case KindFloat:
		f, err := toFloat(raw)
		if err != nil {
			return nil, err
		}
		if err := p.checkRange(f); err != nil {
			return nil, err
		}
		return f, nil
	}
	return nil, fmt.Errorf("unsupported kind %q", p.Kind)
}

func (p Param) checkRange(f float64) error {
	if p.Min != nil && f < *p.Min {
		return fmt.Errorf("%v is below minimum %v", f, *p.Min)
	}
	if p.Max != nil && f > *p.Max {
		return fmt.Errorf("%v is above maximum %v", f, *p.Max)
	}
	return nil
}

func toFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		// 表单和 CLI 传入的数字
		return strconv.ParseFloat(v, 64)
	}
	return 0, fmt.Errorf("expected number, got %T", raw)
}
