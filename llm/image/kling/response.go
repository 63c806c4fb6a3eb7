package kling

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/BaSui01/klingflow/types"
)

// envelope 是所有接口共用的响应外层结构.
type envelope struct {
	Code      *int            `json:"code"`
	Message   string          `json:"message"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

// ValidateResponse 仅在 HTTP 200 且 code == 0 时返回 data.
// 其余情况返回 ErrServiceError，消息优先取 body 中的 message，
// 缺失时（包括 body 不是 JSON）为 "HTTP {status} error".
// body 中没有 code 字段视为失败.
func ValidateResponse(statusCode int, body []byte) (json.RawMessage, error) {
	var env envelope
	parsed := json.Unmarshal(body, &env) == nil

	if parsed && statusCode == http.StatusOK && env.Code != nil && *env.Code == 0 {
		return env.Data, nil
	}

	msg := fmt.Sprintf("HTTP %d error", statusCode)
	if parsed && env.Message != "" {
		msg = env.Message
	}
	e := types.NewError(types.ErrServiceError, msg).
		WithHTTPStatus(statusCode).
		WithProvider(providerName)
	if parsed && env.Code != nil {
		e = e.WithServiceCode(*env.Code, env.RequestID)
	}
	return nil, e
}
