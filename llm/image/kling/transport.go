package kling

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/http2"

	"github.com/BaSui01/klingflow/config"
	"github.com/BaSui01/klingflow/internal/tlsutil"
	"github.com/BaSui01/klingflow/types"
)

// maxResponseBytes 限制 API 响应体大小（不含图片下载）.
const maxResponseBytes = 4 << 20

// newHTTPClient 构建出站 HTTP 客户端。超时由每个请求的 context 控制.
func newHTTPClient(cfg config.KlingConfig, logger *zap.Logger) *http.Client {
	tr := tlsutil.NewTransport(tlsutil.DefaultTransportOptions())

	if cfg.EnableHTTP2 {
		h2, err := http2.ConfigureTransports(tr)
		if err != nil {
			logger.Warn("http2 not enabled on outbound transport", zap.Error(err))
		} else {
			// 长轮询期间探测失效连接
			h2.ReadIdleTimeout = 30 * time.Second
			h2.PingTimeout = 15 * time.Second
		}
	}

	return &http.Client{Transport: tr}
}

// doAPI 发送一次带 bearer token 的 API 请求并读取响应体.
// 连接失败、超时与读取失败返回 ErrTransport；响应体超限返回 ErrServiceError；
// 调用方 context 取消时返回其错误.
func (c *Client) doAPI(ctx context.Context, method, url string, token *SignedToken, payload []byte, timeout time.Duration) (int, []byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, nil, fmt.Errorf("kling rate limiter: %w", err)
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(reqCtx, method, url, body)
	if err != nil {
		return 0, nil, types.NewError(types.ErrInternalError, "failed to create request").
			WithCause(err).
			WithProvider(providerName)
	}
	httpReq.Header.Set("Authorization", token.BearerHeader())
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, c.transportError(ctx, method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return 0, nil, c.transportError(ctx, method, err)
	}
	if len(data) > maxResponseBytes {
		return 0, nil, types.Errorf(types.ErrServiceError, "response body exceeds %d bytes", maxResponseBytes).
			WithHTTPStatus(resp.StatusCode).
			WithProvider(providerName)
	}
	return resp.StatusCode, data, nil
}

func (c *Client) transportError(ctx context.Context, method string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("kling %s request aborted: %w", method, ctxErr)
	}
	return types.Errorf(types.ErrTransport, "%s request failed", method).
		WithCause(err).
		WithRetryable(true).
		WithProvider(providerName)
}
