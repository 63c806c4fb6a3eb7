package kling

import (
	"bytes"
	"context"
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/klingflow/config"
	"github.com/BaSui01/klingflow/llm/image"
	"github.com/BaSui01/klingflow/types"
)

func TestNewHTTPClient_HTTP2Toggle(t *testing.T) {
	cfg := config.DefaultKlingConfig()

	cfg.EnableHTTP2 = true
	tr, ok := newHTTPClient(cfg, zap.NewNop()).Transport.(*http.Transport)
	require.True(t, ok)
	assert.Contains(t, tr.TLSNextProto, "h2")
	assert.Equal(t, uint16(tls.VersionTLS12), tr.TLSClientConfig.MinVersion)

	cfg.EnableHTTP2 = false
	tr, ok = newHTTPClient(cfg, zap.NewNop()).Transport.(*http.Transport)
	require.True(t, ok)
	assert.NotContains(t, tr.TLSNextProto, "h2")
}

func TestNewHTTPClient_NoGlobalTimeout(t *testing.T) {
	// 超时由每个请求的 context 控制，长轮询不能被客户端级超时截断
	c := newHTTPClient(config.DefaultKlingConfig(), zap.NewNop())
	assert.Zero(t, c.Timeout)
}

func TestDoAPI_OversizedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(bytes.Repeat([]byte(" "), maxResponseBytes+1))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL+"/v1", 30, zap.NewNop())
	_, err := c.Submit(context.Background(), testToken(t), &image.GenerateRequest{
		Model: image.ModelKlingV1_5, Prompt: "x", AspectRatio: "1:1", N: 1, Seed: 1,
	})
	require.Error(t, err)

	e, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrServiceError, e.Code)
	assert.Contains(t, e.Message, "exceeds")
	assert.Equal(t, http.StatusOK, e.HTTPStatus)
	assert.False(t, types.IsRetryable(err))
}

func TestDoAPI_ResponseAtLimitIsAccepted(t *testing.T) {
	body := bytes.Repeat([]byte(" "), maxResponseBytes)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL+"/v1", 30, zap.NewNop())
	status, data, err := c.doAPI(context.Background(), http.MethodGet, srv.URL, testToken(t), nil, c.cfg.PollTimeout)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, data, maxResponseBytes)
}
