package kling

import (
	"bytes"
	"encoding/json"
	"errors"
	goimage "image"
	"image/color"
	"image/png"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/BaSui01/klingflow/config"
)

// fastPollConfig 保持 ×1.3 的增长，但间隔缩短到毫秒级.
func fastPollConfig(attempts int) config.PollConfig {
	return config.PollConfig{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		Multiplier:      1.3,
		MaxInterval:     5 * time.Millisecond,
	}
}

func testCredentials() Credentials {
	return Credentials{AccessKey: "test-ak", SecretKey: "test-sk"}
}

func testToken(t *testing.T) *SignedToken {
	t.Helper()
	tok, err := SignToken(testCredentials(), time.Now())
	require.NoError(t, err)
	return tok
}

func newObservedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

func newTestClient(baseURL string, attempts int, logger *zap.Logger, opts ...Option) *Client {
	cfg := config.DefaultKlingConfig()
	cfg.BaseURL = baseURL
	cfg.EnableHTTP2 = false
	return NewClient(cfg, fastPollConfig(attempts), logger, opts...)
}

func writeEnvelope(w http.ResponseWriter, status, code int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"code":       code,
		"message":    message,
		"request_id": "req-test",
		"data":       data,
	})
}

func taskData(taskID string, status TaskStatus, msg string, urls ...string) map[string]any {
	images := make([]map[string]any, 0, len(urls))
	for i, u := range urls {
		images = append(images, map[string]any{"index": i, "url": u})
	}
	return map[string]any{
		"task_id":         taskID,
		"task_status":     string(status),
		"task_status_msg": msg,
		"task_result":     map[string]any{"images": images},
	}
}

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := goimage.NewNRGBA(goimage.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// flakyTransport 在前 failures 次请求返回连接错误，之后转发给 next.
type flakyTransport struct {
	next     http.RoundTripper
	failures int32
	calls    atomic.Int32
}

func (f *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	n := f.calls.Add(1)
	if n <= f.failures {
		return nil, errors.New("connection reset by peer")
	}
	return f.next.RoundTrip(req)
}

// fakeRecorder 记录阶段转换与轮询结果.
type fakeRecorder struct {
	mu          sync.Mutex
	transitions []string
	polls       []string
	statuses    []string
	downloads   []string
	generations []string
}

func (r *fakeRecorder) RecordGeneration(model, status string, _ time.Duration, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generations = append(r.generations, model+":"+status)
}

func (r *fakeRecorder) RecordStageTransition(from, to string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, from+"->"+to)
}

func (r *fakeRecorder) RecordPollAttempt(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.polls = append(r.polls, outcome)
}

func (r *fakeRecorder) RecordTaskStatusChange(status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

func (r *fakeRecorder) RecordImageDownload(status string, _ int64, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.downloads = append(r.downloads, status)
}
