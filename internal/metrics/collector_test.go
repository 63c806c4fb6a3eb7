package metrics

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var collectorNamespaceSeq uint64

func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestNewCollector(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	assert.NotNil(t, collector)
	assert.NotNil(t, collector.httpRequestsTotal)
	assert.NotNil(t, collector.generationsTotal)
	assert.NotNil(t, collector.pollAttempts)
	assert.NotNil(t, collector.downloadsTotal)
}

func TestNewCollector_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		NewCollector(nextTestNamespace(), nil)
	})
}

func TestCollector_RecordHTTPRequest(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordHTTPRequest("GET", "/health", 200, 100*time.Millisecond, 0, 64)
	collector.RecordHTTPRequest("POST", "/api/v1/nodes/:name/invoke", 502, time.Second, 256, 128)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("GET", "/health", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("POST", "/api/v1/nodes/:name/invoke", "5xx")))
	assert.Equal(t, 2, testutil.CollectAndCount(collector.httpRequestDuration))
}

func TestCollector_RecordGeneration(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordGeneration("kling-v1-5", "success", 40*time.Second, 3)
	collector.RecordGeneration("kling-v1-5", "error", 2*time.Second, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.generationsTotal.WithLabelValues("kling-v1-5", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.generationsTotal.WithLabelValues("kling-v1-5", "error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(collector.imagesGenerated.WithLabelValues("kling-v1-5")))
}

func TestCollector_StageTransitionsTrackInFlight(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordStageTransition("idle", "credentials_checked")
	collector.RecordStageTransition("credentials_checked", "token_issued")
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.generationsRunning))

	collector.RecordStageTransition("token_issued", "errored")
	assert.Equal(t, 0.0, testutil.ToFloat64(collector.generationsRunning))
	assert.Equal(t, 3, testutil.CollectAndCount(collector.stageTransitions))
}

func TestCollector_RecordPollingAndDownloads(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordPollAttempt("pending")
	collector.RecordPollAttempt("pending")
	collector.RecordPollAttempt("transport_error")
	collector.RecordTaskStatusChange("processing")
	collector.RecordImageDownload("success", 4096, 20*time.Millisecond)
	collector.RecordImageDownload("error", 0, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.pollAttempts.WithLabelValues("pending")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.pollAttempts.WithLabelValues("transport_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.taskStatusChanges.WithLabelValues("processing")))
	assert.Equal(t, 2, testutil.CollectAndCount(collector.downloadsTotal))
}

func TestCollector_ConcurrentRecording(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			collector.RecordHTTPRequest("GET", "/test", 200, 100*time.Millisecond, 1024, 2048)
			collector.RecordPollAttempt("pending")
		}()
	}
	wg.Wait()

	assert.Equal(t, 10.0, testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("GET", "/test", "2xx")))
	assert.Equal(t, 10.0, testutil.ToFloat64(collector.pollAttempts.WithLabelValues("pending")))
}

func TestCollector_MetricsRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()

	// 创建 collector（会自动注册到默认 registry）
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	// 手动注册到自定义 registry
	registry.MustRegister(collector.generationsTotal)

	collector.RecordGeneration("kling-v1", "success", time.Second, 1)

	families, err := registry.Gather()
	assert.NoError(t, err)
	assert.Len(t, families, 1)
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, "2xx", statusCode(204))
	assert.Equal(t, "3xx", statusCode(304))
	assert.Equal(t, "4xx", statusCode(429))
	assert.Equal(t, "5xx", statusCode(503))
	assert.Equal(t, "unknown", statusCode(0))
}
