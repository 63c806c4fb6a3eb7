package kling

import "time"

// Recorder 接收生成过程中的指标事件.
// internal/metrics.Collector 实现了该接口.
type Recorder interface {
	RecordGeneration(model, status string, duration time.Duration, images int)
	RecordStageTransition(from, to string)
	RecordPollAttempt(outcome string)
	RecordTaskStatusChange(status string)
	RecordImageDownload(status string, bytes int64, duration time.Duration)
}

// 轮询结果分类.
const (
	pollOutcomePending   = "pending"
	pollOutcomeTransport = "transport_error"
	pollOutcomeRejected  = "rejected"
	pollOutcomeSucceed   = "succeed"
	pollOutcomeFailed    = "failed"
)

type nopRecorder struct{}

func (nopRecorder) RecordGeneration(string, string, time.Duration, int) {}
func (nopRecorder) RecordStageTransition(string, string) {}
func (nopRecorder) RecordPollAttempt(string) {}
func (nopRecorder) RecordTaskStatusChange(string) {}
func (nopRecorder) RecordImageDownload(string, int64, time.Duration) {}
