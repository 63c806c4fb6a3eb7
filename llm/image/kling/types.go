package kling

import (
	"strings"

	"github.com/BaSui01/klingflow/types"
)

// providerName 写入 types.Error.Provider.
const providerName = "kling"

// Credentials 是调用方提供的密钥对.
type Credentials struct {
	AccessKey string
	SecretKey string
}

// Trimmed 返回去除首尾空白后的密钥对.
func (c Credentials) Trimmed() Credentials {
	return Credentials{
		AccessKey: strings.TrimSpace(c.AccessKey),
		SecretKey: strings.TrimSpace(c.SecretKey),
	}
}

// Validate 任一密钥去空白后为空时返回 ErrInvalidCredentials.
func (c Credentials) Validate() error {
	t := c.Trimmed()
	if t.AccessKey == "" || t.SecretKey == "" {
		return types.NewError(types.ErrInvalidCredentials, "access key and secret key must not be empty").
			WithProvider(providerName)
	}
	return nil
}

// JobHandle 是提交成功后远端分配的任务标识.
type JobHandle struct {
	TaskID string
}

// TaskStatus 远端任务状态.
type TaskStatus string

const (
	StatusSubmitted  TaskStatus = "submitted"
	StatusProcessing TaskStatus = "processing"
	StatusSucceed    TaskStatus = "succeed"
	StatusFailed     TaskStatus = "failed"
)

// IsTerminal 只有 succeed 和 failed 是终态，未知值按非终态处理.
func (s TaskStatus) IsTerminal() bool {
	return s == StatusSucceed || s == StatusFailed
}

// ImageRef 描述一张待下载的结果图片.
type ImageRef struct {
	Index int    `json:"index"`
	URL   string `json:"url"`
}

// TaskResult 是一次状态查询返回的任务数据.
type TaskResult struct {
	TaskID    string     `json:"task_id"`
	Status    TaskStatus `json:"task_status"`
	StatusMsg string     `json:"task_status_msg,omitempty"`
	CreatedAt int64      `json:"created_at,omitempty"`
	UpdatedAt int64      `json:"updated_at,omitempty"`
	Result    struct {
		Images []ImageRef `json:"images"`
	} `json:"task_result"`
}

// Images 返回结果图片列表.
func (r *TaskResult) Images() []ImageRef {
	return r.Result.Images
}

// Stage 是一次生成调用所处的阶段.
type Stage string

const (
	StageIdle               Stage = "idle"
	StageCredentialsChecked Stage = "credentials_checked"
	StageTokenIssued        Stage = "token_issued"
	StageSubmitted          Stage = "submitted"
	StagePolling            Stage = "polling"
	StageFetching           Stage = "fetching"
	StageDone               Stage = "done"
	StageErrored            Stage = "errored"
)

// createTaskRequest 提交任务的请求体.
type createTaskRequest struct {
	ModelName      string  `json:"model_name"`
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt"`
	AspectRatio    string  `json:"aspect_ratio"`
	N              int     `json:"n"`
	Strength       float64 `json:"strength"`
	Seed           int64   `json:"seed"`
}

// createTaskData 提交成功后 data 字段.
type createTaskData struct {
	TaskID     string     `json:"task_id"`
	TaskStatus TaskStatus `json:"task_status"`
}
