package kling

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/klingflow/llm/image"
	"github.com/BaSui01/klingflow/types"
)

// Fetch 按顺序下载并解码结果图片.
// 数量与 expected 不一致时直接失败，不发起任何下载；
// 任意一张下载或解码失败都会中止，不返回部分结果.
func (c *Client) Fetch(ctx context.Context, result *TaskResult, expected int) (*image.Batch, error) {
	refs := result.Images()
	if len(refs) != expected {
		return nil, types.Errorf(types.ErrResultCountMismatch, "expected %d images, got %d", expected, len(refs)).
			WithProvider(providerName)
	}

	tensors := make([]*image.Tensor, 0, len(refs))
	for i, ref := range refs {
		t, err := c.download(ctx, i, ref)
		if err != nil {
			return nil, err
		}
		tensors = append(tensors, t)
	}

	batch, err := image.Stack(tensors)
	if err != nil {
		return nil, types.NewError(types.ErrDownloadOrDecode, "failed to stack images").
			WithCause(err).
			WithProvider(providerName)
	}
	return batch, nil
}

// download 获取并解码单张图片。图片 URL 是预签名地址，不带认证头.
func (c *Client) download(ctx context.Context, i int, ref ImageRef) (t *image.Tensor, err error) {
	start := time.Now()
	var size int64
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		c.recorder.RecordImageDownload(status, size, time.Since(start))
	}()

	fail := func(msg string, cause error) error {
		e := types.Errorf(types.ErrDownloadOrDecode, "image %d: %s", i, msg).WithProvider(providerName)
		if cause != nil {
			e = e.WithCause(cause)
		}
		return e
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.DownloadTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodGet, ref.URL, nil)
	if err != nil {
		return nil, fail("invalid url", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("image download aborted: %w", ctxErr)
		}
		return nil, fail("download failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fail(fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	limit := c.cfg.MaxImageBytes
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fail("read failed", err)
	}
	size = int64(len(data))
	if size > limit {
		return nil, fail(fmt.Sprintf("image exceeds %d bytes", limit), nil)
	}

	t, err = image.DecodeRGB(bytes.NewReader(data))
	if err != nil {
		return nil, fail("decode failed", err)
	}

	c.logger.Debug("image downloaded",
		zap.Int("index", i),
		zap.Int64("bytes", size),
		zap.Int("width", t.Width),
		zap.Int("height", t.Height),
	)
	return t, nil
}
