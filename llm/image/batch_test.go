package image

import (
	"bytes"
	goimage "image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeTestPNG(t *testing.T, w, h int, c color.Color) []byte {
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

func TestDecodeRGB_PNG(t *testing.T) {
	data := encodeTestPNG(t, 3, 2, color.NRGBA{R: 255, G: 51, B: 0, A: 255})

	tensor, err := DecodeRGB(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, 2, tensor.Height)
	assert.Equal(t, 3, tensor.Width)
	assert.Equal(t, 3, tensor.Channels)
	require.Len(t, tensor.Data, 2*3*3)
	assert.InDelta(t, 1.0, tensor.Data[0], 1e-6)
	assert.InDelta(t, 0.2, tensor.Data[1], 1e-6)
	assert.InDelta(t, 0.0, tensor.Data[2], 1e-6)
}

func TestDecodeRGB_DropsAlpha(t *testing.T) {
	data := encodeTestPNG(t, 1, 1, color.NRGBA{R: 255, G: 255, B: 255, A: 0})

	tensor, err := DecodeRGB(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 1, 1}, tensor.Data)
}

func TestDecodeRGB_JPEG(t *testing.T) {
	img := goimage.NewGray(goimage.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 100}))

	tensor, err := DecodeRGB(&buf)
	require.NoError(t, err)
	assert.Equal(t, 8, tensor.Height)
	assert.Equal(t, 8, tensor.Width)
	for _, v := range tensor.Data {
		assert.InDelta(t, 128.0/255, v, 0.02)
	}
}

func TestDecodeRGB_Garbage(t *testing.T) {
	_, err := DecodeRGB(strings.NewReader("definitely not an image"))
	assert.Error(t, err)
}

func TestStack_PreservesOrder(t *testing.T) {
	a := &Tensor{Height: 1, Width: 1, Channels: 3, Data: []float32{0, 0, 0}}
	b := &Tensor{Height: 1, Width: 1, Channels: 3, Data: []float32{1, 1, 1}}

	batch, err := Stack([]*Tensor{a, b})
	require.NoError(t, err)
	assert.Equal(t, [4]int{2, 1, 1, 3}, batch.Shape())
	assert.Equal(t, []float32{0, 0, 0, 1, 1, 1}, batch.Data)

	frame, err := batch.Frame(1)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 1, 1}, frame)
}

func TestStack_Errors(t *testing.T) {
	_, err := Stack(nil)
	assert.Error(t, err)

	a := &Tensor{Height: 1, Width: 1, Channels: 3, Data: make([]float32, 3)}
	b := &Tensor{Height: 2, Width: 1, Channels: 3, Data: make([]float32, 6)}
	_, err = Stack([]*Tensor{a, b})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "image 1")
}

func TestBatch_EncodePNG_RoundTrip(t *testing.T) {
	src := encodeTestPNG(t, 4, 3, color.NRGBA{R: 10, G: 200, B: 90, A: 255})
	tensor, err := DecodeRGB(bytes.NewReader(src))
	require.NoError(t, err)
	batch, err := Stack([]*Tensor{tensor})
	require.NoError(t, err)

	out, err := batch.EncodePNG(0)
	require.NoError(t, err)

	again, err := DecodeRGB(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, tensor.Data, again.Data)

	_, err = batch.EncodePNG(1)
	assert.Error(t, err)
}
