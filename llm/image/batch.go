package image

import (
	"bytes"
	"fmt"
	goimage "image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"math"

	_ "golang.org/x/image/webp"
)

// Channels 每个像素的通道数（RGB）.
const Channels = 3

// Tensor 是单张解码后的图像，布局 HWC，取值 [0,1].
type Tensor struct {
	Height   int
	Width    int
	Channels int
	Data     []float32
}

// Batch 是按顺序堆叠的图像，形状 [N, H, W, C].
type Batch struct {
	N        int
	Height   int
	Width    int
	Channels int
	Data     []float32
	// Seed 是本次生成实际使用的种子.
	Seed int64
}

// Shape 返回 [N, H, W, C].
func (b *Batch) Shape() [4]int {
	return [4]int{b.N, b.Height, b.Width, b.Channels}
}

// Frame 返回第 i 张图像的数据切片（与 Batch 共享底层数组）.
func (b *Batch) Frame(i int) ([]float32, error) {
	if i < 0 || i >= b.N {
		return nil, fmt.Errorf("frame index %d out of range [0, %d)", i, b.N)
	}
	size := b.Height * b.Width * b.Channels
	return b.Data[i*size : (i+1)*size], nil
}

// DecodeRGB 解码 PNG/JPEG/GIF/WebP 图像并转换为 RGB 浮点张量.
// alpha 通道被丢弃，每个分量为 8 位值 / 255.
func DecodeRGB(r io.Reader) (*Tensor, error) {
	img, _, err := goimage.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	bounds := img.Bounds()
	h, w := bounds.Dy(), bounds.Dx()
	if h == 0 || w == 0 {
		return nil, fmt.Errorf("decode image: empty image %dx%d", w, h)
	}

	data := make([]float32, 0, h*w*Channels)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			data = append(data,
				float32(c.R)/255,
				float32(c.G)/255,
				float32(c.B)/255,
			)
		}
	}

	return &Tensor{Height: h, Width: w, Channels: Channels, Data: data}, nil
}

// Stack 按顺序把张量堆叠成批次，所有图像必须尺寸一致.
func Stack(tensors []*Tensor) (*Batch, error) {
	if len(tensors) == 0 {
		return nil, fmt.Errorf("stack: no images")
	}
	first := tensors[0]
	size := first.Height * first.Width * first.Channels
	data := make([]float32, 0, size*len(tensors))
	for i, t := range tensors {
		if t.Height != first.Height || t.Width != first.Width || t.Channels != first.Channels {
			return nil, fmt.Errorf("stack: image %d is %dx%dx%d, expected %dx%dx%d",
				i, t.Height, t.Width, t.Channels, first.Height, first.Width, first.Channels)
		}
		data = append(data, t.Data...)
	}
	return &Batch{
		N:        len(tensors),
		Height:   first.Height,
		Width:    first.Width,
		Channels: first.Channels,
		Data:     data,
	}, nil
}

// EncodePNG 把第 i 张图像重新编码为 PNG.
func (b *Batch) EncodePNG(i int) ([]byte, error) {
	frame, err := b.Frame(i)
	if err != nil {
		return nil, err
	}
	img := goimage.NewNRGBA(goimage.Rect(0, 0, b.Width, b.Height))
	for p := 0; p < b.Width*b.Height; p++ {
		px := frame[p*b.Channels : p*b.Channels+b.Channels]
		img.Pix[p*4+0] = toByte(px[0])
		img.Pix[p*4+1] = toByte(px[1])
		img.Pix[p*4+2] = toByte(px[2])
		img.Pix[p*4+3] = 0xff
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func toByte(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(math.Round(float64(v) * 255))
}
