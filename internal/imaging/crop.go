package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

const (
	MinZoom     = 1.0
	MaxZoom     = 3.0
	jpegQuality = 90
	// MaxDimension 为解码前允许的最大宽高
	MaxDimension = 8000
)

var (
	// ErrInvalidCrop 表示裁剪参数不合法
	ErrInvalidCrop = errors.New("invalid crop")
	// ErrUnsupportedType 表示无法处理的图片类型
	ErrUnsupportedType = errors.New("unsupported image type")
)

// Area 为源图像素坐标下的裁剪区域，与前端裁剪组件输出一致
type Area struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Result 为裁剪后的图片。WebP 没有编码器，输出会改为 PNG
type Result struct {
	Data        []byte
	ContentType string
	Extension   string
}

// Crop 按区域裁剪图片，zoom 只用于校验前端缩放是否在允许范围内
func Crop(src io.Reader, contentType string, area Area, zoom float64) (*Result, error) {
	if zoom < MinZoom || zoom > MaxZoom || math.IsNaN(zoom) {
		return nil, fmt.Errorf("%w: zoom must be between %.0f and %.0f", ErrInvalidCrop, MinZoom, MaxZoom)
	}

	img, err := decode(src, contentType)
	if err != nil {
		return nil, err
	}

	rect := image.Rect(
		int(math.Round(area.X)),
		int(math.Round(area.Y)),
		int(math.Round(area.X))+int(math.Round(area.Width)),
		int(math.Round(area.Y))+int(math.Round(area.Height)),
	).Add(img.Bounds().Min)
	if rect.Dx() <= 0 || rect.Dy() <= 0 || !rect.In(img.Bounds()) {
		return nil, fmt.Errorf("%w: crop area is outside the image", ErrInvalidCrop)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(canvas, canvas.Bounds(), img, rect.Min, draw.Src)

	var buf bytes.Buffer
	switch contentType {
	case "image/jpeg":
		if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
		return &Result{Data: buf.Bytes(), ContentType: "image/jpeg", Extension: "jpg"}, nil
	default:
		if err := png.Encode(&buf, canvas); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
		return &Result{Data: buf.Bytes(), ContentType: "image/png", Extension: "png"}, nil
	}
}

func decode(src io.Reader, contentType string) (image.Image, error) {
	var (
		decodeConfig func(io.Reader) (image.Config, error)
		decodeImage  func(io.Reader) (image.Image, error)
	)
	switch contentType {
	case "image/jpeg":
		decodeConfig, decodeImage = jpeg.DecodeConfig, jpeg.Decode
	case "image/png":
		decodeConfig, decodeImage = png.DecodeConfig, png.Decode
	case "image/webp":
		decodeConfig, decodeImage = webp.DecodeConfig, webp.Decode
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", contentType, err)
	}

	cfg, err := decodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", contentType, err)
	}
	if cfg.Width > MaxDimension || cfg.Height > MaxDimension {
		return nil, fmt.Errorf("%w: image must be at most %dx%d pixels", ErrInvalidCrop, MaxDimension, MaxDimension)
	}

	img, err := decodeImage(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", contentType, err)
	}
	return img, nil
}
