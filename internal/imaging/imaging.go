// Package imaging decodes client-supplied images and builds the horizontal
// strips returned by the concatenate endpoint.
package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"math"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
)

// MaxConcatHeight caps the height of a concatenated strip.
const MaxConcatHeight = 1024

var (
	ErrNoImages      = errors.New("no images provided")
	ErrTooFewImages  = errors.New("at least 2 images are required")
	ErrInvalidBase64 = errors.New("image data is not valid base64")
	ErrInvalidImage  = errors.New("image data could not be decoded")
)

// Lanczos3 is a three-lobe Lanczos resampling kernel.
var Lanczos3 = &draw.Kernel{Support: 3, At: func(t float64) float64 {
	if t == 0 {
		return 1
	}
	if t < -3 || t > 3 {
		return 0
	}
	return sinc(t) * sinc(t/3)
}}

func sinc(x float64) float64 {
	x *= math.Pi
	return math.Sin(x) / x
}

// DecodeBase64 accepts raw base64 or a data URL ("data:image/png;base64,...").
func DecodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		i := strings.IndexByte(s, ',')
		if i < 0 {
			return nil, ErrInvalidBase64
		}
		s = s[i+1:]
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// Some clients strip padding.
		if b2, err2 := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "=")); err2 == nil {
			return b2, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidBase64, err)
	}
	return b, nil
}

// Decode parses PNG, JPEG, GIF or WebP bytes.
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return img, format, nil
}

// DecodeString decodes a base64 payload and normalises it to RGB.
func DecodeString(s string) (*image.RGBA, error) {
	data, err := DecodeBase64(s)
	if err != nil {
		return nil, err
	}
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return ToRGB(img), nil
}

// DecodeAll decodes every payload concurrently, preserving order.
func DecodeAll(ctx context.Context, payloads []string) ([]*image.RGBA, error) {
	out := make([]*image.RGBA, len(payloads))
	g, ctx := errgroup.WithContext(ctx)
	for i, p := range payloads {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := DecodeString(p)
			if err != nil {
				return fmt.Errorf("image %d: %w", i+1, err)
			}
			out[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ToRGB flattens img onto an opaque white background.
func ToRGB(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

// ConcatSize returns the strip height and the scaled width of each input.
// Height is the smallest input height, capped at maxHeight.
func ConcatSize(sizes []image.Point, maxHeight int) (int, []int) {
	if len(sizes) == 0 {
		return 0, nil
	}
	h := sizes[0].Y
	for _, s := range sizes[1:] {
		if s.Y < h {
			h = s.Y
		}
	}
	if maxHeight > 0 && h > maxHeight {
		h = maxHeight
	}
	widths := make([]int, len(sizes))
	for i, s := range sizes {
		if s.Y == 0 {
			continue
		}
		// Ratio first, then scale and truncate.
		aspect := float64(s.X) / float64(s.Y)
		widths[i] = int(float64(h) * aspect)
	}
	return h, widths
}

// Concatenate resizes every image to a common height and lays them out left
// to right on a white canvas.
func Concatenate(images []image.Image, maxHeight int) (*image.RGBA, error) {
	switch len(images) {
	case 0:
		return nil, ErrNoImages
	case 1:
		return nil, ErrTooFewImages
	}
	sizes := make([]image.Point, len(images))
	for i, img := range images {
		sizes[i] = img.Bounds().Size()
	}
	h, widths := ConcatSize(sizes, maxHeight)
	total := 0
	for _, w := range widths {
		total += w
	}
	if h <= 0 || total <= 0 {
		return nil, ErrInvalidImage
	}

	canvas := image.NewRGBA(image.Rect(0, 0, total, h))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	x := 0
	for i, img := range images {
		r := image.Rect(x, 0, x+widths[i], h)
		Lanczos3.Scale(canvas, r, img, img.Bounds(), draw.Over, nil)
		x += widths[i]
	}
	return canvas, nil
}

func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURL renders data as a base64 data URL.
func DataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
