package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func pngBase64(t *testing.T, img image.Image) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestConcatSize(t *testing.T) {
	h, widths := ConcatSize([]image.Point{{400, 800}, {600, 1200}, {1024, 1024}}, MaxConcatHeight)
	assert.Equal(t, 800, h)
	assert.Equal(t, []int{400, 400, 800}, widths)
}

func TestConcatSizeCapsHeight(t *testing.T) {
	h, widths := ConcatSize([]image.Point{{3000, 2000}, {2000, 2000}}, MaxConcatHeight)
	assert.Equal(t, 1024, h)
	assert.Equal(t, []int{1536, 1024}, widths)
}

func TestConcatSizeTruncatesScaledWidth(t *testing.T) {
	// 100 * (29/100) is just below 29 in floating point.
	h, widths := ConcatSize([]image.Point{{29, 100}}, MaxConcatHeight)
	assert.Equal(t, 100, h)
	assert.Equal(t, []int{28}, widths)
}

func TestConcatenate(t *testing.T) {
	imgs := []image.Image{
		solid(40, 80, color.RGBA{255, 0, 0, 255}),
		solid(60, 120, color.RGBA{0, 255, 0, 255}),
		solid(100, 100, color.RGBA{0, 0, 255, 255}),
	}
	out, err := Concatenate(imgs, MaxConcatHeight)
	require.NoError(t, err)
	assert.Equal(t, 80, out.Bounds().Dy())
	assert.Equal(t, 40+40+80, out.Bounds().Dx())

	r, g, b, _ := out.At(20, 40).RGBA()
	assert.InDelta(t, 0xffff, r, 0x100)
	assert.InDelta(t, 0, g, 0x100)
	assert.InDelta(t, 0, b, 0x100)
	_, _, b, _ = out.At(120, 40).RGBA()
	assert.InDelta(t, 0xffff, b, 0x100)
}

func TestConcatenateRejectsTooFew(t *testing.T) {
	_, err := Concatenate(nil, MaxConcatHeight)
	assert.ErrorIs(t, err, ErrNoImages)
	_, err = Concatenate([]image.Image{solid(2, 2, color.White)}, MaxConcatHeight)
	assert.ErrorIs(t, err, ErrTooFewImages)
}

func TestDecodeBase64AcceptsDataURL(t *testing.T) {
	raw := pngBase64(t, solid(3, 2, color.Black))
	a, err := DecodeBase64(raw)
	require.NoError(t, err)
	b, err := DecodeBase64("data:image/png;base64," + raw)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = DecodeBase64("data:image/png;base64")
	assert.ErrorIs(t, err, ErrInvalidBase64)
	_, err = DecodeBase64("%%%")
	assert.ErrorIs(t, err, ErrInvalidBase64)
}

func TestDecodeStringFlattensAlpha(t *testing.T) {
	img, err := DecodeString(pngBase64(t, solid(2, 2, color.RGBA{})))
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, img.RGBAAt(0, 0))
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := DecodeString(base64.StdEncoding.EncodeToString([]byte("not an image")))
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestDecodeAllKeepsOrder(t *testing.T) {
	payloads := []string{
		pngBase64(t, solid(1, 5, color.White)),
		pngBase64(t, solid(2, 5, color.White)),
		pngBase64(t, solid(3, 5, color.White)),
	}
	imgs, err := DecodeAll(context.Background(), payloads)
	require.NoError(t, err)
	for i, img := range imgs {
		assert.Equal(t, i+1, img.Bounds().Dx())
	}

	_, err = DecodeAll(context.Background(), append(payloads, "!!"))
	assert.ErrorIs(t, err, ErrInvalidBase64)
}

func TestDataURL(t *testing.T) {
	assert.Equal(t, "data:image/png;base64,AQI=", DataURL("image/png", []byte{1, 2}))
}
