package mediaclient

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync/atomic"
)

// FakeClient returns deterministic media for offline runs and tests.
// Video operations complete on the first poll.
type FakeClient struct {
	seq atomic.Int64
}

func NewFakeClient() *FakeClient { return &FakeClient{} }

func (f *FakeClient) Name() string { return "FakeMedia" }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) GenerateImage(ctx context.Context, prompt, aspectRatio string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w, h := fakeSize(aspectRatio)
	return &Response{Parts: []Part{
		TextPart{Text: "fake image for: " + prompt},
		BinaryPart{Data: FakePNG(w, h), MIMEType: "image/png"},
	}}, nil
}

func (f *FakeClient) EditImage(ctx context.Context, prompt string, img Image) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w, h := 64, 64
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(img.Data)); err == nil {
		w, h = cfg.Width, cfg.Height
	}
	return &Response{Parts: []Part{BinaryPart{Data: FakePNG(w, h), MIMEType: "image/png"}}}, nil
}

func (f *FakeClient) AnalyzeImage(ctx context.Context, img Image, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf("fake analysis (%d bytes): %s", len(img.Data), prompt), nil
}

func (f *FakeClient) SubmitVideo(ctx context.Context, job VideoJob) (Operation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if job.Source != nil {
		if _, ok := job.Source.(*fakeVideo); !ok {
			return nil, NewPermanentError(ErrUnknownHandle)
		}
	}
	n := f.seq.Add(1)
	return &fakeOperation{id: fmt.Sprintf("operations/fake-%d", n), seq: n}, nil
}

func (f *FakeClient) PollVideo(ctx context.Context, op Operation) (Operation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cur, ok := op.(*fakeOperation)
	if !ok {
		return nil, NewPermanentError(ErrUnknownOpState)
	}
	return &fakeOperation{id: cur.id, seq: cur.seq, done: true}, nil
}

func (f *FakeClient) DownloadVideo(ctx context.Context, video VideoHandle) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, ok := video.(*fakeVideo)
	if !ok {
		return nil, NewPermanentError(ErrUnknownHandle)
	}
	return FakeMP4(v.uri), nil
}

type fakeVideo struct{ uri string }

func (v *fakeVideo) URI() string { return v.uri }

type fakeOperation struct {
	id   string
	seq  int64
	done bool
}

func (o *fakeOperation) ID() string { return o.id }
func (o *fakeOperation) Done() bool { return o.done }
func (o *fakeOperation) Videos() []VideoHandle {
	if !o.done {
		return nil
	}
	return []VideoHandle{&fakeVideo{uri: fmt.Sprintf("fake://videos/%d", o.seq)}}
}

// FakePNG renders a w*h gradient as PNG.
func FakePNG(w, h int) []byte {
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

// FakeMP4 returns a minimal ftyp box followed by tag, enough for content
// sniffing to report video/mp4.
func FakeMP4(tag string) []byte {
	box := []byte{0, 0, 0, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm', 0, 0, 2, 0, 'i', 's', 'o', 'm', 'm', 'p', '4', '1'}
	return append(box, []byte(tag)...)
}

func fakeSize(aspectRatio string) (int, int) {
	switch aspectRatio {
	case "16:9":
		return 160, 90
	case "9:16":
		return 90, 160
	case "4:3":
		return 120, 90
	case "3:4":
		return 90, 120
	default:
		return 96, 96
	}
}
