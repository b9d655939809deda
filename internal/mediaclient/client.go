// Package mediaclient talks to the generative media provider. Clients only
// perform the calls; rate limiting, retries and logging are layered on with
// Middleware.
package mediaclient

import (
	"context"
	"errors"
)

var (
	ErrMissingAPIKey  = errors.New("API key is required")
	ErrNoVideoData    = errors.New("generated video has no downloadable data")
	ErrUnknownHandle  = errors.New("video handle was not produced by this client")
	ErrUnknownOpState = errors.New("operation was not produced by this client")
)

// PermanentError indicates an error that will not resolve with retries.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// Client is the remote generation capability.
type Client interface {
	Name() string
	// GenerateImage is a synchronous text-to-image call.
	GenerateImage(ctx context.Context, prompt string, aspectRatio string) (*Response, error)
	// EditImage sends a prompt together with a source image.
	EditImage(ctx context.Context, prompt string, img Image) (*Response, error)
	// AnalyzeImage returns a free-text description of img.
	AnalyzeImage(ctx context.Context, img Image, prompt string) (string, error)
	// SubmitVideo starts an asynchronous video job.
	SubmitVideo(ctx context.Context, job VideoJob) (Operation, error)
	// PollVideo refreshes the state of op.
	PollVideo(ctx context.Context, op Operation) (Operation, error)
	// DownloadVideo fetches the bytes behind a generated video.
	DownloadVideo(ctx context.Context, video VideoHandle) ([]byte, error)
	Close() error
}

// Image is an inline image payload.
type Image struct {
	Data     []byte
	MIMEType string
}

// Part is one element of a content response: either a TextPart or a
// BinaryPart.
type Part interface {
	isPart()
}

type TextPart struct {
	Text string
}

type BinaryPart struct {
	Data     []byte
	MIMEType string
}

func (TextPart) isPart()   {}
func (BinaryPart) isPart() {}

// Response is the ordered list of parts from every candidate.
type Response struct {
	Parts []Part
}

// Texts returns the text parts in order.
func (r *Response) Texts() []string {
	if r == nil {
		return nil
	}
	var out []string
	for _, p := range r.Parts {
		if t, ok := p.(TextPart); ok {
			out = append(out, t.Text)
		}
	}
	return out
}

// Binaries returns the non-empty binary parts in order.
func (r *Response) Binaries() []BinaryPart {
	if r == nil {
		return nil
	}
	var out []BinaryPart
	for _, p := range r.Parts {
		if b, ok := p.(BinaryPart); ok && len(b.Data) > 0 {
			out = append(out, b)
		}
	}
	return out
}

// VideoHandle is the provider's reference to a generated video. It is the
// only thing that can be used to extend that video; the bytes alone are not
// enough.
type VideoHandle interface {
	URI() string
}

// Operation is a long-running video job.
type Operation interface {
	ID() string
	Done() bool
	// Videos is only meaningful once Done reports true.
	Videos() []VideoHandle
}

// VideoJob describes a text-to-video, image-to-video or extension request.
// Exactly one of Image or Source may be set.
type VideoJob struct {
	Prompt           string
	Image            *Image
	Source           VideoHandle
	AspectRatio      string
	Resolution       string
	PersonGeneration string
	NegativePrompt   string
	DurationSeconds  int
	NumberOfVideos   int
	Fast             bool
}

// Extension reports whether the job continues an existing video.
func (j VideoJob) Extension() bool { return j.Source != nil }
