package mediaclient

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"genstudio/internal/log"
)

// Middleware decorates a Client to inject cross-cutting concerns
// (rate limiting, retries, logging).
type Middleware func(Client) Client

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner Client, mws ...Middleware) Client {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// passthrough forwards every call; decorators embed it and override what
// they care about.
type passthrough struct {
	next Client
}

func (p passthrough) Name() string { return p.next.Name() }
func (p passthrough) Close() error { return p.next.Close() }
func (p passthrough) GenerateImage(ctx context.Context, prompt, aspectRatio string) (*Response, error) {
	return p.next.GenerateImage(ctx, prompt, aspectRatio)
}
func (p passthrough) EditImage(ctx context.Context, prompt string, img Image) (*Response, error) {
	return p.next.EditImage(ctx, prompt, img)
}
func (p passthrough) AnalyzeImage(ctx context.Context, img Image, prompt string) (string, error) {
	return p.next.AnalyzeImage(ctx, img, prompt)
}
func (p passthrough) SubmitVideo(ctx context.Context, job VideoJob) (Operation, error) {
	return p.next.SubmitVideo(ctx, job)
}
func (p passthrough) PollVideo(ctx context.Context, op Operation) (Operation, error) {
	return p.next.PollVideo(ctx, op)
}
func (p passthrough) DownloadVideo(ctx context.Context, video VideoHandle) ([]byte, error) {
	return p.next.DownloadVideo(ctx, video)
}

// -------- Rate Limiting --------

// RateLimit throttles every remote call to rps with the given burst.
// If rps <= 0, the limiter is disabled.
func RateLimit(rps float64, burst int) Middleware {
	return func(next Client) Client {
		if rps <= 0 {
			return next
		}
		if burst <= 0 {
			burst = 1
		}
		return &rateLimited{passthrough: passthrough{next: next}, rl: rate.NewLimiter(rate.Limit(rps), burst)}
	}
}

type rateLimited struct {
	passthrough
	rl *rate.Limiter
}

func (r *rateLimited) GenerateImage(ctx context.Context, prompt, aspectRatio string) (*Response, error) {
	if err := r.rl.Wait(ctx); err != nil {
		return nil, err
	}
	return r.next.GenerateImage(ctx, prompt, aspectRatio)
}

func (r *rateLimited) EditImage(ctx context.Context, prompt string, img Image) (*Response, error) {
	if err := r.rl.Wait(ctx); err != nil {
		return nil, err
	}
	return r.next.EditImage(ctx, prompt, img)
}

func (r *rateLimited) AnalyzeImage(ctx context.Context, img Image, prompt string) (string, error) {
	if err := r.rl.Wait(ctx); err != nil {
		return "", err
	}
	return r.next.AnalyzeImage(ctx, img, prompt)
}

func (r *rateLimited) SubmitVideo(ctx context.Context, job VideoJob) (Operation, error) {
	if err := r.rl.Wait(ctx); err != nil {
		return nil, err
	}
	return r.next.SubmitVideo(ctx, job)
}

func (r *rateLimited) PollVideo(ctx context.Context, op Operation) (Operation, error) {
	if err := r.rl.Wait(ctx); err != nil {
		return nil, err
	}
	return r.next.PollVideo(ctx, op)
}

func (r *rateLimited) DownloadVideo(ctx context.Context, video VideoHandle) ([]byte, error) {
	if err := r.rl.Wait(ctx); err != nil {
		return nil, err
	}
	return r.next.DownloadVideo(ctx, video)
}

// -------- Logging --------

// WithLogging logs each call and its error. Pass nil to use a logger named
// "mediaclient".
func WithLogging(logger *zap.SugaredLogger) Middleware {
	if logger == nil {
		logger = log.Named("mediaclient")
	}
	return func(next Client) Client {
		return &logging{passthrough: passthrough{next: next}, log: logger}
	}
}

type logging struct {
	passthrough
	log *zap.SugaredLogger
}

func (l *logging) GenerateImage(ctx context.Context, prompt, aspectRatio string) (*Response, error) {
	l.log.Infof("generate image (%s): prompt=%q aspect=%s", l.next.Name(), log.Truncate(prompt, 50), aspectRatio)
	resp, err := l.next.GenerateImage(ctx, prompt, aspectRatio)
	if err != nil {
		l.log.Errorf("generate image error: %v", err)
	}
	return resp, err
}

func (l *logging) EditImage(ctx context.Context, prompt string, img Image) (*Response, error) {
	l.log.Infof("edit image (%s): prompt=%q image=%d bytes", l.next.Name(), log.Truncate(prompt, 50), len(img.Data))
	resp, err := l.next.EditImage(ctx, prompt, img)
	if err != nil {
		l.log.Errorf("edit image error: %v", err)
	}
	return resp, err
}

func (l *logging) AnalyzeImage(ctx context.Context, img Image, prompt string) (string, error) {
	l.log.Infof("analyze image (%s): image=%d bytes", l.next.Name(), len(img.Data))
	text, err := l.next.AnalyzeImage(ctx, img, prompt)
	if err != nil {
		l.log.Errorf("analyze image error: %v", err)
	}
	return text, err
}

func (l *logging) SubmitVideo(ctx context.Context, job VideoJob) (Operation, error) {
	l.log.Infof("submit video: prompt=%q aspect=%s resolution=%s person=%s duration=%d extension=%t image=%t",
		log.Truncate(job.Prompt, 100), job.AspectRatio, job.Resolution, job.PersonGeneration,
		job.DurationSeconds, job.Extension(), job.Image != nil)
	op, err := l.next.SubmitVideo(ctx, job)
	if err != nil {
		l.log.Errorf("submit video error: %v", err)
		return nil, err
	}
	l.log.Infof("video operation started: %s", op.ID())
	return op, nil
}

func (l *logging) PollVideo(ctx context.Context, op Operation) (Operation, error) {
	next, err := l.next.PollVideo(ctx, op)
	if err != nil {
		l.log.Errorf("poll video %s error: %v", op.ID(), err)
		return nil, err
	}
	l.log.Debugf("poll video %s: done=%t", next.ID(), next.Done())
	return next, nil
}

func (l *logging) DownloadVideo(ctx context.Context, video VideoHandle) ([]byte, error) {
	data, err := l.next.DownloadVideo(ctx, video)
	if err != nil {
		l.log.Warnf("download video %s error: %v", video.URI(), err)
		return nil, err
	}
	l.log.Infof("downloaded video %s: %d bytes", video.URI(), len(data))
	return data, nil
}
