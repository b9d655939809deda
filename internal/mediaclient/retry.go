package mediaclient

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Retry retries DownloadVideo up to maxAttempts with exponential backoff
// starting at baseDelay and capped at maxDelay. Other calls are not
// retried: submitting a job twice would start two jobs. If the context is
// canceled, it stops immediately.
func Retry(maxAttempts int, baseDelay, maxDelay time.Duration) Middleware {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 300 * time.Millisecond
	}
	if maxDelay < baseDelay {
		maxDelay = baseDelay
	}
	return func(next Client) Client {
		return &retrying{passthrough: passthrough{next: next}, max: maxAttempts, base: baseDelay, cap: maxDelay}
	}
}

type retrying struct {
	passthrough
	max  int
	base time.Duration
	cap  time.Duration
}

func (r *retrying) delay(attempt int) time.Duration {
	d := r.base << attempt
	if d <= 0 || d > r.cap {
		return r.cap
	}
	return d
}

func (r *retrying) DownloadVideo(ctx context.Context, video VideoHandle) ([]byte, error) {
	var last error
	for i := 0; i < r.max; i++ {
		data, err := r.next.DownloadVideo(ctx, video)
		if err == nil {
			return data, nil
		}
		// If it's a permanent error, do not retry.
		var pErr *PermanentError
		if errors.As(err, &pErr) {
			return nil, err
		}
		last = err
		if i == r.max-1 {
			break
		}
		t := time.NewTimer(r.delay(i))
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	return nil, &TransientError{Attempts: r.max, Err: last}
}

// TransientError is returned once retries are exhausted.
type TransientError struct {
	Attempts int
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("after %d attempts: %v", e.Attempts, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }
