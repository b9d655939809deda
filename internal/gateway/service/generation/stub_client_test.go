package generation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"genstudio/internal/mediaclient"
)

type stubVideo struct{ uri string }

func (v *stubVideo) URI() string { return v.uri }

type stubOperation struct {
	id     string
	done   bool
	videos []mediaclient.VideoHandle
}

func (o *stubOperation) ID() string                        { return o.id }
func (o *stubOperation) Done() bool                        { return o.done }
func (o *stubOperation) Videos() []mediaclient.VideoHandle { return o.videos }

// stubClient is a scriptable mediaclient.Client that counts every call.
type stubClient struct {
	mu    sync.Mutex
	calls  atomic.Int32
	seq    atomic.Int32
	closed atomic.Bool

	imageResp *mediaclient.Response
	editResp  *mediaclient.Response
	analysis  string
	err       error

	// pendingPolls is how many polls report not-done before completion.
	pendingPolls int
	noVideos     bool
	downloadErr  error

	jobs []mediaclient.VideoJob
}

func (c *stubClient) Name() string { return "stub" }
func (c *stubClient) Close() error { c.closed.Store(true); return nil }

func (c *stubClient) GenerateImage(ctx context.Context, prompt, aspectRatio string) (*mediaclient.Response, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return c.imageResp, nil
}

func (c *stubClient) EditImage(ctx context.Context, prompt string, img mediaclient.Image) (*mediaclient.Response, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return c.editResp, nil
}

func (c *stubClient) AnalyzeImage(ctx context.Context, img mediaclient.Image, prompt string) (string, error) {
	c.calls.Add(1)
	if c.err != nil {
		return "", c.err
	}
	return c.analysis + " / " + prompt, nil
}

func (c *stubClient) SubmitVideo(ctx context.Context, job mediaclient.VideoJob) (mediaclient.Operation, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	c.mu.Lock()
	c.jobs = append(c.jobs, job)
	c.mu.Unlock()
	n := c.seq.Add(1)
	op := &stubOperation{id: fmt.Sprintf("op-%d", n)}
	if c.pendingPolls == 0 {
		c.finish(op, n)
	}
	return op, nil
}

func (c *stubClient) PollVideo(ctx context.Context, op mediaclient.Operation) (mediaclient.Operation, error) {
	c.calls.Add(1)
	cur := op.(*stubOperation)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pendingPolls > 0 {
		c.pendingPolls--
		return &stubOperation{id: cur.id}, nil
	}
	next := &stubOperation{id: cur.id}
	c.finish(next, c.seq.Load())
	return next, nil
}

func (c *stubClient) finish(op *stubOperation, n int32) {
	op.done = true
	if !c.noVideos {
		op.videos = []mediaclient.VideoHandle{&stubVideo{uri: fmt.Sprintf("stub://video/%d", n)}}
	}
}

func (c *stubClient) DownloadVideo(ctx context.Context, v mediaclient.VideoHandle) ([]byte, error) {
	c.calls.Add(1)
	if c.downloadErr != nil {
		return nil, c.downloadErr
	}
	return mediaclient.FakeMP4(v.URI()), nil
}

func (c *stubClient) lastJob() mediaclient.VideoJob {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.jobs[len(c.jobs)-1]
}
