package mediaclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	genai "google.golang.org/genai"
)

const (
	DefaultImageModel     = "gemini-2.5-flash-image-preview"
	DefaultAnalysisModel  = "gemini-2.0-flash"
	DefaultVideoModel     = "veo-3.0-generate-001"
	DefaultFastVideoModel = "veo-3.0-fast-generate-001"
	DefaultExtendModel    = "veo-3.1-generate-preview"
)

// Models selects the provider model per capability.
type Models struct {
	Image     string
	Analysis  string
	Video     string
	FastVideo string
	Extend    string
}

func DefaultModels() Models {
	return Models{
		Image:     DefaultImageModel,
		Analysis:  DefaultAnalysisModel,
		Video:     DefaultVideoModel,
		FastVideo: DefaultFastVideoModel,
		Extend:    DefaultExtendModel,
	}
}

func (m Models) withDefaults() Models {
	d := DefaultModels()
	if strings.TrimSpace(m.Image) == "" {
		m.Image = d.Image
	}
	if strings.TrimSpace(m.Analysis) == "" {
		m.Analysis = d.Analysis
	}
	if strings.TrimSpace(m.Video) == "" {
		m.Video = d.Video
	}
	if strings.TrimSpace(m.FastVideo) == "" {
		m.FastVideo = d.FastVideo
	}
	if strings.TrimSpace(m.Extend) == "" {
		m.Extend = d.Extend
	}
	return m
}

// GeminiClient is a thin wrapper around the official genai client.
type GeminiClient struct {
	cli    *genai.Client
	models Models
}

func NewGeminiClient(ctx context.Context, apiKey string, models Models) (*GeminiClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("init genai client: %w", err)
	}
	return &GeminiClient{cli: cli, models: models.withDefaults()}, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.models.Image }
func (g *GeminiClient) Close() error { return nil }

func (g *GeminiClient) GenerateImage(ctx context.Context, prompt string, aspectRatio string) (*Response, error) {
	var cfg *genai.GenerateContentConfig
	if ar := strings.TrimSpace(aspectRatio); ar != "" {
		cfg = &genai.GenerateContentConfig{ImageConfig: &genai.ImageConfig{AspectRatio: ar}}
	}
	resp, err := g.cli.Models.GenerateContent(ctx, g.models.Image,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		cfg,
	)
	if err != nil {
		return nil, classify(err)
	}
	return responseFromGenAI(resp), nil
}

func (g *GeminiClient) EditImage(ctx context.Context, prompt string, img Image) (*Response, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(img.Data, img.MIMEType),
	}
	resp, err := g.cli.Models.GenerateContent(ctx, g.models.Image,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		nil,
	)
	if err != nil {
		return nil, classify(err)
	}
	return responseFromGenAI(resp), nil
}

func (g *GeminiClient) AnalyzeImage(ctx context.Context, img Image, prompt string) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromBytes(img.Data, img.MIMEType),
		genai.NewPartFromText(prompt),
	}
	resp, err := g.cli.Models.GenerateContent(ctx, g.models.Analysis,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		nil,
	)
	if err != nil {
		return "", classify(err)
	}
	return resp.Text(), nil
}

func (g *GeminiClient) SubmitVideo(ctx context.Context, job VideoJob) (Operation, error) {
	model := g.models.Video
	if job.Fast {
		model = g.models.FastVideo
	}
	source := &genai.GenerateVideosSource{Prompt: job.Prompt}
	cfg := &genai.GenerateVideosConfig{
		AspectRatio:      job.AspectRatio,
		Resolution:       job.Resolution,
		PersonGeneration: job.PersonGeneration,
		NegativePrompt:   job.NegativePrompt,
	}
	switch {
	case job.Source != nil:
		v, ok := job.Source.(*geminiVideo)
		if !ok || v.video == nil {
			return nil, NewPermanentError(ErrUnknownHandle)
		}
		model = g.models.Extend
		source.Video = v.video
		// Extension inherits framing from the source video.
		cfg.AspectRatio = ""
		cfg.PersonGeneration = ""
	case job.Image != nil:
		source.Image = &genai.Image{ImageBytes: job.Image.Data, MIMEType: job.Image.MIMEType}
	}
	if job.DurationSeconds > 0 && job.Source == nil {
		d := int32(job.DurationSeconds)
		cfg.DurationSeconds = &d
	}
	if job.NumberOfVideos > 0 {
		cfg.NumberOfVideos = int32(job.NumberOfVideos)
	}

	op, err := g.cli.Models.GenerateVideosFromSource(ctx, model, source, cfg)
	if err != nil {
		return nil, classify(err)
	}
	return &geminiOperation{op: op}, nil
}

func (g *GeminiClient) PollVideo(ctx context.Context, op Operation) (Operation, error) {
	cur, ok := op.(*geminiOperation)
	if !ok || cur.op == nil {
		return nil, NewPermanentError(ErrUnknownOpState)
	}
	next, err := g.cli.Operations.GetVideosOperation(ctx, cur.op, nil)
	if err != nil {
		return nil, classify(err)
	}
	if next.Done && len(next.Error) > 0 {
		return nil, NewPermanentError(fmt.Errorf("video operation %s failed: %v", next.Name, next.Error))
	}
	return &geminiOperation{op: next}, nil
}

func (g *GeminiClient) DownloadVideo(ctx context.Context, video VideoHandle) ([]byte, error) {
	v, ok := video.(*geminiVideo)
	if !ok || v.video == nil {
		return nil, NewPermanentError(ErrUnknownHandle)
	}
	if len(v.video.VideoBytes) > 0 {
		return append([]byte(nil), v.video.VideoBytes...), nil
	}
	if strings.TrimSpace(v.video.URI) == "" {
		return nil, NewPermanentError(ErrNoVideoData)
	}
	data, err := g.cli.Files.Download(ctx, genai.NewDownloadURIFromVideo(v.video), nil)
	if err != nil {
		return nil, classify(err)
	}
	if len(data) == 0 {
		return nil, ErrNoVideoData
	}
	return data, nil
}

type geminiVideo struct {
	video *genai.Video
}

func (v *geminiVideo) URI() string {
	if v == nil || v.video == nil {
		return ""
	}
	return v.video.URI
}

type geminiOperation struct {
	op *genai.GenerateVideosOperation
}

func (o *geminiOperation) ID() string { return o.op.Name }
func (o *geminiOperation) Done() bool { return o.op.Done }

func (o *geminiOperation) Videos() []VideoHandle {
	if o.op.Response == nil {
		return nil
	}
	out := make([]VideoHandle, 0, len(o.op.Response.GeneratedVideos))
	for _, gv := range o.op.Response.GeneratedVideos {
		if gv == nil || gv.Video == nil {
			continue
		}
		out = append(out, &geminiVideo{video: gv.Video})
	}
	return out
}

func responseFromGenAI(resp *genai.GenerateContentResponse) *Response {
	out := &Response{}
	if resp == nil {
		return out
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if p == nil {
				continue
			}
			switch {
			case p.InlineData != nil:
				out.Parts = append(out.Parts, BinaryPart{Data: p.InlineData.Data, MIMEType: p.InlineData.MIMEType})
			case p.Text != "" && !p.Thought:
				out.Parts = append(out.Parts, TextPart{Text: p.Text})
			}
		}
	}
	return out
}

// classify marks client-side API failures (4xx other than 429) as permanent.
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code >= 400 && apiErr.Code < 500 && apiErr.Code != http.StatusTooManyRequests {
			return NewPermanentError(err)
		}
	}
	return err
}
