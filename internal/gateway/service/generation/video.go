package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"genstudio/internal/gateway/repository/artifact"
	"genstudio/internal/log"
	"genstudio/internal/mediaclient"
)

// DefaultExtendPrompt is used when an extension request has no prompt.
const DefaultExtendPrompt = "Extend this video naturally, continuing the action and maintaining the same style and quality."

// NotExtendableMessage explains the session rule to the caller.
const NotExtendableMessage = "This video cannot be extended: only videos generated in the current session can be extended. " +
	"Generate a new video first, then extend it while the session is still active."

// UploadedImage is an image sent by the client as a multipart file.
type UploadedImage struct {
	Filename string
	MIMEType string
	Data     []byte
}

type VideoRequest struct {
	APIKey           string
	Prompt           string
	AspectRatio      string
	Resolution       string
	PersonGeneration string
	NegativePrompt   string
	DurationSeconds  int
	// Fast selects the faster, lower quality model.
	Fast bool
	// Image is required for image-to-video and ignored otherwise.
	Image *UploadedImage
}

func (r VideoRequest) withDefaults() VideoRequest {
	r.AspectRatio = orDefault(r.AspectRatio, DefaultVideoAspectRatio)
	r.Resolution = orDefault(r.Resolution, DefaultResolution)
	r.PersonGeneration = orDefault(r.PersonGeneration, DefaultPersonGeneration)
	return r
}

type ExtendRequest struct {
	APIKey string
	// Filename is the reference returned by an earlier generation, e.g.
	// /outputs/videos/text_to_video_20250101_120000_abcd1234.mp4.
	Filename   string
	Prompt     string
	Resolution string
}

// GenerateVideoFromText produces a root video from a prompt.
func (s *Service) GenerateVideoFromText(ctx context.Context, req VideoRequest) (*Result, error) {
	req = req.withDefaults()
	s.log.Infof("video from text: %q", log.Truncate(req.Prompt, 50))

	job, err := s.videoJob(req)
	if err != nil {
		return nil, err
	}
	if err := ValidateVideoParams(req.AspectRatio, req.Resolution, req.PersonGeneration); err != nil {
		return nil, validationError(err)
	}
	sess, err := s.session(ctx, req.APIKey)
	if err != nil {
		return nil, err
	}
	a, err := s.runVideo(ctx, sess, job, artifact.PrefixTextToVideo, "")
	if err != nil {
		return nil, err
	}
	return ok("Video generated successfully", map[string]any{"file": a.URL()}), nil
}

// GenerateVideoFromImage animates an uploaded image into a root video.
func (s *Service) GenerateVideoFromImage(ctx context.Context, req VideoRequest) (*Result, error) {
	req = req.withDefaults()
	s.log.Infof("video from image: %q", log.Truncate(req.Prompt, 50))

	if req.Image == nil || len(req.Image.Data) == 0 {
		return nil, validationError(artifact.ErrEmptyContent)
	}
	if err := artifact.ValidateUpload(artifact.KindImages, req.Image.Filename, int64(len(req.Image.Data)), s.cfg.Upload); err != nil {
		return nil, validationError(err)
	}
	job, err := s.videoJob(req)
	if err != nil {
		return nil, err
	}
	if err := ValidateImageToVideoParams(req.AspectRatio, req.Resolution, req.PersonGeneration); err != nil {
		return nil, validationError(err)
	}
	sess, err := s.session(ctx, req.APIKey)
	if err != nil {
		return nil, err
	}
	mimeType := strings.TrimSpace(req.Image.MIMEType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(req.Image.Data)
	}
	job.Image = &mediaclient.Image{Data: req.Image.Data, MIMEType: mimeType}

	a, err := s.runVideo(ctx, sess, job, artifact.PrefixImageToVideo, "")
	if err != nil {
		return nil, err
	}
	return ok("Video generated successfully", map[string]any{"file": a.URL()}), nil
}

// ExtendVideo continues a video produced earlier in the same session. The
// provider needs the original handle, so unknown references fail without a
// remote call.
func (s *Service) ExtendVideo(ctx context.Context, req ExtendRequest) (*Result, error) {
	ref := canonicalVideoRef(req.Filename)
	s.log.Infof("extend video: %s", ref)

	resolution := orDefault(req.Resolution, DefaultResolution)
	if err := ValidateResolution(resolution); err != nil {
		return nil, validationError(err)
	}
	if ref == "" {
		return nil, validationError(errors.New("filename is required"))
	}
	sess, err := s.session(ctx, req.APIKey)
	if err != nil {
		return nil, err
	}
	handle, err := sess.Lineage().HandleOf(ref)
	if err != nil {
		s.log.Warnf("extend rejected, %s is not in this session's lineage", ref)
		return nil, newError(KindNotExtendable, NotExtendableMessage, nil)
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		prompt = DefaultExtendPrompt
	}
	job := mediaclient.VideoJob{
		Prompt:         prompt,
		Source:         handle,
		Resolution:     resolution,
		NumberOfVideos: 1,
	}
	a, err := s.runVideo(ctx, sess, job, artifact.PrefixExtended, ref)
	if err != nil {
		return nil, err
	}
	return ok("Video extended successfully", map[string]any{
		"file":  a.URL(),
		"chain": sess.Lineage().ChainOf(a.URL()),
	}), nil
}

func (s *Service) videoJob(req VideoRequest) (mediaclient.VideoJob, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return mediaclient.VideoJob{}, validationError(ErrEmptyPrompt)
	}
	duration, err := normalizeDuration(req.DurationSeconds)
	if err != nil {
		return mediaclient.VideoJob{}, validationError(err)
	}
	return mediaclient.VideoJob{
		Prompt:           req.Prompt,
		AspectRatio:      req.AspectRatio,
		Resolution:       req.Resolution,
		PersonGeneration: req.PersonGeneration,
		NegativePrompt:   strings.TrimSpace(req.NegativePrompt),
		DurationSeconds:  duration,
		Fast:             req.Fast,
	}, nil
}

// runVideo submits job, waits for it, stores the first video and records it
// in the session lineage under parent ("" for a root video).
func (s *Service) runVideo(ctx context.Context, sess *Session, job mediaclient.VideoJob, prefix, parent string) (artifact.Artifact, error) {
	client := sess.Client()
	op, err := client.SubmitVideo(ctx, job)
	if err != nil {
		return artifact.Artifact{}, wrap("video generation failed", err)
	}
	op, err = s.wait(ctx, client, op)
	if err != nil {
		return artifact.Artifact{}, err
	}
	videos := op.Videos()
	if len(videos) == 0 {
		return artifact.Artifact{}, newError(KindUpstreamEmpty, "video generation finished without producing a video", nil)
	}
	if len(videos) > 1 {
		s.log.Infof("operation %s returned %d videos, keeping the first", op.ID(), len(videos))
	}

	data, err := client.DownloadVideo(ctx, videos[0])
	if err != nil {
		return artifact.Artifact{}, wrap("failed to download video", err)
	}
	a, err := s.save(ctx, artifact.KindVideos, artifact.NewName(prefix, ".mp4"), data)
	if err != nil {
		return artifact.Artifact{}, err
	}
	if !sess.Lineage().Record(a.URL(), videos[0], parent) {
		s.log.Warnf("lineage already has %s", a.URL())
	}
	return a, nil
}

// wait polls op every PollInterval until it is done or VideoTimeout passes.
func (s *Service) wait(ctx context.Context, client mediaclient.Client, op mediaclient.Operation) (mediaclient.Operation, error) {
	if op.Done() {
		return op, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.VideoTimeout)
	defer cancel()

	started := time.Now()
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, newError(KindTransient, fmt.Sprintf("video generation did not finish within %s", s.cfg.VideoTimeout), ctx.Err())
			}
			return nil, wrap("video generation canceled", ctx.Err())
		case <-ticker.C:
		}
		s.log.Infof("waiting for video generation %s (%s elapsed)", op.ID(), time.Since(started).Round(time.Second))
		next, err := client.PollVideo(ctx, op)
		if err != nil {
			return nil, wrap("video generation failed", err)
		}
		if next.Done() {
			return next, nil
		}
		op = next
	}
}

// canonicalVideoRef maps the accepted spellings of a video reference onto
// the /outputs/videos/{name} form used as lineage key.
func canonicalVideoRef(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	kind, name, err := artifact.ParseURL(ref)
	if err != nil || kind != artifact.KindVideos {
		return ref
	}
	return artifact.URLFor(kind, name)
}
