package generation

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"slices"
	"strings"

	"genstudio/internal/gateway/repository/artifact"
	"genstudio/internal/imaging"
	"genstudio/internal/log"
	"genstudio/internal/mediaclient"
)

// DefaultAnalysisPrompt is used when an analysis request has no prompt.
const DefaultAnalysisPrompt = "Describe this image in detail"

type ImageRequest struct {
	APIKey      string
	Prompt      string
	AspectRatio string
}

type AnalyzeRequest struct {
	APIKey string
	Prompt string
	Image  UploadedImage
}

type EditRequest struct {
	APIKey string
	Prompt string
	// ImageData is base64 or a data URL.
	ImageData string
}

type ConcatRequest struct {
	// Images are base64 payloads or data URLs, laid out left to right.
	Images []string
}

// GenerateImage stores every image part of the response as its own
// artifact.
func (s *Service) GenerateImage(ctx context.Context, req ImageRequest) (*Result, error) {
	s.log.Infof("generate image: %q", log.Truncate(req.Prompt, 50))
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, validationError(ErrEmptyPrompt)
	}
	aspect := orDefault(req.AspectRatio, DefaultImageAspectRatio)
	if !slices.Contains(AspectRatios, aspect) {
		return nil, validationError(fmt.Errorf("%w: %s", ErrUnsupportedAspectRatio, aspect))
	}
	sess, err := s.session(ctx, req.APIKey)
	if err != nil {
		return nil, err
	}
	resp, err := sess.Client().GenerateImage(ctx, req.Prompt, aspect)
	if err != nil {
		return nil, wrap("Image generation failed", err)
	}

	var (
		saved []artifact.Artifact
		files []string
	)
	for i, part := range resp.Parts {
		bin, isBinary := part.(mediaclient.BinaryPart)
		if !isBinary || len(bin.Data) == 0 {
			continue
		}
		name := artifact.NewName(fmt.Sprintf("generated_image_%d", i), artifact.ExtForMIME(bin.MIMEType))
		a, err := s.save(ctx, artifact.KindImages, name, bin.Data)
		if err != nil {
			s.discard(ctx, saved)
			return nil, err
		}
		saved = append(saved, a)
		files = append(files, a.URL())
	}
	if len(files) == 0 {
		texts := resp.Texts()
		for _, t := range texts {
			s.log.Infof("response text: %s", log.Truncate(t, 200))
			if s.cfg.Refusal.IsRefusal(t) {
				return nil, newError(KindUpstreamRefusal, "Image generation failed: "+t, nil)
			}
		}
		return nil, newError(KindUpstreamEmpty,
			"Image generation failed - no images returned. Please try a different prompt or check your API key.", nil)
	}
	return ok(fmt.Sprintf("Successfully generated %d image(s)", len(files)), map[string]any{"files": files}), nil
}

// AnalyzeImage returns a free-text description of an uploaded image.
func (s *Service) AnalyzeImage(ctx context.Context, req AnalyzeRequest) (*Result, error) {
	s.log.Infof("analyze image: %s", req.Image.Filename)
	if err := artifact.ValidateUpload(artifact.KindImages, req.Image.Filename, int64(len(req.Image.Data)), s.cfg.Upload); err != nil {
		return nil, validationError(err)
	}
	sess, err := s.session(ctx, req.APIKey)
	if err != nil {
		return nil, err
	}
	prompt := orDefault(req.Prompt, DefaultAnalysisPrompt)
	mimeType := strings.TrimSpace(req.Image.MIMEType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(req.Image.Data)
	}
	text, err := sess.Client().AnalyzeImage(ctx, mediaclient.Image{Data: req.Image.Data, MIMEType: mimeType}, prompt)
	if err != nil {
		return nil, wrap("Image analysis failed", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, newError(KindUpstreamEmpty, "Image analysis failed - no text returned", nil)
	}
	return ok("Image analyzed successfully", map[string]any{"analysis": text}), nil
}

// EditImage sends a normalised copy of the image with the prompt. The first
// non-empty image part of the response is the result; text parts only fail
// the request when no image follows.
func (s *Service) EditImage(ctx context.Context, req EditRequest) (*Result, error) {
	s.log.Infof("edit image: %q", log.Truncate(req.Prompt, 50))
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, validationError(ErrEmptyPrompt)
	}
	img, err := imaging.DecodeString(req.ImageData)
	if err != nil {
		return nil, validationError(err)
	}
	source, err := imaging.EncodePNG(img)
	if err != nil {
		return nil, wrap("Image editing failed", err)
	}
	sess, err := s.session(ctx, req.APIKey)
	if err != nil {
		return nil, err
	}
	resp, err := sess.Client().EditImage(ctx, req.Prompt, mediaclient.Image{Data: source, MIMEType: "image/png"})
	if err != nil {
		return nil, wrap("Image editing failed", err)
	}

	var refusal string
	var summary []string
	for i, part := range resp.Parts {
		switch p := part.(type) {
		case mediaclient.TextPart:
			s.log.Infof("edit response part %d text: %s", i, log.Truncate(p.Text, 200))
			summary = append(summary, "text: "+log.Truncate(p.Text, 100))
			if refusal == "" && s.cfg.Refusal.IsRefusal(p.Text) {
				refusal = p.Text
			}
		case mediaclient.BinaryPart:
			if len(p.Data) == 0 {
				s.log.Warnf("edit response part %d has empty image data", i)
				summary = append(summary, "empty image part")
				continue
			}
			a, err := s.save(ctx, artifact.KindImages, artifact.NewName(artifact.PrefixEdited, ".png"), p.Data)
			if err != nil {
				return nil, err
			}
			return ok("Image edited successfully", map[string]any{
				"file":           a.URL(),
				"image_data_url": imaging.DataURL("image/png", p.Data),
			}), nil
		}
	}
	if refusal != "" {
		return nil, newError(KindUpstreamRefusal, "Image editing failed: "+refusal, nil)
	}
	msg := "No image data found in API response"
	if len(summary) > 0 {
		msg += ". Response contains: " + strings.Join(summary, ", ")
	}
	return nil, newError(KindUpstreamEmpty, msg, nil)
}

// ConcatenateImages joins the images side by side. It runs locally and
// needs no credential.
func (s *Service) ConcatenateImages(ctx context.Context, req ConcatRequest) (*Result, error) {
	s.log.Infof("concatenate %d images", len(req.Images))
	switch len(req.Images) {
	case 0:
		return nil, validationError(imaging.ErrNoImages)
	case 1:
		return nil, validationError(imaging.ErrTooFewImages)
	}
	decoded, err := imaging.DecodeAll(ctx, req.Images)
	if err != nil {
		return nil, wrap("Image concatenation failed", err)
	}
	images := make([]image.Image, len(decoded))
	for i, d := range decoded {
		images[i] = d
	}
	out, err := imaging.Concatenate(images, imaging.MaxConcatHeight)
	if err != nil {
		return nil, wrap("Image concatenation failed", err)
	}
	data, err := imaging.EncodePNG(out)
	if err != nil {
		return nil, wrap("Image concatenation failed", err)
	}
	name := artifact.NewName(fmt.Sprintf("concatenated_%dimages", len(req.Images)), ".png")
	a, err := s.save(ctx, artifact.KindImages, name, data)
	if err != nil {
		return nil, err
	}
	b := out.Bounds()
	return ok(fmt.Sprintf("Successfully concatenated %d images", len(req.Images)), map[string]any{
		"file":           a.URL(),
		"image_data_url": imaging.DataURL("image/png", data),
		"width":          b.Dx(),
		"height":         b.Dy(),
		"image_count":    len(req.Images),
	}), nil
}
