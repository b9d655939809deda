package handler

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"genstudio/internal/gateway/service/generation"
)

type imageGenerationRequest struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspect_ratio"`
	APIKey      string `json:"api_key"`
}

type textToVideoRequest struct {
	Prompt           string `json:"prompt"`
	PersonGeneration string `json:"person_generation"`
	AspectRatio      string `json:"aspect_ratio"`
	NegativePrompt   string `json:"negative_prompt"`
	DurationSeconds  int    `json:"duration_seconds"`
	Resolution       string `json:"resolution"`
	Fast             bool   `json:"fast"`
	APIKey           string `json:"api_key"`
}

type imageEditRequest struct {
	Prompt    string `json:"prompt"`
	ImageData string `json:"image_data"`
	APIKey    string `json:"api_key"`
}

type imageConcatRequest struct {
	Images []string `json:"images"`
	APIKey string   `json:"api_key"`
}

type videoExtendRequest struct {
	Filename   string `json:"filename"`
	Prompt     string `json:"prompt"`
	Resolution string `json:"resolution"`
	APIKey     string `json:"api_key"`
}

func (h *GenerationHandler) GenerateImage(w http.ResponseWriter, r *http.Request) {
	var in imageGenerationRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	res, err := h.svc.GenerateImage(r.Context(), generation.ImageRequest{
		APIKey:      in.APIKey,
		Prompt:      in.Prompt,
		AspectRatio: in.AspectRatio,
	})
	h.respond(w, r, res, err)
}

func (h *GenerationHandler) GenerateVideoFromText(w http.ResponseWriter, r *http.Request) {
	var in textToVideoRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	res, err := h.svc.GenerateVideoFromText(r.Context(), generation.VideoRequest{
		APIKey:           in.APIKey,
		Prompt:           in.Prompt,
		AspectRatio:      in.AspectRatio,
		Resolution:       in.Resolution,
		PersonGeneration: in.PersonGeneration,
		NegativePrompt:   in.NegativePrompt,
		DurationSeconds:  in.DurationSeconds,
		Fast:             in.Fast,
	})
	h.respond(w, r, res, err)
}

// GenerateVideoFromImage takes multipart fields prompt, image and the
// optional video parameters.
func (h *GenerationHandler) GenerateVideoFromImage(w http.ResponseWriter, r *http.Request) {
	if !h.parseMultipart(w, r) {
		return
	}
	img, ok := h.formImage(w, r, "image")
	if !ok {
		return
	}
	duration, ok := formInt(w, r, "duration_seconds")
	if !ok {
		return
	}
	res, err := h.svc.GenerateVideoFromImage(r.Context(), generation.VideoRequest{
		APIKey:           r.FormValue("api_key"),
		Prompt:           r.FormValue("prompt"),
		AspectRatio:      r.FormValue("aspect_ratio"),
		Resolution:       r.FormValue("resolution"),
		PersonGeneration: r.FormValue("person_generation"),
		NegativePrompt:   r.FormValue("negative_prompt"),
		DurationSeconds:  duration,
		Fast:             formBool(r, "fast"),
		Image:            img,
	})
	h.respond(w, r, res, err)
}

// AnalyzeImage takes multipart fields image and analysis_prompt.
func (h *GenerationHandler) AnalyzeImage(w http.ResponseWriter, r *http.Request) {
	if !h.parseMultipart(w, r) {
		return
	}
	img, ok := h.formImage(w, r, "image")
	if !ok {
		return
	}
	res, err := h.svc.AnalyzeImage(r.Context(), generation.AnalyzeRequest{
		APIKey: r.FormValue("api_key"),
		Prompt: r.FormValue("analysis_prompt"),
		Image:  *img,
	})
	h.respond(w, r, res, err)
}

func (h *GenerationHandler) EditImage(w http.ResponseWriter, r *http.Request) {
	var in imageEditRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	res, err := h.svc.EditImage(r.Context(), generation.EditRequest{
		APIKey:    in.APIKey,
		Prompt:    in.Prompt,
		ImageData: in.ImageData,
	})
	h.respond(w, r, res, err)
}

func (h *GenerationHandler) ConcatenateImages(w http.ResponseWriter, r *http.Request) {
	var in imageConcatRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	res, err := h.svc.ConcatenateImages(r.Context(), generation.ConcatRequest{Images: in.Images})
	h.respond(w, r, res, err)
}

func (h *GenerationHandler) ExtendVideo(w http.ResponseWriter, r *http.Request) {
	var in videoExtendRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	res, err := h.svc.ExtendVideo(r.Context(), generation.ExtendRequest{
		APIKey:     in.APIKey,
		Filename:   in.Filename,
		Prompt:     in.Prompt,
		Resolution: in.Resolution,
	})
	h.respond(w, r, res, err)
}

// Status reports the caller's session. The credential is read from the
// api_key query parameter or the X-API-Key header.
func (h *GenerationHandler) Status(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("api_key")
	if key == "" {
		key = r.Header.Get("X-API-Key")
	}
	writeJSON(w, http.StatusOK, h.svc.Status(key))
}

// ---- Multipart helpers ----

func (h *GenerationHandler) parseMultipart(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.limits.MaxBytes()+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return false
	}
	return true
}

func (h *GenerationHandler) formImage(w http.ResponseWriter, r *http.Request, field string) (*generation.UploadedImage, bool) {
	data, header, ok := readFormFile(w, r, field)
	if !ok {
		return nil, false
	}
	return &generation.UploadedImage{
		Filename: header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Data:     data,
	}, true
}

func readFormFile(w http.ResponseWriter, r *http.Request, field string) ([]byte, *multipart.FileHeader, bool) {
	file, header, err := r.FormFile(field)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "missing file field "+strconv.Quote(field))
		return nil, nil, false
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "failed to read upload: "+err.Error())
		return nil, nil, false
	}
	return data, header, true
}

func formInt(w http.ResponseWriter, r *http.Request, field string) (int, bool) {
	raw := strings.TrimSpace(r.FormValue(field))
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, field+" must be an integer")
		return 0, false
	}
	return n, true
}

func formBool(r *http.Request, field string) bool {
	v, _ := strconv.ParseBool(strings.TrimSpace(r.FormValue(field)))
	return v
}
