package handler

import (
	"errors"
	"io"
	"math"
	"mime"
	"net/http"
	"path"
	"strconv"

	"github.com/gorilla/mux"

	"genstudio/internal/gateway/repository/artifact"
	"genstudio/internal/gateway/service/generation"
)

// fileInfo is one entry of a file listing.
type fileInfo struct {
	Filename string  `json:"filename"`
	URL      string  `json:"url"`
	Size     int64   `json:"size"`
	SizeMB   float64 `json:"size_mb"`
	Modified float64 `json:"modified"`
}

func newFileInfo(a artifact.Artifact) fileInfo {
	return fileInfo{
		Filename: a.Name,
		URL:      a.URL(),
		Size:     a.Size,
		SizeMB:   math.Round(float64(a.Size)/(1024*1024)*100) / 100,
		Modified: float64(a.Modified.UnixMilli()) / 1000,
	}
}

func (h *GenerationHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, artifact.KindImages, "Images listed successfully")
}

func (h *GenerationHandler) ListVideos(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, artifact.KindVideos, "Videos listed successfully")
}

func (h *GenerationHandler) list(w http.ResponseWriter, r *http.Request, kind artifact.Kind, message string) {
	items, err := h.store.List(r.Context(), kind)
	if err != nil {
		h.log.Errorf("list %s: %v", kind, err)
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	files := make([]fileInfo, 0, len(items))
	for _, a := range items {
		files = append(files, newFileInfo(a))
	}
	writeJSON(w, http.StatusOK, &generation.Result{
		Success: true,
		Message: message,
		Data:    map[string]any{"files": files},
	})
}

// Download sends /download/{kind}/{filename} as an attachment.
func (h *GenerationHandler) Download(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind, err := artifact.ParseKind(vars["kind"])
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid file type")
		return
	}
	h.serve(w, r, kind, vars["filename"], true)
}

// ServeOutputs serves /outputs/{kind}/{filename} inline, so artifact URLs
// resolve against any store backend.
func (h *GenerationHandler) ServeOutputs(w http.ResponseWriter, r *http.Request) {
	kind, name, err := artifact.ParseURL(r.URL.Path)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	h.serve(w, r, kind, name, false)
}

func (h *GenerationHandler) serve(w http.ResponseWriter, r *http.Request, kind artifact.Kind, name string, attachment bool) {
	name, err := artifact.CleanName(name)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid filename")
		return
	}
	rc, a, err := h.store.Open(r.Context(), kind, name)
	if errors.Is(err, artifact.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, "File not found")
		return
	}
	if err != nil {
		h.log.Errorf("open %s/%s: %v", kind, name, err)
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer rc.Close()

	if attachment {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Name}))
	} else if ct := mime.TypeByExtension(path.Ext(a.Name)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	if rs, ok := rc.(io.ReadSeeker); ok {
		http.ServeContent(w, r, a.Name, a.Modified, rs)
		return
	}
	if a.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(a.Size, 10))
	}
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, rc); err != nil {
		h.log.Warnf("stream %s/%s: %v", kind, name, err)
	}
}

// UploadVideo stores a client video under a generated name. The multipart
// field is "video".
func (h *GenerationHandler) UploadVideo(w http.ResponseWriter, r *http.Request) {
	if !h.parseMultipart(w, r) {
		return
	}
	data, header, ok := readFormFile(w, r, "video")
	if !ok {
		return
	}
	h.log.Infof("video upload: %s (%d bytes)", header.Filename, len(data))
	if err := artifact.ValidateUpload(artifact.KindVideos, header.Filename, int64(len(data)), h.limits); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	name := artifact.NameFromUpload(artifact.PrefixUpload, header.Filename)
	a, err := h.store.Save(r.Context(), artifact.KindVideos, name, data)
	if err != nil {
		h.log.Errorf("save upload %s: %v", name, err)
		writeDetail(w, http.StatusInternalServerError, "failed to save file: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, &generation.Result{
		Success: true,
		Message: "Video uploaded successfully",
		Data: map[string]any{
			"file_path": a.Path,
			"url":       a.URL(),
			"filename":  a.Name,
		},
	})
}
