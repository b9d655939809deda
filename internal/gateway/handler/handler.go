// Package handler exposes the generation use cases and file management
// over JSON and multipart HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"genstudio/internal/gateway/repository/artifact"
	"genstudio/internal/gateway/service/generation"
	"genstudio/internal/log"
)

// multipartOverhead is allowed on top of the upload limit for form fields
// and part headers.
const multipartOverhead = 1 << 20

// maxJSONBody bounds JSON request bodies; edit and concatenate carry base64
// images inline.
const maxJSONBody = 64 << 20

// GenerationHandler serves /api/v1/gemini.
type GenerationHandler struct {
	svc    *generation.Service
	store  artifact.Store
	limits artifact.Limits
	log    *zap.SugaredLogger
}

func NewGenerationHandler(svc *generation.Service, store artifact.Store, limits artifact.Limits) *GenerationHandler {
	return &GenerationHandler{
		svc:    svc,
		store:  store,
		limits: limits,
		log:    log.Named("handler"),
	}
}

// errorBody is the failure envelope. "detail" keeps existing clients
// working.
type errorBody struct {
	Success bool   `json:"success"`
	Detail  string `json:"detail"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}

// writeError renders a use case failure. Classified errors carry their own
// status; anything else is a 500.
func (h *GenerationHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ge *generation.Error
	if errors.As(err, &ge) {
		status := ge.HTTPStatus()
		if status >= http.StatusInternalServerError {
			h.log.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
		} else {
			h.log.Warnf("%s %s: %v", r.Method, r.URL.Path, err)
		}
		writeJSON(w, status, errorBody{Detail: ge.Detail(), Error: ge.Kind.String()})
		return
	}
	h.log.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
	detail := err.Error()
	if detail == "" {
		detail = "Internal server error"
	}
	writeJSON(w, http.StatusInternalServerError, errorBody{Detail: detail})
}

func (h *GenerationHandler) respond(w http.ResponseWriter, r *http.Request, res *generation.Result, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// decodeJSON reads a JSON body into dst, answering 422 on malformed input.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}
