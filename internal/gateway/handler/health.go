package handler

import (
	"net/http"
	"time"
)

type HealthHandler struct {
	now func() time.Time
}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{now: time.Now}
}

func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": h.now().Format(time.RFC3339Nano),
		"message":   "genstudio gateway is running",
	})
}

func (h *HealthHandler) APIRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "genstudio media generation API",
		"docs":    "/api/v1/gemini/status",
	})
}
