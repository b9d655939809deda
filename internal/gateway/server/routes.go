package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"genstudio/internal/gateway/handler"
	"genstudio/internal/gateway/middleware"
	"genstudio/internal/gateway/repository/artifact"
	"genstudio/internal/log"
)

// APIPrefix is where the generation endpoints live.
const APIPrefix = "/api/v1/gemini"

func NewMux(
	generationHandler *handler.GenerationHandler,
	healthHandler *handler.HealthHandler,
) http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/health", healthHandler.Health).Methods(http.MethodGet)
	router.HandleFunc("/api", healthHandler.APIRoot).Methods(http.MethodGet)

	// API routes are registered with their full path on the root router: a
	// subrouter answers 404 instead of 405 on a method mismatch.
	api := func(path string, h http.HandlerFunc, methods ...string) {
		router.HandleFunc(APIPrefix+path, h).Methods(methods...)
	}

	// Generation
	api("/generate/image", generationHandler.GenerateImage, http.MethodPost)
	api("/generate/video/text", generationHandler.GenerateVideoFromText, http.MethodPost)
	api("/generate/video/image", generationHandler.GenerateVideoFromImage, http.MethodPost)
	api("/analyze/image", generationHandler.AnalyzeImage, http.MethodPost)
	api("/edit/image", generationHandler.EditImage, http.MethodPost)
	api("/concatenate/images", generationHandler.ConcatenateImages, http.MethodPost)
	api("/extend/video", generationHandler.ExtendVideo, http.MethodPost)
	api("/status", generationHandler.Status, http.MethodGet)

	// Files
	api("/files/images", generationHandler.ListImages, http.MethodGet)
	api("/files/videos", generationHandler.ListVideos, http.MethodGet)
	api("/download/{kind}/{filename}", generationHandler.Download, http.MethodGet, http.MethodHead)
	api("/upload/video", generationHandler.UploadVideo, http.MethodPost)

	router.PathPrefix(artifact.URLPrefix).HandlerFunc(generationHandler.ServeOutputs).Methods(http.MethodGet, http.MethodHead)

	// Middleware
	logger := log.Named("http")
	return middleware.CORS(middleware.Logging(logger, middleware.Recover(logger, router)))
}
