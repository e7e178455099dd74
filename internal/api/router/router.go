package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zyptics/voice-receptionist/internal/http/handlers"
	httpmiddleware "github.com/zyptics/voice-receptionist/internal/http/middleware"
	"github.com/zyptics/voice-receptionist/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	Voice          *handlers.VoiceHandler
	MetricsHandler http.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", cfg.Voice.HealthCheck)
	r.Post("/handle-call", cfg.Voice.HandleCall)
	r.Get("/media-stream/{callSid}", cfg.Voice.MediaStream)
	r.Post("/report-status", cfg.Voice.ReportStatus)
	r.Post("/agent-finished", cfg.Voice.AgentFinished)

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	return r
}
