package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kalambet/codevoice/internal/metrics"
	"github.com/kalambet/codevoice/internal/session"
	"github.com/kalambet/codevoice/internal/surface"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Deps holds what the HTTP API needs.
type Deps struct {
	Sessions *session.Manager
	// Token protects /v1 when non-empty.
	Token string
	// BaseURL is the externally visible server address used to build
	// surface URLs, e.g. http://127.0.0.1:4100.
	BaseURL string
}

// NewHandler returns the daemon's HTTP handler: health, metrics, the voice
// surface and the /v1 management API.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Get("/health", handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/surface", surface.NewHandler(deps.Sessions).Routes())

	r.Route("/v1", func(r chi.Router) {
		if deps.Token != "" {
			r.Use(BearerAuth(deps.Token))
		}
		r.Get("/tones", handleTones)
		r.Get("/intents", handleIntents(deps))
		r.Get("/models", handleModels(deps))
		r.Post("/sessions", handleCreateSession(deps))
		r.Delete("/sessions/{id}", handleDeleteSession(deps))
		r.Post("/explain", handleExplain(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
