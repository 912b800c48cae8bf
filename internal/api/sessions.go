package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/codevoice/internal/config"
	"github.com/kalambet/codevoice/internal/intent"
	"github.com/kalambet/codevoice/internal/proxy"
	"github.com/kalambet/codevoice/internal/session"
	"github.com/kalambet/codevoice/internal/surface"
	"github.com/kalambet/codevoice/internal/tone"
)

type CreateSessionRequest struct {
	Code string `json:"code"`
	Tone string `json:"tone"`
	File string `json:"file"`
}

type CreateSessionResponse struct {
	ID         string `json:"id"`
	Tone       string `json:"tone"`
	SurfaceURL string `json:"surface_url"`
}

type ExplainRequest struct {
	Phrase string `json:"phrase"`
	Code   string `json:"code"`
	Tone   string `json:"tone"`
}

type intentView struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

func handleTones(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, tone.All())
}

func handleIntents(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, intentViews(deps.Sessions.Explainer().Catalog()))
	}
}

func intentViews(c *intent.Catalog) []intentView {
	intents := c.Intents()
	out := make([]intentView, len(intents))
	for i, in := range intents {
		out[i] = intentView{Name: in.Name, Description: in.Description, Keywords: in.Keywords}
	}
	return out
}

func handleModels(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eng := deps.Sessions.Explainer().Engine()
		ids, err := eng.ListModels(r.Context())
		if err != nil {
			if errors.Is(err, config.ErrMissingAPIKey) {
				httpError(w, http.StatusUnprocessableEntity, "configuration_error", "%v", err)
				return
			}
			httpError(w, http.StatusBadGateway, "api_error", "failed to list models: %v", err)
			return
		}

		type model struct {
			ID      string `json:"id"`
			Object  string `json:"object"`
			OwnedBy string `json:"owned_by"`
		}
		data := make([]model, len(ids))
		for i, id := range ids {
			data[i] = model{ID: id, Object: "model", OwnedBy: eng.Name()}
		}
		writeJSON(w, http.StatusOK, map[string]any{"object": "list", "data": data})
	}
}

func handleCreateSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req CreateSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		s, err := deps.Sessions.Create(req.Code, req.Tone, req.File)
		if err != nil {
			writePreconditionError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, CreateSessionResponse{
			ID:         s.ID,
			Tone:       s.Tone().Name,
			SurfaceURL: strings.TrimRight(deps.BaseURL, "/") + surface.Path(s.ID),
		})
	}
}

func handleDeleteSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := deps.Sessions.Close(id); err != nil {
			httpError(w, http.StatusNotFound, "not_found_error", "session %s not found", id)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleExplain(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req ExplainRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		resp, err := deps.Sessions.Explain(r.Context(), req.Code, req.Tone, req.Phrase)
		if err != nil {
			if isPrecondition(err) {
				writePreconditionError(w, err)
				return
			}
			slog.Error("explain failed", "error", err)
			if proxy.IsAuthError(err) {
				httpError(w, http.StatusUnprocessableEntity, "configuration_error",
					"the completion service rejected the API key; update it with `codevoice config set-key`")
				return
			}
			httpError(w, http.StatusBadGateway, "api_error", "completion failed: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func isPrecondition(err error) bool {
	return errors.Is(err, session.ErrEmptySelection) ||
		errors.Is(err, session.ErrUnknownTone) ||
		errors.Is(err, config.ErrMissingAPIKey)
}

func writePreconditionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrEmptySelection):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "code is required: select some code first")
	case errors.Is(err, session.ErrUnknownTone):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
	case errors.Is(err, config.ErrMissingAPIKey):
		httpError(w, http.StatusUnprocessableEntity, "configuration_error", "%v", err)
	default:
		httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
	}
}
