package engine

import (
	"context"

	"github.com/kalambet/codevoice/internal/composer"
)

// Engine abstracts a chat completion backend (a hosted OpenAI-compatible
// service or a local Ollama server). Sessions, the HTTP API and the MCP
// tools depend on this interface instead of a concrete client.
type Engine interface {
	// Name identifies the backend in logs and metrics.
	Name() string

	// Complete sends the request and returns the first choice's text.
	// An empty string means the backend answered without content.
	Complete(ctx context.Context, req composer.Request) (string, error)

	// ListModels returns the model identifiers the backend can serve.
	ListModels(ctx context.Context) ([]string, error)
}

// ModelManager is implemented by local backends that can check for and
// download models before serving.
type ModelManager interface {
	IsRunning(ctx context.Context) bool
	HasModel(ctx context.Context, name string) bool
	PullModel(ctx context.Context, name string, onProgress func(PullProgress)) error
}
