package engine

import (
	"context"

	"github.com/kalambet/codevoice/internal/composer"
	"github.com/kalambet/codevoice/internal/proxy"
)

// OpenAIEngine adapts proxy.Client to the Engine interface.
type OpenAIEngine struct {
	client *proxy.Client
}

// NewOpenAIEngine creates an OpenAIEngine. An empty baseURL targets the
// public OpenAI API.
func NewOpenAIEngine(keys proxy.KeySource, baseURL string) *OpenAIEngine {
	return &OpenAIEngine{client: proxy.NewClientWithBaseURL(keys, baseURL)}
}

func (e *OpenAIEngine) Name() string { return "openai" }

func (e *OpenAIEngine) Complete(ctx context.Context, req composer.Request) (string, error) {
	msgs := req.Messages()
	out := make([]proxy.Message, len(msgs))
	for i, m := range msgs {
		out[i] = proxy.Message{Role: m.Role, Content: m.Content}
	}

	return e.client.Complete(ctx, proxy.ChatRequest{
		Model:       req.Model,
		Messages:    out,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
}

func (e *OpenAIEngine) ListModels(ctx context.Context) ([]string, error) {
	models, err := e.client.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(models))
	for i, m := range models {
		ids[i] = m.ID
	}
	return ids, nil
}
