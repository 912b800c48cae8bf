package engine

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/kalambet/codevoice/internal/composer"
)

// EnsureReady prepares e for serving. Hosted backends need nothing. Local
// backends (ModelManager) must be reachable; a missing model is pulled with
// progress written to w and then warmed up so the first spoken request
// doesn't pay the cold-load penalty.
func EnsureReady(ctx context.Context, e Engine, model string, w io.Writer) error {
	mm, ok := e.(ModelManager)
	if !ok {
		return nil
	}

	if !mm.IsRunning(ctx) {
		return fmt.Errorf("%s is not running; start it (for Ollama: ollama serve) or set completion.backend=openai", e.Name())
	}
	if model == "" {
		return nil
	}

	if mm.HasModel(ctx, model) {
		fmt.Fprintf(w, "model %s: ready\n", model)
	} else {
		fmt.Fprintf(w, "model %s: pulling...\n", model)
		err := mm.PullModel(ctx, model, func(p PullProgress) {
			if p.Total > 0 {
				pct := float64(p.Completed) / float64(p.Total) * 100
				fmt.Fprintf(w, "  %s %.0f%%\n", p.Status, pct)
			} else {
				fmt.Fprintf(w, "  %s\n", p.Status)
			}
		})
		if err != nil {
			return fmt.Errorf("pulling model %s: %w", model, err)
		}
		fmt.Fprintf(w, "model %s: ready\n", model)
	}

	fmt.Fprintf(w, "model %s: warming up...\n", model)
	warmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	_, err := e.Complete(warmCtx, composer.Request{
		Model:     model,
		User:      "ping",
		MaxTokens: 1,
	})
	if err != nil {
		fmt.Fprintf(w, "model %s: warm-up failed (non-fatal): %v\n", model, err)
	} else {
		fmt.Fprintf(w, "model %s: warm\n", model)
	}
	return nil
}
