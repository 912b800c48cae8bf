package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kalambet/codevoice/internal/composer"
	"github.com/kalambet/codevoice/internal/engine"
	"github.com/kalambet/codevoice/internal/intent"
	"github.com/kalambet/codevoice/internal/metrics"
	"github.com/kalambet/codevoice/internal/tone"
)

// FallbackText replaces an empty completion so the surface always has
// something to display and speak.
const FallbackText = "Could not generate explanation."

// Response is the result of one spoken round trip.
type Response struct {
	Text   string `json:"text"`
	Tone   string `json:"vibeMode"`
	Action string `json:"action"`
	Intent string `json:"intent"`
}

// Explainer runs one round trip: classify the phrase, build the prompt,
// call the completion engine.
type Explainer struct {
	engine  engine.Engine
	catalog *intent.Catalog
	opts    composer.Options
}

// NewExplainer creates an Explainer. A nil catalog uses the embedded default.
func NewExplainer(eng engine.Engine, catalog *intent.Catalog, opts composer.Options) *Explainer {
	if catalog == nil {
		catalog = intent.Default()
	}
	return &Explainer{engine: eng, catalog: catalog, opts: opts}
}

// Catalog returns the intent catalog used for classification.
func (e *Explainer) Catalog() *intent.Catalog { return e.catalog }

// Engine returns the completion backend.
func (e *Explainer) Engine() engine.Engine { return e.engine }

// Explain answers phrase about code in the given tone. No timeout is applied
// beyond what ctx carries. An empty completion yields FallbackText.
func (e *Explainer) Explain(ctx context.Context, t tone.Tone, phrase, code string) (Response, error) {
	in := e.catalog.Classify(phrase)
	req := composer.Compose(composer.Build(t, in, phrase, code), e.opts)

	slog.Debug("explaining",
		"intent", in.Name,
		"tone", t.Name,
		"backend", e.engine.Name(),
		"prompt_tokens_est", composer.EstimateTokens(req.System)+composer.EstimateTokens(req.User),
	)

	start := time.Now()
	text, err := e.engine.Complete(ctx, req)
	metrics.ObserveCompletion(e.engine.Name(), start, err)
	if err != nil {
		return Response{}, fmt.Errorf("completion (%s): %w", e.engine.Name(), err)
	}

	if strings.TrimSpace(text) == "" {
		metrics.EmptyCompletions.Inc()
		text = FallbackText
	}
	metrics.Interactions.WithLabelValues(in.Name, t.Name).Inc()

	return Response{
		Text:   text,
		Tone:   t.Name,
		Action: in.Description,
		Intent: in.Name,
	}, nil
}
