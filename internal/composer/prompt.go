package composer

import (
	"strings"

	"github.com/kalambet/codevoice/internal/intent"
	"github.com/kalambet/codevoice/internal/tone"
)

const (
	defaultMaxTokens   = 500
	defaultTemperature = 0.7
)

const spokenReadback = "Format your response for being read aloud: plain conversational sentences only, " +
	"no markdown, no bullet points, no code blocks, and no symbols that sound odd when spoken."

// Prompt is the text sent to the completion service for one utterance.
type Prompt struct {
	System string
	User   string
}

// Options carries the completion settings that accompany a prompt.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// Request is a fully assembled completion request.
type Request struct {
	Model       string
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

// Message is one chat message of a Request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Messages returns the system and user messages in send order. The system
// message is omitted when empty.
func (r Request) Messages() []Message {
	if r.System == "" {
		return []Message{{Role: "user", Content: r.User}}
	}
	return []Message{
		{Role: "system", Content: r.System},
		{Role: "user", Content: r.User},
	}
}

// Build assembles the prompt for a spoken phrase about a code snippet.
// The user text is the tone instruction, the quoted phrase, the fenced
// code, the intent's task and the spoken-readback instruction, in that
// order. The code is embedded verbatim.
func Build(t tone.Tone, in intent.Intent, phrase, code string) Prompt {
	var sb strings.Builder
	sb.WriteString(t.Instruction)
	sb.WriteString("\n\nVoice command: \"")
	sb.WriteString(phrase)
	sb.WriteString("\"\n\nCode:\n```\n")
	sb.WriteString(code)
	if !strings.HasSuffix(code, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("```\n\n")
	sb.WriteString(in.TaskInstruction)
	sb.WriteString("\n\n")
	sb.WriteString(spokenReadback)

	return Prompt{
		System: in.SystemInstruction,
		User:   sb.String(),
	}
}

// Compose attaches completion options to p. Zero MaxTokens or a negative
// Temperature fall back to the defaults.
func Compose(p Prompt, opts Options) Request {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	temperature := opts.Temperature
	if temperature < 0 {
		temperature = defaultTemperature
	}
	return Request{
		Model:       opts.Model,
		System:      p.System,
		User:        p.User,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
}

// EstimateTokens provides a rough token count using 4 chars per token heuristic.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
