// Package tone holds the fixed set of stylistic presets ("vibes") that
// control the register of generated explanations.
package tone

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Tone is a selectable stylistic preset.
type Tone struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Instruction string `json:"instruction"`
}

// ErrUnknownTone is returned when a tone name does not resolve.
var ErrUnknownTone = errors.New("unknown tone")

var all = []Tone{
	{
		Name:        "Casual",
		Description: "Relaxed and friendly, like a teammate at your desk",
		Instruction: "Use a casual, friendly tone, like a teammate chatting over coffee. Keep it light and approachable, and skip the jargon unless it really helps.",
	},
	{
		Name:        "Mentor",
		Description: "Patient and encouraging, focused on helping you learn",
		Instruction: "Act as a patient mentor. Be encouraging, explain the reasoning behind each point, and connect it to concepts the listener can reuse elsewhere.",
	},
	{
		Name:        "Professional",
		Description: "Concise and precise, like a senior engineer's code review",
		Instruction: "Use a professional, precise tone, like a senior engineer giving a code review. Be concise, accurate, and focus on what matters most.",
	},
}

// All returns the tones in display order.
func All() []Tone {
	out := make([]Tone, len(all))
	copy(out, all)
	return out
}

// Names returns the tone names in display order.
func Names() []string {
	names := make([]string, len(all))
	for i, t := range all {
		names[i] = t.Name
	}
	return names
}

// Lookup finds a tone by exact name, ignoring case.
func Lookup(name string) (Tone, error) {
	name = strings.TrimSpace(name)
	for _, t := range all {
		if strings.EqualFold(t.Name, name) {
			return t, nil
		}
	}
	return Tone{}, fmt.Errorf("%w: %q (choose one of %s)", ErrUnknownTone, name, strings.Join(Names(), ", "))
}

// Match resolves a possibly abbreviated tone name. An exact match wins;
// otherwise the best fuzzy match is used.
func Match(query string) (Tone, error) {
	if t, err := Lookup(query); err == nil {
		return t, nil
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return Tone{}, fmt.Errorf("%w: no tone given", ErrUnknownTone)
	}

	labels := make([]string, len(all))
	for i, t := range all {
		labels[i] = strings.ToLower(t.Name)
	}
	matches := fuzzy.Find(q, labels)
	if len(matches) == 0 {
		return Tone{}, fmt.Errorf("%w: %q (choose one of %s)", ErrUnknownTone, query, strings.Join(Names(), ", "))
	}
	return all[matches[0].Index], nil
}
