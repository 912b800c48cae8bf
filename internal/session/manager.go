package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/kalambet/codevoice/internal/metrics"
	"github.com/kalambet/codevoice/internal/tone"
)

// Manager owns the open sessions. Sessions share nothing but the
// Explainer, which is stateless.
type Manager struct {
	// DefaultTone is used when a caller names no tone. Empty means a tone
	// must always be chosen.
	DefaultTone string

	explainer *Explainer
	keys      func() (string, error)

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager. keys, when non-nil, is consulted when a
// session is created and before every completion; its error is reported
// to the user as a configuration problem.
func NewManager(ex *Explainer, keys func() (string, error)) *Manager {
	return &Manager{
		explainer: ex,
		keys:      keys,
		sessions:  make(map[string]*Session),
	}
}

// Explainer returns the shared Explainer.
func (m *Manager) Explainer() *Explainer { return m.explainer }

// Create opens a session for code in the named tone. It fails without
// side effects when the selection is empty, the tone is unknown or the
// API key is missing.
func (m *Manager) Create(code, toneName, file string) (*Session, error) {
	t, err := m.check(code, toneName)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	s := newSession(id, file, code, t, m.explainer, m.keys, func() { m.remove(id) })

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	metrics.OpenSessions.Inc()

	slog.Info("session opened", "session", id, "tone", t.Name, "file", file, "code_bytes", len(code))
	return s, nil
}

// Explain answers one phrase without opening a session. Preconditions
// are the same as for Create.
func (m *Manager) Explain(ctx context.Context, code, toneName, phrase string) (Response, error) {
	t, err := m.check(code, toneName)
	if err != nil {
		return Response{}, err
	}
	return m.explainer.Explain(ctx, t, phrase, code)
}

func (m *Manager) check(code, toneName string) (tone.Tone, error) {
	if strings.TrimSpace(code) == "" {
		return tone.Tone{}, ErrEmptySelection
	}
	if strings.TrimSpace(toneName) == "" {
		toneName = m.DefaultTone
	}
	t, err := tone.Lookup(toneName)
	if err != nil {
		return tone.Tone{}, err
	}
	if m.keys != nil {
		if _, err := m.keys(); err != nil {
			return tone.Tone{}, err
		}
	}
	return t, nil
}

// Get returns the open session with the given id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// Close closes the session with the given id.
func (m *Manager) Close(id string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	s.Close()
	return nil
}

// CloseAll closes every open session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	open := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		open = append(open, s)
	}
	m.mu.Unlock()

	for _, s := range open {
		s.Close()
	}
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		metrics.OpenSessions.Dec()
	}
}
