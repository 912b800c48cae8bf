package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/kalambet/codevoice/internal/protocol"
	"github.com/kalambet/codevoice/internal/proxy"
	"github.com/kalambet/codevoice/internal/tone"
)

var (
	ErrEmptySelection  = errors.New("no code selected")
	ErrUnknownTone     = tone.ErrUnknownTone
	ErrNotFound        = errors.New("session not found")
	ErrClosed          = errors.New("session closed")
	ErrSurfaceAttached = errors.New("session already has a surface")
	ErrBusy            = errors.New("session is handling another message")
)

// completionFailedText is shown instead of upstream error details.
const completionFailedText = "Sorry, the explanation service could not be reached. Please try again."

// authFailedText is shown when the completion service rejects the API key.
const authFailedText = "The completion service rejected the API key. Update it with `codevoice config set-key` or CODEVOICE_API_KEY."

// Surface receives controller messages. Implementations must be safe to
// call from the session's worker goroutine.
type Surface interface {
	Send(msg protocol.Outbound) error
}

// Session is one opened voice surface bound to a code snippet and a tone.
// Inbound messages are handled one at a time by a single worker goroutine:
// a phrase is classified, answered and sent before the next one is taken.
type Session struct {
	ID   string
	File string

	code      string
	tone      tone.Tone
	explainer *Explainer
	keys      func() (string, error)
	logger    *slog.Logger

	inbox  chan protocol.Inbound
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	onStop func()
	// busy is set from the moment a message is accepted until its reply
	// is ready to be sent.
	busy atomic.Bool

	mu      sync.Mutex
	surface Surface
}

func newSession(id, file, code string, t tone.Tone, ex *Explainer, keys func() (string, error), onStop func()) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:        id,
		File:      file,
		code:      code,
		tone:      t,
		explainer: ex,
		keys:      keys,
		logger:    slog.With("session", id, "tone", t.Name),
		inbox:     make(chan protocol.Inbound),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		onStop:    onStop,
	}
	go s.run()
	return s
}

// Tone returns the tone chosen for this session.
func (s *Session) Tone() tone.Tone { return s.tone }

// Attach binds the surface that receives controller messages. A session
// has at most one surface.
func (s *Session) Attach(sf Surface) error {
	if s.Closed() {
		return ErrClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.surface != nil {
		return ErrSurfaceAttached
	}
	s.surface = sf
	return nil
}

// Deliver hands an inbound surface message to the worker. It blocks until
// the worker has finished the previous message and accepted this one.
// Messages delivered after Close are dropped and ErrClosed is returned.
func (s *Session) Deliver(ctx context.Context, msg protocol.Inbound) error {
	select {
	case <-s.done:
		s.logger.Debug("dropping message for closed session", "command", msg.Command)
		return ErrClosed
	default:
	}

	select {
	case s.inbox <- msg:
		return nil
	case <-s.done:
		s.logger.Debug("dropping message for closed session", "command", msg.Command)
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryDeliver hands msg to the worker only when it is idle. While a
// previous message is still being answered it returns ErrBusy and msg is
// not queued.
func (s *Session) TryDeliver(msg protocol.Inbound) error {
	if s.Closed() {
		return ErrClosed
	}
	if !s.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	select {
	case s.inbox <- msg:
		return nil
	case <-s.done:
		s.busy.Store(false)
		return ErrClosed
	}
}

// Busy reports whether a message is being handled.
func (s *Session) Busy() bool { return s.busy.Load() }

// Close stops the worker and cancels any in-flight completion. A result
// that arrives afterwards is discarded. Close is idempotent.
func (s *Session) Close() {
	s.once.Do(func() {
		close(s.done)
		s.cancel()
		if s.onStop != nil {
			s.onStop()
		}
		s.logger.Info("session closed")
	})
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Done is closed when the session closes.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) run() {
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.inbox:
			s.busy.Store(true)
			reply, ok := s.handle(msg)
			s.busy.Store(false)
			if ok {
				s.send(reply)
			}
		}
	}
}

// handle answers msg. ok is false when there is nothing to send.
func (s *Session) handle(msg protocol.Inbound) (reply protocol.Outbound, ok bool) {
	switch msg.Command {
	case protocol.CommandExplainCode:
		return s.explain(msg.VoiceCommand)
	case protocol.CommandSpeakText:
		return protocol.Speak(msg.Text), true
	default:
		s.logger.Warn("ignoring unknown surface command", "command", msg.Command)
		return protocol.Outbound{}, false
	}
}

func (s *Session) explain(phrase string) (protocol.Outbound, bool) {
	if s.keys != nil {
		if _, err := s.keys(); err != nil {
			s.logger.Warn("API key unavailable", "error", err)
			return protocol.ShowError(err.Error()), true
		}
	}

	resp, err := s.explainer.Explain(s.ctx, s.tone, phrase, s.code)
	if s.ctx.Err() != nil {
		s.logger.Debug("discarding result for closed session")
		return protocol.Outbound{}, false
	}
	if err != nil {
		s.logger.Error("completion failed", "error", err)
		if proxy.IsAuthError(err) {
			return protocol.ShowError(authFailedText), true
		}
		return protocol.ShowError(completionFailedText), true
	}

	s.logger.Info("explanation ready", "intent", resp.Intent, "chars", len(resp.Text))
	return protocol.ExplanationReady(resp.Text, resp.Tone, resp.Action), true
}

func (s *Session) send(msg protocol.Outbound) {
	if s.Closed() {
		return
	}
	s.mu.Lock()
	sf := s.surface
	s.mu.Unlock()
	if sf == nil {
		s.logger.Warn("no surface attached, dropping message", "command", msg.Command)
		return
	}
	if err := sf.Send(msg); err != nil {
		s.logger.Warn("sending to surface failed", "command", msg.Command, "error", fmt.Errorf("surface: %w", err))
	}
}
