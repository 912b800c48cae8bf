// Package surface serves the interactive voice page for a session and
// bridges its WebSocket to the session controller.
package surface

import (
	_ "embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/kalambet/codevoice/internal/protocol"
	"github.com/kalambet/codevoice/internal/session"
)

//go:embed page.html
var pageHTML string

var pageTmpl = template.Must(template.New("page").Parse(pageHTML))

const (
	writeWait       = 10 * time.Second
	maxMessageBytes = 64 << 10
	outboundQueue   = 8

	busyText       = "Still working on your last question. Please wait for the answer."
	badMessageText = "The voice page sent a message the server did not understand. Reload the page and try again."
	takenText      = "This voice session is already open in another window."
)

var errSurfaceGone = errors.New("surface disconnected")

// Handler serves the page and WebSocket for open sessions.
type Handler struct {
	sessions *session.Manager
	upgrader websocket.Upgrader
}

// NewHandler creates a Handler for sessions held by m.
func NewHandler(m *session.Manager) *Handler {
	return &Handler{
		sessions: m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// Path returns the page path for a session when Routes is mounted at /surface.
func Path(id string) string { return "/surface/" + id }

// Routes returns a router with the page and WebSocket endpoints. Mount it
// at /surface.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/{id}", h.page)
	r.Get("/{id}/ws", h.socket)
	return r
}

type pageData struct {
	SessionID string
	Tone      string
	File      string
	WSPath    string
}

func (h *Handler) page(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, err := h.sessions.Get(id)
	if err != nil {
		http.Error(w, "voice session not found or already closed", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	err = pageTmpl.Execute(w, pageData{
		SessionID: s.ID,
		Tone:      s.Tone().Name,
		File:      s.File,
		WSPath:    Path(s.ID) + "/ws",
	})
	if err != nil {
		slog.Error("rendering surface page", "session", id, "error", err)
	}
}

func (h *Handler) socket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, err := h.sessions.Get(id)
	if err != nil {
		http.Error(w, "voice session not found or already closed", http.StatusNotFound)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "session", id, "error", err)
		return
	}

	c := newConn(ws)
	if err := s.Attach(c); err != nil {
		ws.SetWriteDeadline(time.Now().Add(writeWait))
		ws.WriteJSON(protocol.ShowError(takenText))
		ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session in use"))
		ws.Close()
		return
	}

	slog.Debug("surface connected", "session", id)
	go c.writeLoop(s.Done())
	c.readLoop(s)
}

// conn is the WebSocket side of a session. One goroutine reads frames and
// hands them to the session, another writes the outbound queue.
type conn struct {
	ws     *websocket.Conn
	out    chan protocol.Outbound
	closed chan struct{}
	once   sync.Once
}

func newConn(ws *websocket.Conn) *conn {
	return &conn{
		ws:     ws,
		out:    make(chan protocol.Outbound, outboundQueue),
		closed: make(chan struct{}),
	}
}

// Send queues msg for the writer. It implements session.Surface.
func (c *conn) Send(msg protocol.Outbound) error {
	select {
	case c.out <- msg:
		return nil
	case <-c.closed:
		return errSurfaceGone
	}
}

func (c *conn) shutdown() {
	c.once.Do(func() {
		close(c.closed)
		c.ws.Close()
	})
}

// readLoop runs until the socket fails or closes, then closes the session
// so an in-flight completion is discarded.
func (c *conn) readLoop(s *session.Session) {
	defer func() {
		c.shutdown()
		s.Close()
	}()

	c.ws.SetReadLimit(maxMessageBytes)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("surface read failed", "session", s.ID, "error", err)
			}
			return
		}

		msg, err := protocol.DecodeInbound(data)
		if err != nil {
			slog.Warn("bad surface message", "session", s.ID, "error", err)
			c.Send(protocol.ShowError(badMessageText))
			continue
		}

		switch err := s.TryDeliver(msg); {
		case errors.Is(err, session.ErrBusy):
			c.Send(protocol.ShowError(busyText))
		case err != nil:
			return
		}
	}
}

func (c *conn) writeLoop(sessionDone <-chan struct{}) {
	defer c.shutdown()
	for {
		// Session close takes priority over queued messages.
		select {
		case <-sessionDone:
			c.writeClose()
			return
		default:
		}

		select {
		case msg := <-c.out:
			select {
			case <-sessionDone:
				c.writeClose()
				return
			default:
			}
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(msg); err != nil {
				return
			}
		case <-sessionDone:
			c.writeClose()
			return
		case <-c.closed:
			return
		}
	}
}

func (c *conn) writeClose() {
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
}
