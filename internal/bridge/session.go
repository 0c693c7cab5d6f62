package bridge

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// EventKind enumerates session lifecycle notifications.
type EventKind int

const (
	// EventConnected: the form connected and the init frame was sent.
	EventConnected EventKind = iota
	// EventOrderPunched: the form reports a completed order.
	EventOrderPunched
	// EventCloseRequested: the form asks the host to dismiss it.
	EventCloseRequested
	// EventClosed: the session ended; no further events follow.
	EventClosed
)

// Event is one session notification. Dealer/IsNew are set for
// EventOrderPunched; Err is set on abnormal EventClosed.
type Event struct {
	Kind   EventKind
	Dealer string
	IsNew  bool
	Err    error
}

// frame is the JSON control message exchanged with the form.
type frame struct {
	Type       string   `json:"type"`
	Dealers    []string `json:"dealers,omitempty"`
	Email      string   `json:"email,omitempty"`
	DealerName string   `json:"dealerName,omitempty"`
	IsNew      bool     `json:"isNew,omitempty"`
}

// Session is one live order-punch exchange. Events are delivered on Events()
// until EventClosed; Close is safe to call any number of times from any
// goroutine.
type Session struct {
	host    *Host
	ln      net.Listener
	srv     *http.Server
	email   string
	dealers []string

	events chan Event

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	closed    bool
}

func newSession(h *Host, ln net.Listener, email string, dealers []string) *Session {
	return &Session{
		host:    h,
		ln:      ln,
		email:   email,
		dealers: dealers,
		events:  make(chan Event, 8),
	}
}

// CallbackURL is the websocket address the form connects back to.
func (s *Session) CallbackURL() string {
	return "ws://" + s.ln.Addr().String() + "/bridge"
}

// Events delivers lifecycle notifications. The channel is never closed; the
// final event is EventClosed.
func (s *Session) Events() <-chan Event { return s.events }

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// upgrader accepts only the configured trusted origin. The form is served by
// a third party, so the default same-origin check would always fail here.
func (s *Session) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  4 * 1024,
		WriteBufferSize: 4 * 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := strings.TrimRight(strings.TrimSpace(r.Header.Get("Origin")), "/")
			return origin == s.host.Origin
		},
	}
}

func (s *Session) handleWS(w http.ResponseWriter, r *http.Request) {
	up := s.upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the 403/400 response.
		return
	}

	s.mu.Lock()
	if s.closed || s.connected {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.conn = conn
	s.connected = true
	s.mu.Unlock()

	// Init frame only after the form is listening; sending dealers to a
	// page that has not attached its handler would lose them.
	if err := s.Send(frame{Type: "DEALERS_INIT", Dealers: s.dealers, Email: s.email}); err != nil {
		s.closeWith(fmt.Errorf("bridge: send init: %w", err))
		return
	}
	s.emit(Event{Kind: EventConnected})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.closeWith(nil)
			return
		}
		s.Deliver(data)
	}
}

// Send writes one JSON frame to the connected form. Before the form connects
// it returns ErrNotConnected.
func (s *Session) Send(v any) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(v)
}

// Deliver feeds one inbound frame through the session's dispatch. The read
// loop calls it for every websocket message; tests call it directly.
func (s *Session) Deliver(data []byte) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return
	}
	switch f.Type {
	case "ORDER_PUNCHED":
		dealer := strings.TrimSpace(f.DealerName)
		s.emit(Event{Kind: EventOrderPunched, Dealer: dealer, IsNew: f.IsNew})
	case "CLOSE_PUNCH":
		s.emit(Event{Kind: EventCloseRequested})
	}
	// Unknown frame types are dropped silently.
}

func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		// Slow consumer; drop rather than block the read loop.
	}
}

// Close tears the session down: websocket, server, listener, host slot. The
// first call wins; later calls are no-ops.
func (s *Session) Close() { s.closeWith(nil) }

func (s *Session) closeWith(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}
	if s.srv != nil {
		_ = s.srv.Close()
	}
	_ = s.ln.Close()
	s.host.release(s)
	s.emit(Event{Kind: EventClosed, Err: err})
}
