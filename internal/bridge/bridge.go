// Package bridge hosts the handshake with the external order-punch form.
//
// The form is a third-party web page. We open it in the user's browser with a
// loopback callback address in its query string; the page connects back over
// websocket and exchanges JSON control frames. Only one session may exist at
// a time, and only the configured trusted origin may connect.
package bridge

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
	"sync"
)

var (
	// ErrSessionActive is returned when a session is opened while another
	// is still live. The caller must close the first session explicitly.
	ErrSessionActive = errors.New("an order-punch session is already active")

	// ErrNotConnected is returned when sending before the form connects.
	ErrNotConnected = errors.New("order-punch form not connected")
)

// Launch describes one order-punch opening.
type Launch struct {
	// PunchURL is the form page. Query parameters below are appended.
	PunchURL string

	// Quick selects the ad hoc variant (variant=quick + email) instead of
	// the per-call variant (clientName/callN/plannedDate/rowIndex).
	Quick bool
	Email string

	ClientName  string
	CallN       int
	PlannedDate string
	RowIndex    int

	// Dealers is sent to the form in the init frame once it connects.
	Dealers []string
}

// Host owns the loopback listener and enforces the single-session rule.
type Host struct {
	// Origin is the only Origin header value accepted at upgrade time.
	Origin string

	// OpenBrowser overrides the OS browser launcher (tests).
	OpenBrowser func(url string) error

	mu     sync.Mutex
	active *Session
}

// Active returns the live session, or nil.
func (h *Host) Active() *Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}

// Open starts a loopback server, opens the punch form in the browser, and
// returns the session. The session emits events on Events() as the form
// connects and reports progress. Fails with ErrSessionActive if a session is
// already live.
func (h *Host) Open(launch Launch) (*Session, error) {
	if strings.TrimSpace(launch.PunchURL) == "" {
		return nil, fmt.Errorf("bridge: punch URL not configured")
	}
	if strings.TrimSpace(h.Origin) == "" {
		return nil, fmt.Errorf("bridge: trusted origin not configured")
	}
	h.mu.Lock()
	if h.active != nil && !h.active.Closed() {
		h.mu.Unlock()
		return nil, ErrSessionActive
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		h.mu.Unlock()
		return nil, fmt.Errorf("bridge: listen: %w", err)
	}
	s := newSession(h, ln, launch.Email, launch.Dealers)
	h.active = s
	h.mu.Unlock()

	mux := http.NewServeMux()
	mux.HandleFunc("/bridge", s.handleWS)
	s.srv = &http.Server{Handler: mux}
	go func() { _ = s.srv.Serve(ln) }()

	pageURL, err := punchPageURL(launch, s.CallbackURL())
	if err != nil {
		s.Close()
		return nil, err
	}
	open := h.OpenBrowser
	if open == nil {
		open = openInBrowser
	}
	if err := open(pageURL); err != nil {
		s.Close()
		return nil, fmt.Errorf("bridge: open browser: %w", err)
	}
	return s, nil
}

func (h *Host) release(s *Session) {
	h.mu.Lock()
	if h.active == s {
		h.active = nil
	}
	h.mu.Unlock()
}

func punchPageURL(launch Launch, callback string) (string, error) {
	u, err := url.Parse(launch.PunchURL)
	if err != nil {
		return "", fmt.Errorf("bridge: bad punch URL: %w", err)
	}
	q := u.Query()
	if launch.Quick {
		q.Set("variant", "quick")
		q.Set("email", launch.Email)
	} else {
		q.Set("clientName", launch.ClientName)
		q.Set("callN", fmt.Sprintf("%d", launch.CallN))
		q.Set("plannedDate", launch.PlannedDate)
		q.Set("rowIndex", fmt.Sprintf("%d", launch.RowIndex))
	}
	q.Set("bridge", callback)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func openInBrowser(target string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", target).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", target).Start()
	default:
		return exec.Command("xdg-open", target).Start()
	}
}
