// Package live manages the single duplex connection that carries pushed chat
// messages and typing signals for the active session.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/neilberkman/medichat/internal/core/logger"
	"github.com/neilberkman/medichat/internal/core/models"
)

var (
	// ErrNotConnected is returned by Send when no connection is open. The
	// transport is not touched.
	ErrNotConnected = errors.New("live connection is not open")

	// ErrSuperseded is returned by Connect when a newer Connect or Close won
	// the race while this one was dialing
	ErrSuperseded = errors.New("connection attempt superseded")

	// ErrInvalidAddress is returned by Connect when no socket URL can be
	// derived for the session. No event is emitted and nothing is retried.
	ErrInvalidAddress = errors.New("invalid live connection address")
)

// Options configures a Manager. Zero values use the defaults.
type Options struct {
	ReconnectDelay time.Duration
	Dial           DialFunc
	AfterFunc      AfterFunc
}

// Manager owns at most one live connection, scoped to one session id
type Manager struct {
	baseURL   string
	delay     time.Duration
	dial      DialFunc
	afterFunc AfterFunc

	writeMu sync.Mutex // gorilla allows one concurrent writer

	mu        sync.Mutex
	handler   Handler
	state     State
	conn      Conn
	sessionID string
	gen       uint64 // Bumped on every Connect/Close; stale goroutines compare against it
	retry     Timer
}

// NewManager creates a manager for the backend at baseURL
func NewManager(baseURL string, opts Options) *Manager {
	m := &Manager{
		baseURL:   baseURL,
		delay:     opts.ReconnectDelay,
		dial:      opts.Dial,
		afterFunc: opts.AfterFunc,
	}
	if m.delay <= 0 {
		m.delay = 3 * time.Second
	}
	if m.dial == nil {
		m.dial = Dial
	}
	if m.afterFunc == nil {
		m.afterFunc = defaultAfterFunc
	}
	return m
}

// Bind sets the event handler
func (m *Manager) Bind(h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = h
}

// State returns the current lifecycle state
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connected reports whether a connection is open
func (m *Manager) Connected() bool {
	return m.State() == StateOpen
}

// SessionID returns the session of the current (or last) connection
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// Connect closes any existing connection, then opens one for sessionID. The
// previous connection is fully closed before the new dial starts.
func (m *Manager) Connect(ctx context.Context, sessionID string) error {
	u, err := SocketURL(m.baseURL, sessionID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}

	m.mu.Lock()
	// A cancelled caller must not tear down a connection it no longer owns
	if err := ctx.Err(); err != nil {
		m.mu.Unlock()
		return err
	}
	m.stopRetryLocked()
	old := m.conn
	m.conn = nil
	m.gen++
	gen := m.gen
	m.sessionID = sessionID
	m.fireLocked(triggerDial)
	m.mu.Unlock()

	if old != nil {
		logger.Debug("closing previous live connection before reconnect", "session", sessionID)
		closeGracefully(old)
	}

	logger.Debug("dialing live connection", "url", u)
	conn, err := m.dial(ctx, u)

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		closeGracefully(conn)
		return ErrSuperseded
	}

	if err != nil {
		if ctx.Err() != nil {
			m.fireLocked(triggerClosed)
			m.mu.Unlock()
			return ctx.Err()
		}
		m.fireLocked(triggerDialFailed)
		m.scheduleRetryLocked(gen, sessionID)
		m.mu.Unlock()

		logger.Warn("live connection failed", "session", sessionID, "err", err)
		m.emit(Event{Kind: EventTransportError, SessionID: sessionID, Err: err})
		m.emit(Event{Kind: EventClosed, SessionID: sessionID, Code: websocket.CloseAbnormalClosure})
		return err
	}

	m.conn = conn
	m.fireLocked(triggerOpened)
	m.mu.Unlock()

	logger.Info("live connection open", "session", sessionID)
	m.emit(Event{Kind: EventOpened, SessionID: sessionID})

	go m.readLoop(conn, gen, sessionID)
	return nil
}

// Close deliberately closes the connection. A deliberate close never
// schedules a reconnect.
func (m *Manager) Close() {
	m.mu.Lock()
	m.stopRetryLocked()
	old := m.conn
	m.conn = nil
	m.gen++
	sessionID := m.sessionID
	m.fireLocked(triggerClosed)
	m.mu.Unlock()

	if old == nil {
		return
	}

	closeGracefully(old)
	m.emit(Event{Kind: EventClosed, SessionID: sessionID, Code: websocket.CloseNormalClosure})
}

// Send transmits v as a JSON text frame. It returns ErrNotConnected without
// touching the transport unless the connection is open.
func (m *Manager) Send(v any) error {
	m.mu.Lock()
	conn := m.conn
	open := m.state == StateOpen && conn != nil
	m.mu.Unlock()

	if !open {
		return ErrNotConnected
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send frame: %w", err)
	}
	return nil
}

func (m *Manager) readLoop(conn Conn, gen uint64, sessionID string) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			m.handleDrop(conn, gen, sessionID, err)
			return
		}

		var frame models.InboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			logger.Warn("dropping malformed frame", "session", sessionID, "err", err)
			continue
		}

		if !m.isCurrent(gen) {
			continue
		}
		m.emit(Event{Kind: EventFrame, SessionID: sessionID, Frame: frame})
	}
}

func (m *Manager) handleDrop(conn Conn, gen uint64, sessionID string, err error) {
	code, transport := closeCode(err)

	m.mu.Lock()
	if gen != m.gen || m.conn != conn {
		// Closed by Connect or Close; they own the aftermath
		m.mu.Unlock()
		return
	}
	m.conn = nil
	_ = conn.Close()

	if code == websocket.CloseNormalClosure {
		m.fireLocked(triggerClosed)
		m.mu.Unlock()

		logger.Info("live connection closed normally", "session", sessionID)
		m.emit(Event{Kind: EventClosed, SessionID: sessionID, Code: code})
		return
	}

	m.fireLocked(triggerDropped)
	m.scheduleRetryLocked(gen, sessionID)
	m.mu.Unlock()

	logger.Warn("live connection dropped", "session", sessionID, "code", code, "err", err)
	if transport {
		m.emit(Event{Kind: EventTransportError, SessionID: sessionID, Err: err})
	}
	m.emit(Event{Kind: EventClosed, SessionID: sessionID, Code: code})
}

// scheduleRetryLocked arms exactly one reconnect attempt
func (m *Manager) scheduleRetryLocked(gen uint64, sessionID string) {
	m.stopRetryLocked()
	m.retry = m.afterFunc(m.delay, func() {
		m.retryConnect(gen, sessionID)
	})
}

func (m *Manager) stopRetryLocked() {
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
}

// retryConnect reconnects only if sessionID is still the active session. If
// the user moved on during the delay, the switch already opened the right
// connection and this attempt is dropped.
func (m *Manager) retryConnect(gen uint64, sessionID string) {
	m.mu.Lock()
	if gen != m.gen || m.state != StateReconnecting {
		m.mu.Unlock()
		return
	}
	m.retry = nil
	h := m.handler
	m.mu.Unlock()

	active := ""
	if h != nil {
		active = h.ActiveSessionID()
	}

	if active == "" || active != sessionID {
		m.mu.Lock()
		if gen == m.gen {
			m.fireLocked(triggerAbandon)
		}
		m.mu.Unlock()
		logger.Info("abandoning reconnect", "session", sessionID, "active", active)
		return
	}

	logger.Info("reconnecting live connection", "session", sessionID)
	if err := m.Connect(context.Background(), sessionID); err != nil && !errors.Is(err, ErrSuperseded) {
		logger.Debug("reconnect attempt failed", "session", sessionID, "err", err)
	}
}

func (m *Manager) isCurrent(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return gen == m.gen
}

func (m *Manager) fireLocked(t trigger) {
	next, err := m.state.next(t)
	if err != nil {
		logger.Warn("ignoring connection state transition", "err", err)
		return
	}
	m.state = next
}

func (m *Manager) emit(ev Event) {
	m.mu.Lock()
	h := m.handler
	m.mu.Unlock()

	if h != nil {
		h.HandleEvent(ev)
	}
}
