// Package chat coordinates the active conversation: which session is active,
// what the message area shows, and which live connection is open.
package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/neilberkman/medichat/internal/core/attachment"
	"github.com/neilberkman/medichat/internal/core/live"
	"github.com/neilberkman/medichat/internal/core/logger"
	"github.com/neilberkman/medichat/internal/core/models"
)

var (
	// ErrEmptyMessage is returned by SendMessage for blank input
	ErrEmptyMessage = errors.New("message is empty")

	// ErrMessageTooLong is returned by SendMessage when input exceeds the
	// configured character limit
	ErrMessageTooLong = errors.New("message is too long")
)

// SessionAPI is the backend session REST surface
type SessionAPI interface {
	ListSessions(ctx context.Context) ([]models.Session, error)
	CreateSession(ctx context.Context) (string, error)
	DeleteSession(ctx context.Context, sessionID string) error
	SessionMessages(ctx context.Context, sessionID string) ([]models.Message, error)
}

// LiveConn is the live connection the coordinator drives
type LiveConn interface {
	Connect(ctx context.Context, sessionID string) error
	Close()
	Send(v any) error
	Connected() bool
}

// Typist receives local input activity
type Typist interface {
	Activity()
	Flush()
}

// LocationSource provides the location attached to outbound messages. It
// returns nil when none is known.
type LocationSource interface {
	LastLocation() *models.Location
}

// Display renders coordinator output. Implementations must not block and must
// not call back into the coordinator.
type Display interface {
	ResetToWelcome()
	AppendMessage(models.Message)
	ShowSessions(sessions []models.Session, activeID string)
	SetConnected(bool)
	SetTyping(bool)
	SetLoading(bool)
	ShowAttachment(label string) // Empty label clears it
	ShowError(msg string)
}

// Options holds the optional collaborators
type Options struct {
	Typing        Typist
	Locations     LocationSource
	MaxImageBytes int64
	MaxInputChars int
}

// Coordinator owns the active session
type Coordinator struct {
	api     SessionAPI
	conn    LiveConn
	display Display

	typing        Typist
	locations     LocationSource
	maxImageBytes int64
	maxInputChars int

	mu     sync.Mutex
	st     state
	cancel context.CancelFunc // Cancels the current activation's work
	image  *attachment.Image
}

// New creates a coordinator. The caller binds it to the live connection's
// event stream.
func New(api SessionAPI, conn LiveConn, display Display, opts Options) *Coordinator {
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = attachment.DefaultMaxBytes
	}
	return &Coordinator{
		api:           api,
		conn:          conn,
		display:       display,
		typing:        opts.Typing,
		locations:     opts.Locations,
		maxImageBytes: opts.MaxImageBytes,
		maxInputChars: opts.MaxInputChars,
	}
}

// ActiveSessionID returns the active session, or "" before startup completes
func (c *Coordinator) ActiveSessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.sessionID
}

// HistoryMaterialized reports whether history has been rendered for the
// active session
func (c *Coordinator) HistoryMaterialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.historyMaterialized
}

// ResolveActiveSession picks the session to show at startup: the newest
// existing one, or a fresh one when there is none or the list is unavailable.
func (c *Coordinator) ResolveActiveSession(ctx context.Context) error {
	sessions, err := c.api.ListSessions(ctx)
	if err != nil {
		logger.Warn("failed to list sessions at startup, creating a new one", "err", err)
		return c.CreateSession(ctx)
	}
	if len(sessions) == 0 {
		return c.CreateSession(ctx)
	}

	c.activate(ctx, sessions[0].ID)
	return nil
}

// CreateSession starts a new conversation and makes it active. On failure
// the previous session stays active.
func (c *Coordinator) CreateSession(ctx context.Context) error {
	id, err := c.api.CreateSession(ctx)
	if err != nil {
		c.showError("Could not start a new conversation", err)
		return fmt.Errorf("failed to create session: %w", err)
	}

	c.mu.Lock()
	act, actx := c.beginLocked(ctx, id)
	c.mu.Unlock()

	logger.Info("created session", "session", id)
	if !c.isCurrent(act) {
		logger.Debug("activation superseded before connect", "session", id)
		return nil
	}
	c.connect(actx, act)
	c.refresh(ctx)
	return nil
}

// SwitchSession makes id the active session. Switching to the active session
// is a no-op.
func (c *Coordinator) SwitchSession(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("session id is required")
	}
	if c.ActiveSessionID() == id {
		return nil
	}

	c.activate(ctx, id)
	return nil
}

// DeleteSession deletes id. The caller must have confirmed with the user.
// Deleting the active session starts a replacement.
func (c *Coordinator) DeleteSession(ctx context.Context, id string) error {
	if err := c.api.DeleteSession(ctx, id); err != nil {
		c.showError("Could not delete the conversation", err)
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	logger.Info("deleted session", "session", id)

	if c.ActiveSessionID() == id {
		if err := c.CreateSession(ctx); err == nil {
			return nil
		}
		// The deleted session cannot stay connected
		c.conn.Close()
	}

	c.refresh(ctx)
	return nil
}

// ListSessions fetches the session list and renders it with the active
// session marked
func (c *Coordinator) ListSessions(ctx context.Context) ([]models.Session, error) {
	sessions, err := c.api.ListSessions(ctx)
	if err != nil {
		logger.Warn("failed to list sessions", "err", err)
		return nil, err
	}

	c.mu.Lock()
	c.display.ShowSessions(sessions, c.st.sessionID)
	c.mu.Unlock()
	return sessions, nil
}

// Close cancels in-flight activation work and closes the live connection
func (c *Coordinator) Close() {
	if c.typing != nil {
		c.typing.Flush()
	}

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()

	c.conn.Close()
}

// activate runs the switch path shared by startup and SwitchSession: adopt,
// reset, load history, then connect.
func (c *Coordinator) activate(ctx context.Context, id string) {
	c.mu.Lock()
	act, actx := c.beginLocked(ctx, id)
	c.mu.Unlock()

	c.loadMessages(actx, act)
	if !c.isCurrent(act) {
		logger.Debug("activation superseded before connect", "session", id)
		return
	}

	c.connect(actx, act)
	c.refresh(ctx)
}

// beginLocked adopts id as the active session, cancels the previous
// activation and resets the message area
func (c *Coordinator) beginLocked(ctx context.Context, id string) (activation, context.Context) {
	if c.cancel != nil {
		c.cancel()
	}
	actx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	act := c.st.begin(id)
	c.display.ResetToWelcome()
	c.display.SetConnected(false)
	c.display.SetTyping(false)
	c.display.SetLoading(false)
	return act, actx
}

// loadMessages renders the stored history of the activation's session. The
// guard is set in every outcome so a later replay never duplicates it.
func (c *Coordinator) loadMessages(ctx context.Context, act activation) {
	msgs, err := c.api.SessionMessages(ctx, act.sessionID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.st.current(act) {
		logger.Debug("discarding stale history", "session", act.sessionID)
		return
	}

	if err != nil {
		logger.Warn("failed to load history, treating it as empty", "session", act.sessionID, "err", err)
	} else if len(msgs) > 0 {
		c.display.ResetToWelcome()
		for _, msg := range msgs {
			c.display.AppendMessage(msg)
		}
	}
	c.st.historyMaterialized = true
}

func (c *Coordinator) connect(ctx context.Context, act activation) {
	err := c.conn.Connect(ctx, act.sessionID)
	switch {
	case err == nil:
	case errors.Is(err, live.ErrInvalidAddress):
		if c.isCurrent(act) {
			c.showError("Could not connect to the chat server", err)
		}
	default:
		// Dial failures are reported through the event stream
		logger.Debug("connect returned error", "session", act.sessionID, "err", err)
	}
}

// refresh re-renders the session list, ignoring failures
func (c *Coordinator) refresh(ctx context.Context) {
	_, _ = c.ListSessions(ctx)
}

func (c *Coordinator) isCurrent(act activation) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.current(act)
}

func (c *Coordinator) showError(msg string, err error) {
	logger.Error(msg, "err", err)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.display.ShowError(msg)
}
