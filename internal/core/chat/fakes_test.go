package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/neilberkman/medichat/internal/core/live"
	"github.com/neilberkman/medichat/internal/core/models"
)

var errBackend = errors.New("backend unavailable")

// fakeAPI is an in-memory session backend
type fakeAPI struct {
	mu        sync.Mutex
	sessions  []models.Session // Newest first
	messages  map[string][]models.Message
	nextID    int
	listErr   error
	createErr error
	deleteErr error
	msgErr    error

	// beforeMessages, when set, runs at the start of SessionMessages
	beforeMessages func(ctx context.Context, id string) error
}

func newFakeAPI(ids ...string) *fakeAPI {
	api := &fakeAPI{messages: map[string][]models.Message{}}
	for _, id := range ids {
		api.sessions = append(api.sessions, models.Session{ID: id})
	}
	return api
}

func (a *fakeAPI) ListSessions(context.Context) ([]models.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listErr != nil {
		return nil, a.listErr
	}
	out := make([]models.Session, len(a.sessions))
	for i, s := range a.sessions {
		s.MessageCount = len(a.messages[s.ID])
		s.Order = i
		out[i] = s
	}
	return out, nil
}

func (a *fakeAPI) CreateSession(context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.createErr != nil {
		return "", a.createErr
	}
	a.nextID++
	id := fmt.Sprintf("new-%d", a.nextID)
	a.sessions = append([]models.Session{{ID: id}}, a.sessions...)
	return id, nil
}

func (a *fakeAPI) DeleteSession(_ context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.deleteErr != nil {
		return a.deleteErr
	}
	for i, s := range a.sessions {
		if s.ID == id {
			a.sessions = append(a.sessions[:i], a.sessions[i+1:]...)
			return nil
		}
	}
	return errors.New("not found")
}

func (a *fakeAPI) SessionMessages(ctx context.Context, id string) ([]models.Message, error) {
	a.mu.Lock()
	hook := a.beforeMessages
	a.mu.Unlock()
	if hook != nil {
		if err := hook(ctx, id); err != nil {
			return nil, err
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.msgErr != nil {
		return nil, a.msgErr
	}
	return append([]models.Message(nil), a.messages[id]...), nil
}

// fakeLive records what the coordinator asks of the connection
type fakeLive struct {
	mu         sync.Mutex
	connected  bool
	connects   []string
	closes     int
	sent       []any
	sendErr    error
	connectErr error
}

func (l *fakeLive) Connect(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connects = append(l.connects, id)
	if l.connectErr != nil {
		l.connected = false
		return l.connectErr
	}
	l.connected = true
	return nil
}

func (l *fakeLive) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closes++
	l.connected = false
}

func (l *fakeLive) Send(v any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.connected {
		return live.ErrNotConnected
	}
	if l.sendErr != nil {
		return l.sendErr
	}
	l.sent = append(l.sent, v)
	return nil
}

func (l *fakeLive) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected
}

func (l *fakeLive) setConnected(v bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connected = v
}

func (l *fakeLive) connectCalls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.connects...)
}

func (l *fakeLive) sentFrames() []models.ChatFrame {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.ChatFrame
	for _, v := range l.sent {
		if f, ok := v.(models.ChatFrame); ok {
			out = append(out, f)
		}
	}
	return out
}

// fakeDisplay keeps the rendered state
type fakeDisplay struct {
	mu         sync.Mutex
	messages   []models.Message
	resets     int
	sessions   []models.Session
	activeID   string
	listShown  int
	connected  bool
	typing     bool
	loading    bool
	attachment string
	errors     []string
}

func (d *fakeDisplay) ResetToWelcome() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resets++
	d.messages = nil
}

func (d *fakeDisplay) AppendMessage(m models.Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, m)
}

func (d *fakeDisplay) ShowSessions(sessions []models.Session, activeID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sessions = sessions
	d.activeID = activeID
	d.listShown++
}

func (d *fakeDisplay) SetConnected(v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = v
}

func (d *fakeDisplay) SetTyping(v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.typing = v
}

func (d *fakeDisplay) SetLoading(v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.loading = v
}

func (d *fakeDisplay) ShowAttachment(label string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attachment = label
}

func (d *fakeDisplay) ShowError(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errors = append(d.errors, msg)
}

func (d *fakeDisplay) rendered() []models.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]models.Message(nil), d.messages...)
}

func (d *fakeDisplay) shownErrors() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.errors...)
}

func (d *fakeDisplay) isConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

func (d *fakeDisplay) errorCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.errors)
}

type fakeTypist struct {
	mu         sync.Mutex
	activities int
	flushes    int
}

func (t *fakeTypist) Activity() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.activities++
}

func (t *fakeTypist) Flush() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.flushes++
}

type fixedLocation struct {
	loc *models.Location
}

func (f fixedLocation) LastLocation() *models.Location {
	return f.loc
}

type harness struct {
	api     *fakeAPI
	live    *fakeLive
	display *fakeDisplay
	typing  *fakeTypist
	coord   *Coordinator
}

func newHarness(api *fakeAPI, opts Options) *harness {
	h := &harness{
		api:     api,
		live:    &fakeLive{},
		display: &fakeDisplay{},
		typing:  &fakeTypist{},
	}
	opts.Typing = h.typing
	h.coord = New(api, h.live, h.display, opts)
	return h
}

func frameEvent(sessionID string, frame models.InboundFrame) live.Event {
	return live.Event{Kind: live.EventFrame, SessionID: sessionID, Frame: frame}
}
