package live

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type readResult struct {
	data []byte
	err  error
}

// fakeConn feeds ReadMessage from a channel and records writes
type fakeConn struct {
	reads     chan readResult
	closed    chan struct{}
	closeOnce sync.Once

	mu       sync.Mutex
	writes   [][]byte
	controls []int
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		reads:  make(chan readResult, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case r := <-c.reads:
		if r.err != nil {
			return 0, nil, r.err
		}
		return websocket.TextMessage, r.data, nil
	case <-c.closed:
		return 0, nil, net.ErrClosed
	}
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	if c.isClosed() {
		return net.ErrClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, data)
	return nil
}

func (c *fakeConn) WriteControl(messageType int, _ []byte, _ time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controls = append(c.controls, messageType)
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) push(data string) {
	c.reads <- readResult{data: []byte(data)}
}

func (c *fakeConn) drop(err error) {
	c.reads <- readResult{err: err}
}

func (c *fakeConn) written() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.writes...)
}

// fakeDialer hands out fakeConns and notes whether a dial ever happened while
// an earlier connection was still open
type fakeDialer struct {
	mu      sync.Mutex
	conns   []*fakeConn
	urls    []string
	fail    error
	overlap bool
}

func (d *fakeDialer) dial(_ context.Context, u string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.urls = append(d.urls, u)
	if d.fail != nil {
		return nil, d.fail
	}
	for _, c := range d.conns {
		if !c.isClosed() {
			d.overlap = true
		}
	}
	c := newFakeConn()
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[i]
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.urls)
}

func (d *fakeDialer) setFail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail = err
}

type fakeTimer struct {
	mu      sync.Mutex
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

type scheduled struct {
	delay time.Duration
	fn    func()
	timer *fakeTimer
}

// fakeScheduler records AfterFunc calls; tests fire them by hand
type fakeScheduler struct {
	mu    sync.Mutex
	calls []scheduled
}

func (s *fakeScheduler) afterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{}
	s.calls = append(s.calls, scheduled{delay: d, fn: f, timer: t})
	return t
}

func (s *fakeScheduler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *fakeScheduler) fire(i int) {
	s.mu.Lock()
	call := s.calls[i]
	s.mu.Unlock()
	call.fn()
}

func (s *fakeScheduler) last() scheduled {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[len(s.calls)-1]
}

// recorder is a Handler that buffers events
type recorder struct {
	events chan Event

	mu     sync.Mutex
	active string
}

func newRecorder(active string) *recorder {
	return &recorder{events: make(chan Event, 64), active: active}
}

func (r *recorder) HandleEvent(ev Event) {
	r.events <- ev
}

func (r *recorder) ActiveSessionID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

func (r *recorder) setActive(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = id
}

// next waits for the next event of kind, skipping others
func (r *recorder) next(t *testing.T, kind EventKind) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-r.events:
			if ev.Kind == kind {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s event", kind)
			return Event{}
		}
	}
}

// waitState polls until the manager reaches want
func waitState(t *testing.T, m *Manager, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state = %s, want %s", m.State(), want)
}

var errBoom = errors.New("boom")

func newTestManager(active string) (*Manager, *fakeDialer, *fakeScheduler, *recorder) {
	dialer := &fakeDialer{}
	sched := &fakeScheduler{}
	m := NewManager("http://chat.test", Options{
		ReconnectDelay: 3 * time.Second,
		Dial:           dialer.dial,
		AfterFunc:      sched.afterFunc,
	})
	rec := newRecorder(active)
	m.Bind(rec)
	return m, dialer, sched, rec
}
