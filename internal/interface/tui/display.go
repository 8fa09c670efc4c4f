package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/neilberkman/medichat/internal/core/models"
)

// Display messages. The coordinator's Display calls become these, delivered
// to Update in call order.
type (
	resetMsg    struct{}
	appendMsg   struct{ msg models.Message }
	sessionsMsg struct {
		sessions []models.Session
		activeID string
	}
	connectedMsg  bool
	typingMsg     bool
	loadingMsg    bool
	attachmentMsg string
	errorMsg      string
)

// Sender is the part of *tea.Program the bridge uses
type Sender interface {
	Send(msg tea.Msg)
}

// Bridge implements chat.Display by queueing messages for the program. Calls
// never block; a single goroutine forwards the queue in order.
type Bridge struct {
	mu      sync.Mutex
	queue   []tea.Msg
	wake    chan struct{}
	done    chan struct{}
	stopped sync.Once
}

// NewBridge creates an idle bridge. Call Run to start delivery.
func NewBridge() *Bridge {
	return &Bridge{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Run forwards queued messages to s until Stop is called
func (b *Bridge) Run(s Sender) {
	go func() {
		for {
			select {
			case <-b.done:
				return
			case <-b.wake:
			}

			for {
				b.mu.Lock()
				if len(b.queue) == 0 {
					b.mu.Unlock()
					break
				}
				msg := b.queue[0]
				b.queue[0] = nil
				b.queue = b.queue[1:]
				b.mu.Unlock()

				s.Send(msg)
			}
		}
	}()
}

// Stop ends delivery. Messages still queued are dropped.
func (b *Bridge) Stop() {
	b.stopped.Do(func() { close(b.done) })
}

func (b *Bridge) post(msg tea.Msg) {
	b.mu.Lock()
	b.queue = append(b.queue, msg)
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *Bridge) ResetToWelcome()                  { b.post(resetMsg{}) }
func (b *Bridge) AppendMessage(msg models.Message) { b.post(appendMsg{msg: msg}) }
func (b *Bridge) SetConnected(v bool)              { b.post(connectedMsg(v)) }
func (b *Bridge) SetTyping(v bool)                 { b.post(typingMsg(v)) }
func (b *Bridge) SetLoading(v bool)                { b.post(loadingMsg(v)) }
func (b *Bridge) ShowAttachment(label string)      { b.post(attachmentMsg(label)) }
func (b *Bridge) ShowError(msg string)             { b.post(errorMsg(msg)) }

func (b *Bridge) ShowSessions(sessions []models.Session, activeID string) {
	b.post(sessionsMsg{sessions: sessions, activeID: activeID})
}
