package live

import (
	"sync"
	"time"

	"github.com/neilberkman/medichat/internal/core/logger"
	"github.com/neilberkman/medichat/internal/core/models"
)

// Sender is what the typing notifier needs from the connection
type Sender interface {
	Send(v any) error
	Connected() bool
}

// TypingNotifier sends typing_start when input activity begins and a
// debounced typing_stop once input has been idle for the configured interval.
type TypingNotifier struct {
	sender    Sender
	idle      time.Duration
	afterFunc AfterFunc

	mu     sync.Mutex
	typing bool
	timer  Timer
	gen    uint64
}

// NewTypingNotifier creates a notifier. afterFunc may be nil.
func NewTypingNotifier(sender Sender, idle time.Duration, afterFunc AfterFunc) *TypingNotifier {
	if afterFunc == nil {
		afterFunc = defaultAfterFunc
	}
	if idle <= 0 {
		idle = time.Second
	}
	return &TypingNotifier{
		sender:    sender,
		idle:      idle,
		afterFunc: afterFunc,
	}
}

// Activity records local input. It is a no-op while disconnected.
func (n *TypingNotifier) Activity() {
	if !n.sender.Connected() {
		return
	}

	n.mu.Lock()
	if n.timer != nil {
		n.timer.Stop()
	}
	n.gen++
	gen := n.gen
	start := !n.typing
	n.typing = true
	n.timer = n.afterFunc(n.idle, func() { n.idleFired(gen) })
	n.mu.Unlock()

	if start {
		n.send(models.FrameTypingStart)
	}
}

// Flush ends a typing burst immediately, e.g. when the message is sent
func (n *TypingNotifier) Flush() {
	n.mu.Lock()
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.gen++
	wasTyping := n.typing
	n.typing = false
	n.mu.Unlock()

	if wasTyping {
		n.send(models.FrameTypingStop)
	}
}

// Typing reports whether a burst is in progress
func (n *TypingNotifier) Typing() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.typing
}

func (n *TypingNotifier) idleFired(gen uint64) {
	n.mu.Lock()
	if gen != n.gen || !n.typing {
		n.mu.Unlock()
		return
	}
	n.typing = false
	n.timer = nil
	n.mu.Unlock()

	n.send(models.FrameTypingStop)
}

func (n *TypingNotifier) send(t models.FrameType) {
	if err := n.sender.Send(models.SignalFrame{Type: t}); err != nil {
		logger.Debug("typing signal not sent", "type", t, "err", err)
	}
}
