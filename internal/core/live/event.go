package live

import "github.com/neilberkman/medichat/internal/core/models"

// EventKind identifies what happened on the live connection
type EventKind int

const (
	EventOpened EventKind = iota
	EventFrame
	EventClosed
	EventTransportError
)

func (k EventKind) String() string {
	switch k {
	case EventOpened:
		return "opened"
	case EventFrame:
		return "frame"
	case EventClosed:
		return "closed"
	case EventTransportError:
		return "transport-error"
	}
	return "unknown"
}

// Event is delivered to the Handler. SessionID is the session the originating
// connection was opened for.
type Event struct {
	Kind      EventKind
	SessionID string
	Frame     models.InboundFrame // EventFrame
	Code      int                 // EventClosed
	Err       error               // EventTransportError
}

// Handler consumes live connection events. ActiveSessionID is consulted when a
// delayed reconnect fires.
type Handler interface {
	HandleEvent(Event)
	ActiveSessionID() string
}
