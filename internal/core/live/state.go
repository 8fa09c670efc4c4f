package live

import "fmt"

// State is the lifecycle state of the live connection
type State int

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// trigger is a typed transition event
type trigger int

const (
	triggerDial       trigger = iota // Connect called, or a retry fired
	triggerOpened                    // Handshake completed
	triggerDialFailed                // Handshake failed
	triggerDropped                   // Read loop ended with a non-normal close
	triggerClosed                    // Normal close from either side
	triggerAbandon                   // Retry fired for a session that is no longer active
)

func (t trigger) String() string {
	switch t {
	case triggerDial:
		return "dial"
	case triggerOpened:
		return "opened"
	case triggerDialFailed:
		return "dial-failed"
	case triggerDropped:
		return "dropped"
	case triggerClosed:
		return "closed"
	case triggerAbandon:
		return "abandon"
	}
	return fmt.Sprintf("trigger(%d)", int(t))
}

var transitions = map[State]map[trigger]State{
	StateClosed: {
		triggerDial:   StateConnecting,
		triggerClosed: StateClosed,
	},
	StateConnecting: {
		triggerDial:       StateConnecting,
		triggerOpened:     StateOpen,
		triggerDialFailed: StateReconnecting,
		triggerClosed:     StateClosed,
	},
	StateOpen: {
		triggerDial:    StateConnecting,
		triggerDropped: StateReconnecting,
		triggerClosed:  StateClosed,
	},
	StateReconnecting: {
		triggerDial:    StateConnecting,
		triggerClosed:  StateClosed,
		triggerAbandon: StateClosed,
	},
}

// next returns the state reached from s on t
func (s State) next(t trigger) (State, error) {
	if to, ok := transitions[s][t]; ok {
		return to, nil
	}
	return s, fmt.Errorf("invalid transition: %s on %s", t, s)
}
