package redis

import (
	"fmt"

	"github.com/communityhub/platform/cache"
)

// State is the lifecycle state of a Connection.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// inCycle reports whether s belongs to a running connect or reconnect cycle.
func (s State) inCycle() bool {
	return s == StateConnecting || s == StateReconnecting
}

// event drives the connection state machine.
type event int

const (
	eventConnect    event = iota // explicit or lazy connect requested
	eventSucceeded               // liveness probe succeeded
	eventFailed                  // connect or reconnect attempt failed
	eventDropped                 // established connection lost
	eventExhausted               // reconnect budget used up
	eventDisconnect              // explicit teardown
)

func (e event) String() string {
	switch e {
	case eventConnect:
		return "connect"
	case eventSucceeded:
		return "succeeded"
	case eventFailed:
		return "failed"
	case eventDropped:
		return "dropped"
	case eventExhausted:
		return "exhausted"
	case eventDisconnect:
		return "disconnect"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

var transitions = map[State]map[event]State{
	StateDisconnected: {
		eventConnect:    StateConnecting,
		eventDisconnect: StateDisconnected,
	},
	StateConnecting: {
		eventSucceeded:  StateConnected,
		eventFailed:     StateReconnecting,
		eventDisconnect: StateDisconnected,
	},
	StateConnected: {
		eventConnect:    StateConnected,
		eventDropped:    StateReconnecting,
		eventDisconnect: StateDisconnected,
	},
	StateReconnecting: {
		eventSucceeded:  StateConnected,
		eventFailed:     StateReconnecting,
		eventExhausted:  StateFailed,
		eventDisconnect: StateDisconnected,
	},
	StateFailed: {
		eventConnect:    StateConnecting,
		eventDisconnect: StateDisconnected,
	},
}

// transition returns the state reached from `from` on ev, or ErrInvalidTransition.
func transition(from State, ev event) (State, error) {
	if to, ok := transitions[from][ev]; ok {
		return to, nil
	}
	return from, fmt.Errorf("%w: %s on %s", cache.ErrInvalidTransition, from, ev)
}
