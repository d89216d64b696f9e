package cluster

import (
	"dxwatch/cc11"
	"dxwatch/spot"
)

// State tracks the connection lifecycle. Exactly one non-terminal state is
// active per link; only the link's own loop mutates it.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateAuthenticating
	StateStreaming
	StateReconnecting
	StateDisconnecting
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateStreaming:
		return "streaming"
	case StateReconnecting:
		return "reconnecting"
	case StateDisconnecting:
		return "disconnecting"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Event is the closed set of notifications a Link emits. Consumers switch on
// the concrete type instead of inspecting string keys.
type Event interface {
	event()
}

// SpotEvent carries one parsed spot.
type SpotEvent struct {
	Spot *spot.Spot
}

// SolarEvent carries a parsed solar-index update.
type SolarEvent struct {
	Solar cc11.Solar
}

// StatusEvent reports a state transition or a human-readable condition
// ("connection lost, retrying"). No structured error codes cross this
// boundary; the display layer shows the string as-is.
type StatusEvent struct {
	State   State
	Message string
}

// SentEvent confirms an outbound command was written to the wire.
type SentEvent struct {
	Command string
}

func (SpotEvent) event()   {}
func (SolarEvent) event()  {}
func (StatusEvent) event() {}
func (SentEvent) event()   {}
