package receiver

import "github.com/bft-labs/dcf77rx/internal/app"

// State is the lifecycle state of a Receiver.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// StateChangeEvent describes a lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// EventHandler receives receiver events.
//
// OnFrame runs on the delivery goroutine before the frame reaches any sink.
// OnStateChange runs on whichever goroutine caused the transition.
// Both should return quickly.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnFrame(frame Frame)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to handle
// only some events.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent) {}
func (BaseEventHandler) OnFrame(Frame)                  {}

// eventEmitter adapts an EventHandler to the internal observer interfaces.
type eventEmitter struct {
	handler EventHandler
}

func (e *eventEmitter) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e *eventEmitter) OnFrame(frame Frame) {
	if e.handler == nil {
		return
	}
	e.handler.OnFrame(frame)
}

func convertState(s app.State) State {
	switch s {
	case app.StateStarting:
		return StateStarting
	case app.StateRunning:
		return StateRunning
	case app.StateStopping:
		return StateStopping
	case app.StateCrashed:
		return StateCrashed
	default:
		return StateStopped
	}
}
