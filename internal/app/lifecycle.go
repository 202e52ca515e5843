package app

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/bft-labs/dcf77rx/internal/domain"
	"github.com/bft-labs/dcf77rx/internal/ports"
	"github.com/bft-labs/dcf77rx/pkg/log"
)

// ShutdownTimeout is the maximum time to wait for graceful shutdown.
const ShutdownTimeout = 30 * time.Second

// State represents the lifecycle state of the receiver.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

// String returns a human-readable representation of the state.
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

// transition describes the states reachable from a state and the error
// reported for any other target.
type transition struct {
	to  []State
	err error
}

var transitions = map[State]transition{
	StateStopped:  {to: []State{StateStarting}, err: domain.ErrNotRunning},
	StateStarting: {to: []State{StateRunning, StateStopping, StateCrashed}, err: domain.ErrAlreadyRunning},
	StateRunning:  {to: []State{StateStopping, StateCrashed}, err: domain.ErrAlreadyRunning},
	StateStopping: {to: []State{StateStopped, StateCrashed}, err: domain.ErrAlreadyRunning},
	StateCrashed:  {to: []State{StateStarting}, err: domain.ErrNotRunning},
}

// StateObserver is called after every state change.
type StateObserver interface {
	OnStateChange(previous, current State, reason string)
}

// Lifecycle manages the state machine of the receiver and tracks its
// worker goroutines.
type Lifecycle struct {
	mu       sync.RWMutex
	state    State
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	logger   ports.Logger
	observer StateObserver
	clock    clockwork.Clock
}

// NewLifecycle creates a lifecycle in StateStopped. observer may be nil.
func NewLifecycle(logger ports.Logger, observer StateObserver, clock clockwork.Clock) *Lifecycle {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Lifecycle{
		state:    StateStopped,
		logger:   logger,
		observer: observer,
		clock:    clock,
	}
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// TransitionTo moves to newState or returns the error registered for the
// current state when the move is not allowed.
func (l *Lifecycle) TransitionTo(newState State, reason string) error {
	l.mu.Lock()
	oldState := l.state

	allowed := false
	tr := transitions[oldState]
	for _, s := range tr.to {
		if s == newState {
			allowed = true
			break
		}
	}
	if !allowed {
		l.mu.Unlock()
		return tr.err
	}

	l.state = newState
	l.mu.Unlock()

	if l.observer != nil {
		l.observer.OnStateChange(oldState, newState, reason)
	}

	l.logger.Info("state transition",
		log.String("from", oldState.String()),
		log.String("to", newState.String()),
		log.String("reason", reason),
	)
	return nil
}

// CanStart returns true if Start() can be called.
func (l *Lifecycle) CanStart() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateStopped || l.state == StateCrashed
}

// CanStop returns true if Stop() can be called.
func (l *Lifecycle) CanStop() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateRunning || l.state == StateStarting
}

// SetCancel stores the cancel function for graceful shutdown.
func (l *Lifecycle) SetCancel(cancel context.CancelFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancel = cancel
}

// Cancel triggers graceful shutdown.
func (l *Lifecycle) Cancel() {
	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// AddWorker increments the worker count.
func (l *Lifecycle) AddWorker() {
	l.wg.Add(1)
}

// WorkerDone decrements the worker count.
func (l *Lifecycle) WorkerDone() {
	l.wg.Done()
}

// Wait blocks until all workers are done.
func (l *Lifecycle) Wait() {
	l.wg.Wait()
}

// WaitWithTimeout waits for all workers to finish.
// Returns ErrShutdownTimeout if the timeout expires.
func (l *Lifecycle) WaitWithTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-l.clock.After(timeout):
		l.logger.Warn("shutdown timeout, forcing exit",
			log.Duration("timeout", timeout),
		)
		return domain.ErrShutdownTimeout
	}
}
