package status

import (
	"errors"
	"fmt"
)

// ProcessState is the child-process lifecycle phase derived from its output.
type ProcessState int32

const (
	ProcessEula ProcessState = iota
	ProcessStarting
	ProcessRunning
	ProcessOff
)

// SupervisorState is the outer run-loop control flag.
type SupervisorState int32

const (
	SupervisorRunning SupervisorState = iota
	SupervisorRestart
	SupervisorShutDown
)

var (
	// ErrInvalidState is returned when a state value is not one of the defined values.
	ErrInvalidState = errors.New("invalid state")
	// ErrIllegalTransition is returned when the transition table rejects a move.
	ErrIllegalTransition = errors.New("illegal state transition")
)

// TransitionError describes a rejected transition. It wraps ErrIllegalTransition.
type TransitionError struct {
	Machine string
	From    string
	To      string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s state: cannot move from %s to %s", e.Machine, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrIllegalTransition }

func (s ProcessState) String() string {
	switch s {
	case ProcessEula:
		return "eula"
	case ProcessStarting:
		return "starting"
	case ProcessRunning:
		return "running"
	case ProcessOff:
		return "off"
	default:
		return "unknown"
	}
}

// Validate returns an error wrapping ErrInvalidState for undefined values.
func (s ProcessState) Validate() error {
	switch s {
	case ProcessEula, ProcessStarting, ProcessRunning, ProcessOff:
		return nil
	default:
		return fmt.Errorf("process state %d: %w", int32(s), ErrInvalidState)
	}
}

func (s SupervisorState) String() string {
	switch s {
	case SupervisorRunning:
		return "running"
	case SupervisorRestart:
		return "restart"
	case SupervisorShutDown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Validate returns an error wrapping ErrInvalidState for undefined values.
func (s SupervisorState) Validate() error {
	switch s {
	case SupervisorRunning, SupervisorRestart, SupervisorShutDown:
		return nil
	default:
		return fmt.Errorf("supervisor state %d: %w", int32(s), ErrInvalidState)
	}
}

// processTransitions is the only place process-state legality is decided.
var processTransitions = map[ProcessState][]ProcessState{
	ProcessStarting: {ProcessRunning, ProcessOff, ProcessEula},
	ProcessRunning:  {ProcessOff},
	ProcessOff:      {ProcessStarting, ProcessEula},
	ProcessEula:     {ProcessStarting, ProcessOff},
}

// ShutDown is terminal.
var supervisorTransitions = map[SupervisorState][]SupervisorState{
	SupervisorRunning: {SupervisorRestart, SupervisorShutDown},
	SupervisorRestart: {SupervisorRunning, SupervisorShutDown},
}

// CanTransition reports whether from -> to is legal. Same-state moves are accepted.
func (s ProcessState) CanTransition(to ProcessState) bool {
	if s == to {
		return true
	}
	for _, next := range processTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// CanTransition reports whether from -> to is legal. Same-state moves are accepted.
func (s SupervisorState) CanTransition(to SupervisorState) bool {
	if s == to {
		return true
	}
	for _, next := range supervisorTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}
