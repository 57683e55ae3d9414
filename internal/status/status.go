// Package status holds the state shared between the output scanner, the
// request dispatcher and the process supervisor.
//
// Each entity is guarded by its own lock: the console buffer, the roster
// (set and count), the reported capacity, the process state and the
// supervisor state. Reads spanning several entities are not atomic.
package status

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Status is the shared status aggregate. One instance lives for the whole
// supervisor run and survives process restarts.
type Status struct {
	console *Console
	roster  *Roster

	procMu sync.Mutex
	proc   ProcessState

	supMu sync.Mutex
	sup   SupervisorState
}

// New returns a Status with the process Starting and the supervisor Running.
func New() *Status {
	return &Status{
		console: NewConsole(),
		roster:  NewRoster(),
		proc:    ProcessStarting,
		sup:     SupervisorRunning,
	}
}

func (s *Status) AppendConsoleLine(line string) uint32 { return s.console.Append(line) }

func (s *Status) PlayerJoined(name string) bool { return s.roster.Joined(name) }

func (s *Status) PlayerLeft(name string) bool { return s.roster.Left(name) }

func (s *Status) SetMaxCapacity(n uint32) { s.roster.SetMaxCapacity(n) }

// ClearPlayers empties the roster, used when a process generation ends.
func (s *Status) ClearPlayers() { s.roster.Clear() }

// Console returns a newest-first copy of the console buffer.
func (s *Status) Console() []ConsoleLine { return s.console.Snapshot() }

// Roster returns a copy of the roster.
func (s *Status) Roster() RosterSnapshot { return s.roster.Snapshot() }

// ProcessState returns the current child-process phase.
func (s *Status) ProcessState() ProcessState {
	s.procMu.Lock()
	defer s.procMu.Unlock()
	mustValid(s.proc.Validate())
	return s.proc
}

// SupervisorState returns the current outer control state.
func (s *Status) SupervisorState() SupervisorState {
	s.supMu.Lock()
	defer s.supMu.Unlock()
	mustValid(s.sup.Validate())
	return s.sup
}

// TransitionProcess moves the process state to `to` if the transition
// table allows it. It returns the previous state.
func (s *Status) TransitionProcess(to ProcessState) (ProcessState, error) {
	if err := to.Validate(); err != nil {
		return 0, err
	}

	s.procMu.Lock()
	defer s.procMu.Unlock()

	from := s.proc
	if !from.CanTransition(to) {
		return from, &TransitionError{Machine: "process", From: from.String(), To: to.String()}
	}
	s.proc = to
	return from, nil
}

// TransitionSupervisor moves the supervisor state to `to` if the
// transition table allows it. It returns the previous state.
func (s *Status) TransitionSupervisor(to SupervisorState) (SupervisorState, error) {
	if err := to.Validate(); err != nil {
		return 0, err
	}

	s.supMu.Lock()
	defer s.supMu.Unlock()

	from := s.sup
	if !from.CanTransition(to) {
		return from, &TransitionError{Machine: "supervisor", From: from.String(), To: to.String()}
	}
	s.sup = to
	return from, nil
}

// WaitProcess polls the process state every interval until it equals want.
func (s *Status) WaitProcess(ctx context.Context, want ProcessState, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		if s.ProcessState() == want {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for process state %s: %w", want, ctx.Err())
		case <-t.C:
		}
	}
}

// A corrupted state value means an invariant was broken somewhere and
// nothing derived from it can be trusted.
func mustValid(err error) {
	if err != nil {
		panic(fmt.Sprintf("status: %v", err))
	}
}
