package status

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestConsoleEvictsOldest(t *testing.T) {
	c := NewConsole()
	const n = ConsoleCapacity + 250

	for i := 0; i < n; i++ {
		c.Append(fmt.Sprintf("line %d", i))
	}

	snap := c.Snapshot()
	if len(snap) != ConsoleCapacity {
		t.Fatalf("expected %d lines, got %d", ConsoleCapacity, len(snap))
	}
	// newest first
	if snap[0].Line != fmt.Sprintf("line %d", n-1) {
		t.Errorf("expected newest line first, got %q", snap[0].Line)
	}
	if snap[len(snap)-1].Line != fmt.Sprintf("line %d", n-ConsoleCapacity) {
		t.Errorf("expected oldest kept line %d, got %q", n-ConsoleCapacity, snap[len(snap)-1].Line)
	}
	for i := 1; i < len(snap); i++ {
		if snap[i-1].Seq <= snap[i].Seq {
			t.Fatalf("sequence not strictly decreasing newest-first at %d: %d then %d", i, snap[i-1].Seq, snap[i].Seq)
		}
	}
}

func TestConsoleSequenceNeverReused(t *testing.T) {
	c := NewConsole()
	first := c.Append("a")
	second := c.Append("b")
	if second != first+1 {
		t.Errorf("expected consecutive sequence numbers, got %d then %d", first, second)
	}
}

func TestRosterIdempotence(t *testing.T) {
	r := NewRoster()

	if !r.Joined("Alice") {
		t.Error("first join should report a change")
	}
	if r.Joined("Alice") {
		t.Error("second join should be a no-op")
	}
	snap := r.Snapshot()
	if snap.Count != 1 || len(snap.Players) != 1 {
		t.Fatalf("expected one player, got count=%d players=%v", snap.Count, snap.Players)
	}

	if r.Left("Bob") {
		t.Error("leaving an absent player should be a no-op")
	}
	if got := r.Snapshot(); got.Count != 1 {
		t.Errorf("expected count 1 after absent leave, got %d", got.Count)
	}

	if !r.Left("Alice") {
		t.Error("leaving a present player should report a change")
	}
	if got := r.Snapshot(); got.Count != 0 || len(got.Players) != 0 {
		t.Errorf("expected empty roster, got %+v", got)
	}
}

func TestRosterCountMatchesSetUnderConcurrency(t *testing.T) {
	r := NewRoster()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("p%d", i%10)
			r.Joined(name)
			if i%3 == 0 {
				r.Left(name)
			}
		}(i)
	}
	wg.Wait()

	snap := r.Snapshot()
	if snap.Count != len(snap.Players) {
		t.Errorf("count %d does not match players %v", snap.Count, snap.Players)
	}
}

func TestMaxCapacityOverwrite(t *testing.T) {
	r := NewRoster()
	r.SetMaxCapacity(50)
	r.SetMaxCapacity(20)
	r.Joined("Steve")
	if got := r.MaxCapacity(); got != 20 {
		t.Errorf("expected capacity 20, got %d", got)
	}
}

func TestProcessTransitions(t *testing.T) {
	tests := []struct {
		from ProcessState
		to   ProcessState
		ok   bool
	}{
		{ProcessStarting, ProcessRunning, true},
		{ProcessStarting, ProcessEula, true},
		{ProcessRunning, ProcessOff, true},
		{ProcessRunning, ProcessRunning, true},
		{ProcessOff, ProcessStarting, true},
		{ProcessEula, ProcessStarting, true},
		{ProcessRunning, ProcessStarting, false},
		{ProcessOff, ProcessRunning, false},
		{ProcessEula, ProcessRunning, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.ok {
				t.Errorf("expected %v, got %v", tt.ok, got)
			}
		})
	}
}

func TestStatusRejectsIllegalTransition(t *testing.T) {
	s := New()

	if _, err := s.TransitionProcess(ProcessRunning); err != nil {
		t.Fatalf("starting -> running: %v", err)
	}
	from, err := s.TransitionProcess(ProcessStarting)
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
	if from != ProcessRunning || s.ProcessState() != ProcessRunning {
		t.Errorf("state changed on rejected transition: %s", s.ProcessState())
	}

	if _, err := s.TransitionSupervisor(SupervisorShutDown); err != nil {
		t.Fatalf("running -> shutdown: %v", err)
	}
	if _, err := s.TransitionSupervisor(SupervisorRunning); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("shutdown should be terminal, got %v", err)
	}
}

func TestStatusRejectsUndefinedState(t *testing.T) {
	s := New()
	if _, err := s.TransitionProcess(ProcessState(42)); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}

func TestWaitProcess(t *testing.T) {
	s := New()

	go func() {
		time.Sleep(20 * time.Millisecond)
		_, _ = s.TransitionProcess(ProcessOff)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.WaitProcess(ctx, ProcessOff, 5*time.Millisecond); err != nil {
		t.Fatalf("WaitProcess: %v", err)
	}

	ctx, cancel = context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := s.WaitProcess(ctx, ProcessRunning, 5*time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
