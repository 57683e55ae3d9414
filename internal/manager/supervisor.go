// Package manager supervises the child server process: it spawns one
// generation at a time, wires its output to a scanner and its input to a
// command forwarder, and relaunches or stops according to supervisor state.
package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/oklog/ulid/v2"

	"github.com/faradayfan/minecraft-monitor/internal/logging"
	"github.com/faradayfan/minecraft-monitor/internal/scanner"
	"github.com/faradayfan/minecraft-monitor/internal/status"
)

// Supervisor owns the child process handle across generations.
type Supervisor struct {
	cfg    Config
	status *status.Status
	queue  *Queue
	spawn  Spawner
	logs   *logging.Set

	mu      sync.Mutex
	current Process
}

func NewSupervisor(cfg Config, st *status.Status, q *Queue, spawn Spawner, logs *logging.Set) *Supervisor {
	if spawn == nil {
		spawn = ExecSpawner
	}
	return &Supervisor{
		cfg:    cfg.withDefaults(),
		status: st,
		queue:  q,
		spawn:  spawn,
		logs:   logs,
	}
}

// Run launches generations until the supervisor state becomes ShutDown.
// A spawn failure is returned immediately; a child that exits on its own
// leaves the supervisor idle until a restart or shutdown is requested.
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		if s.status.SupervisorState() == status.SupervisorShutDown {
			return nil
		}

		if err := s.runGeneration(ctx); err != nil {
			return err
		}

		next, err := s.awaitDecision(ctx)
		if err != nil {
			return err
		}
		if next == status.SupervisorShutDown {
			s.logs.Supervisor.Info("supervisor shut down")
			return nil
		}

		ok, err := s.resume()
		if err != nil {
			return err
		}
		if !ok {
			s.logs.Supervisor.Info("supervisor shut down")
			return nil
		}
		s.logs.Supervisor.Info("restarting server")
	}
}

// resume moves a restarting supervisor back to Running. It reports false
// when a shutdown landed after the restart decision was taken.
func (s *Supervisor) resume() (bool, error) {
	_, err := s.status.TransitionSupervisor(status.SupervisorRunning)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, status.ErrIllegalTransition) && s.status.SupervisorState() == status.SupervisorShutDown {
		return false, nil
	}
	return false, err
}

// Kill force-stops the live generation, if any.
func (s *Supervisor) Kill() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	return s.current.Kill()
}

func (s *Supervisor) runGeneration(ctx context.Context) error {
	logger := s.logs.Supervisor.With("generation", ulid.Make().String())

	if _, err := s.status.TransitionProcess(status.ProcessStarting); err != nil {
		return err
	}

	proc, err := s.spawn(ctx, s.cfg.Spec)
	if err != nil {
		return fmt.Errorf("spawn %s: %w", s.cfg.Spec.Command, err)
	}
	s.setCurrent(proc)
	defer s.setCurrent(nil)

	logger.Info("server started", "pid", proc.Pid(), "command", s.cfg.Spec.Command, "args", s.cfg.Spec.Args)

	s.queue.Attach()
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		fwd := NewForwarder(s.queue, proc.Stdin(), s.cfg.PollInterval, s.logs.Command)
		if err := fwd.Run(done); err != nil {
			logger.Error("command forwarder stopped", "error", err)
		}
	}()

	sc := scanner.New(s.status, s.cfg.PrefixWidth, s.logs.Console, logger)
	lines, scanErr := sc.Run(proc.Stdout())
	if scanErr != nil {
		logger.Error("reading server output failed", "error", scanErr)
		// the stream is gone; make sure the process is too so Wait returns
		_ = proc.Kill()
	}

	s.queue.Detach()
	close(done)
	wg.Wait()

	waitErr := proc.Wait()
	s.endGeneration(logger)

	logger.Info("server exited", "lines", lines, "exit_code", ExitCode(waitErr))
	return nil
}

func (s *Supervisor) endGeneration(logger *log.Logger) {
	s.status.ClearPlayers()
	if s.status.ProcessState() == status.ProcessEula {
		logger.Warn("server is waiting for the EULA to be accepted")
		return
	}
	if _, err := s.status.TransitionProcess(status.ProcessOff); err != nil {
		logger.Warn("ignoring state change", "error", err)
	}
}

// awaitDecision polls the supervisor state after a generation ended.
func (s *Supervisor) awaitDecision(ctx context.Context) (status.SupervisorState, error) {
	t := time.NewTicker(s.cfg.WaitInterval)
	defer t.Stop()

	logged := false
	for {
		switch st := s.status.SupervisorState(); st {
		case status.SupervisorRestart, status.SupervisorShutDown:
			return st, nil
		}
		if !logged {
			s.logs.Supervisor.Info("waiting for a restart or shutdown request")
			logged = true
		}

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-t.C:
		}
	}
}

func (s *Supervisor) setCurrent(p Process) {
	s.mu.Lock()
	s.current = p
	s.mu.Unlock()
}
