package manager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/faradayfan/minecraft-monitor/internal/status"
)

// Enqueuer accepts commands for the child process.
type Enqueuer interface {
	Enqueue(cmd string) error
}

// Controller implements the shutdown and restart protocol: ask a running
// server to stop, wait until it is Off, then flip the supervisor state.
type Controller struct {
	status   *status.Status
	queue    Enqueuer
	stop     string
	interval time.Duration
	dir      string
	log      *log.Logger

	mu sync.Mutex // one lifecycle operation at a time
}

// ControllerConfig configures a Controller.
type ControllerConfig struct {
	StopCommand  string
	WaitInterval time.Duration
	// ServerDir holds the child's eula.txt.
	ServerDir string
}

func NewController(st *status.Status, q Enqueuer, cfg ControllerConfig, logger *log.Logger) *Controller {
	if cfg.StopCommand == "" {
		cfg.StopCommand = DefaultStopCommand
	}
	if cfg.WaitInterval <= 0 {
		cfg.WaitInterval = DefaultWaitInterval
	}
	return &Controller{
		status:   st,
		queue:    q,
		stop:     cfg.StopCommand,
		interval: cfg.WaitInterval,
		dir:      cfg.ServerDir,
		log:      logger,
	}
}

// Shutdown stops the server if it is running and then ends the supervisor run.
func (c *Controller) Shutdown(ctx context.Context) error {
	return c.stopThen(ctx, status.SupervisorShutDown)
}

// Restart stops the server if it is running and then asks the supervisor to relaunch it.
func (c *Controller) Restart(ctx context.Context) error {
	return c.stopThen(ctx, status.SupervisorRestart)
}

// AcceptEula records acceptance in eula.txt and restarts the server.
func (c *Controller) AcceptEula(ctx context.Context) error {
	path := filepath.Join(c.dir, "eula.txt")
	if err := os.WriteFile(path, []byte("eula=true\n"), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	c.log.Info("eula accepted", "path", path)
	return c.Restart(ctx)
}

func (c *Controller) stopThen(ctx context.Context, next status.SupervisorState) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status.ProcessState() == status.ProcessRunning {
		c.log.Info("stopping server", "then", next)
		if err := c.queue.Enqueue(c.stop); err != nil {
			return fmt.Errorf("enqueue stop command: %w", err)
		}
		if err := c.status.WaitProcess(ctx, status.ProcessOff, c.interval); err != nil {
			return err
		}
	}

	from, err := c.status.TransitionSupervisor(next)
	if err != nil {
		return err
	}
	c.log.Info("supervisor state changed", "from", from, "to", next)
	return nil
}
