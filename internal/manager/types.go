package manager

import (
	"context"
	"io"
	"time"
)

// ProcessSpec is the fully resolved command line of the child server.
type ProcessSpec struct {
	Command string
	Args    []string
	Dir     string
	Env     []string
}

// Process is a started child process.
type Process interface {
	Pid() int
	Stdin() io.Writer
	Stdout() io.Reader
	// Wait blocks until the process exits. Callers must drain Stdout first.
	Wait() error
	Kill() error
}

// Spawner starts a process. A Spawner error means the process never ran.
type Spawner func(ctx context.Context, spec ProcessSpec) (Process, error)

const (
	DefaultPollInterval = 50 * time.Millisecond
	DefaultWaitInterval = 500 * time.Millisecond
	DefaultQueueSize    = 64
	DefaultStopCommand  = "stop"
)

// Config configures the supervisor and its per-generation loops.
type Config struct {
	Spec        ProcessSpec
	PrefixWidth int

	// PollInterval is the command forwarder's receive timeout.
	PollInterval time.Duration
	// WaitInterval is how often lifecycle state is re-checked while waiting.
	WaitInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.WaitInterval <= 0 {
		c.WaitInterval = DefaultWaitInterval
	}
	return c
}
