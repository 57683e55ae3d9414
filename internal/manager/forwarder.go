package manager

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var (
	// ErrNoProcess is returned by Enqueue while no process generation is live.
	ErrNoProcess = errors.New("no server process is running")
	// ErrQueueFull is returned by Enqueue when the buffer is full.
	ErrQueueFull = errors.New("command queue is full")
)

// Queue is the FIFO of commands destined for the child's stdin. It
// outlives process generations: commands still buffered when a child exits
// are delivered to the next one. Commands offered while no generation is
// attached are refused with ErrNoProcess rather than dropped.
type Queue struct {
	ch chan string

	mu       sync.Mutex
	attached bool
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{ch: make(chan string, size)}
}

// Enqueue appends cmd to the queue without blocking.
func (q *Queue) Enqueue(cmd string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.attached {
		return ErrNoProcess
	}
	select {
	case q.ch <- cmd:
		return nil
	default:
		return ErrQueueFull
	}
}

// Len returns the number of buffered commands.
func (q *Queue) Len() int { return len(q.ch) }

// Attach marks a process generation as live so Enqueue accepts commands.
func (q *Queue) Attach() { q.setAttached(true) }

// Detach makes Enqueue refuse commands again. Buffered ones are kept.
func (q *Queue) Detach() { q.setAttached(false) }

func (q *Queue) setAttached(v bool) {
	q.mu.Lock()
	q.attached = v
	q.mu.Unlock()
}

// Forwarder drains a Queue into one child process's stdin.
type Forwarder struct {
	queue    *Queue
	w        io.Writer
	interval time.Duration
	log      *log.Logger
}

func NewForwarder(q *Queue, w io.Writer, interval time.Duration, logger *log.Logger) *Forwarder {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Forwarder{queue: q, w: w, interval: interval, log: logger}
}

// Run polls the queue every interval and writes each command, newline
// terminated, in receive order. It returns nil once done is closed, or the
// first write error.
func (f *Forwarder) Run(done <-chan struct{}) error {
	for {
		select {
		case <-done:
			return nil
		default:
		}

		select {
		case cmd := <-f.queue.ch:
			f.log.Info(cmd)
			if _, err := io.WriteString(f.w, cmd+"\n"); err != nil {
				return fmt.Errorf("write command %q: %w", cmd, err)
			}
		case <-time.After(f.interval):
			// nothing queued
		case <-done:
			return nil
		}
	}
}
