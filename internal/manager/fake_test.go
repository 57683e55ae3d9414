package manager

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/faradayfan/minecraft-monitor/internal/logging"
	"github.com/faradayfan/minecraft-monitor/internal/status"
)

const logPrefix = "[12:00:00 INFO]: "

// fakeChild is a scripted stand-in for the server process. It answers the
// stop command the way the real server does.
type fakeChild struct {
	outR *io.PipeReader
	outW *io.PipeWriter
	inR  *io.PipeReader
	inW  *io.PipeWriter

	received chan string
	exited   chan struct{}
	once     sync.Once
}

func newFakeChild() *fakeChild {
	c := &fakeChild{
		received: make(chan string, 16),
		exited:   make(chan struct{}),
	}
	c.outR, c.outW = io.Pipe()
	c.inR, c.inW = io.Pipe()

	go func() {
		sc := bufio.NewScanner(c.inR)
		for sc.Scan() {
			line := sc.Text()
			c.received <- line
			if line == "stop" {
				c.say("Stopping the server")
				c.say("Closing Server")
				c.exit()
				return
			}
		}
	}()
	return c
}

func (c *fakeChild) Pid() int          { return 4242 }
func (c *fakeChild) Stdin() io.Writer  { return c.inW }
func (c *fakeChild) Stdout() io.Reader { return c.outR }

func (c *fakeChild) Wait() error {
	<-c.exited
	return nil
}

func (c *fakeChild) Kill() error {
	c.exit()
	return nil
}

func (c *fakeChild) say(line string) {
	_, _ = fmt.Fprintln(c.outW, logPrefix+line)
}

func (c *fakeChild) exit() {
	c.once.Do(func() {
		_ = c.outW.Close()
		_ = c.inR.Close()
		close(c.exited)
	})
}

func (c *fakeChild) expectReceived(t *testing.T, want string, within time.Duration) {
	t.Helper()
	select {
	case got := <-c.received:
		if got != want {
			t.Fatalf("expected child to receive %q, got %q", want, got)
		}
	case <-time.After(within):
		t.Fatalf("child did not receive %q within %s", want, within)
	}
}

// fakeSpawner hands out fakeChild processes and publishes each one.
type fakeSpawner struct {
	spawned chan *fakeChild
	err     error
}

func newFakeSpawner() *fakeSpawner {
	return &fakeSpawner{spawned: make(chan *fakeChild, 4)}
}

func (f *fakeSpawner) spawn(ctx context.Context, spec ProcessSpec) (Process, error) {
	if f.err != nil {
		return nil, f.err
	}
	c := newFakeChild()
	f.spawned <- c
	return c, nil
}

func (f *fakeSpawner) next(t *testing.T) *fakeChild {
	t.Helper()
	select {
	case c := <-f.spawned:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no process was spawned")
		return nil
	}
}

type harness struct {
	status     *status.Status
	queue      *Queue
	spawner    *fakeSpawner
	supervisor *Supervisor
	controller *Controller
	runErr     chan error
}

func newHarness(t *testing.T, serverDir string) *harness {
	t.Helper()

	h := &harness{
		status:  status.New(),
		queue:   NewQueue(8),
		spawner: newFakeSpawner(),
		runErr:  make(chan error, 1),
	}
	cfg := Config{
		Spec:         ProcessSpec{Command: "java", Args: []string{"-jar", "server.jar", "nogui"}},
		PrefixWidth:  len(logPrefix),
		PollInterval: 5 * time.Millisecond,
		WaitInterval: 5 * time.Millisecond,
	}
	logs := logging.Discard()
	h.supervisor = NewSupervisor(cfg, h.status, h.queue, h.spawner.spawn, logs)
	h.controller = NewController(h.status, h.queue, ControllerConfig{
		WaitInterval: 5 * time.Millisecond,
		ServerDir:    serverDir,
	}, logs.Supervisor)
	return h
}

func (h *harness) start() {
	go func() { h.runErr <- h.supervisor.Run(context.Background()) }()
}

func (h *harness) waitProcess(t *testing.T, want status.ProcessState) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.status.WaitProcess(ctx, want, time.Millisecond); err != nil {
		t.Fatalf("process never reached %s (now %s): %v", want, h.status.ProcessState(), err)
	}
}

func (h *harness) waitRun(t *testing.T) error {
	t.Helper()
	select {
	case err := <-h.runErr:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not return")
		return nil
	}
}
