package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/faradayfan/minecraft-monitor/internal/assets"
	"github.com/faradayfan/minecraft-monitor/internal/protocol"
	"github.com/faradayfan/minecraft-monitor/internal/status"
	"github.com/faradayfan/minecraft-monitor/internal/transport"
)

// Lifecycle is the set of actions the endpoint can trigger.
type Lifecycle interface {
	Shutdown(ctx context.Context) error
	Restart(ctx context.Context) error
	AcceptEula(ctx context.Context) error
}

type Enqueuer interface {
	Enqueue(cmd string) error
}

type AssetSource interface {
	Lookup(path string) (assets.Asset, error)
}

// Options configures a Server. Zero values get defaults.
type Options struct {
	Addr string

	IndexPath    string
	EulaPath     string
	StartingPath string

	// Serial makes the accept loop wait for each connection to finish.
	Serial bool

	ReadTimeout   time.Duration
	ActionTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Addr == "" {
		o.Addr = "127.0.0.1:8000"
	}
	if o.IndexPath == "" {
		o.IndexPath = "/home.html"
	}
	if o.EulaPath == "" {
		o.EulaPath = "/eula.html"
	}
	if o.StartingPath == "" {
		o.StartingPath = "/starting.html"
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 10 * time.Second
	}
	if o.ActionTimeout <= 0 {
		o.ActionTimeout = 60 * time.Second
	}
	return o
}

// Server answers one request per connection from a fixed route table.
type Server struct {
	opts      Options
	status    *status.Status
	queue     Enqueuer
	lifecycle Lifecycle
	assets    AssetSource

	log    *log.Logger // diagnostics
	reqLog *log.Logger // request echo

	wg sync.WaitGroup
}

func NewServer(opts Options, st *status.Status, q Enqueuer, lc Lifecycle, a AssetSource, logger, reqLogger *log.Logger) *Server {
	return &Server{
		opts:      opts.withDefaults(),
		status:    st,
		queue:     q,
		lifecycle: lc,
		assets:    a,
		log:       logger,
		reqLog:    reqLogger,
	}
}

func (s *Server) Addr() string { return s.opts.Addr }

func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Accept errors are retried after a delay that doubles up to acceptDelayMax.
var (
	acceptDelayMin = 5 * time.Millisecond
	acceptDelayMax = time.Second
)

// Serve accepts connections until ctx is done. In-flight connections are
// allowed to finish before it returns.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.log.Info("listening", "addr", ln.Addr().String(), "serial", s.opts.Serial)

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()
	defer s.wg.Wait()

	var delay time.Duration
	for {
		c, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			delay = min(max(2*delay, acceptDelayMin), acceptDelayMax)
			s.log.Error("accept failed", "error", err, "retry_in", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil
			}
			continue
		}
		delay = 0

		done := make(chan struct{})
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer close(done)
			s.handleConn(ctx, c)
		}()
		if s.opts.Serial {
			<-done
		}
	}
}

func (s *Server) handleConn(ctx context.Context, c net.Conn) {
	conn := transport.NewConn(c)
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(s.opts.ReadTimeout))
	line, err := conn.ReadLine()
	if err != nil {
		s.log.Debug("read request failed", "remote", conn.RemoteAddr().String(), "error", err)
		return
	}

	path, err := protocol.ParseRequestLine(line)
	if err != nil {
		s.log.Debug("dropping request", "line", line, "error", err)
		return
	}

	resp := s.Dispatch(ctx, path)
	s.reqLog.Info("request", "path", path, "status", resp.Status)

	_ = conn.SetDeadline(time.Now().Add(s.opts.ReadTimeout))
	if err := conn.Send(resp); err != nil {
		s.log.Debug("write response failed", "path", path, "error", err)
	}
}
