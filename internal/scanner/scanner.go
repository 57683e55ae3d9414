// Package scanner reads the child server's output and turns recognised
// lines into status changes.
package scanner

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/faradayfan/minecraft-monitor/internal/status"
)

// Scanner consumes one process generation's output stream.
type Scanner struct {
	status      *status.Status
	prefixWidth int

	echo *log.Logger // raw console lines
	log  *log.Logger // diagnostics
}

// New returns a Scanner applying events to st.
func New(st *status.Status, prefixWidth int, echo, logger *log.Logger) *Scanner {
	return &Scanner{
		status:      st,
		prefixWidth: prefixWidth,
		echo:        echo,
		log:         logger,
	}
}

// Run reads r line by line until end of stream. It returns the number of
// lines read and the read error, which is nil when the stream simply ended.
// There is no read timeout: a child that stops writing without exiting
// blocks Run indefinitely.
func (s *Scanner) Run(r io.Reader) (int, error) {
	br := bufio.NewReader(r)
	lines := 0

	for {
		raw, err := br.ReadString('\n')
		if raw != "" {
			s.HandleLine(raw)
			lines++
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return lines, nil
			}
			return lines, err
		}
	}
}

// HandleLine records one raw output line and applies its event.
func (s *Scanner) HandleLine(raw string) {
	line := strings.TrimRight(raw, "\r\n")
	if line == "" {
		return
	}

	seq := s.status.AppendConsoleLine(line)
	s.echo.Info(line)

	content, err := StripPrefix(line, s.prefixWidth)
	if err != nil {
		s.log.Debug("skipping line", "seq", seq, "reason", err)
		return
	}

	ev, err := Classify(content)
	if err != nil {
		s.log.Debug("skipping line", "seq", seq, "reason", err)
		return
	}
	s.apply(ev)
}

func (s *Scanner) apply(ev Event) {
	switch ev.Kind {
	case EventNone:
	case EventCapacity:
		s.status.SetMaxCapacity(ev.Max)
	case EventStarted:
		s.transition(status.ProcessRunning)
	case EventStopping:
		s.transition(status.ProcessOff)
	case EventEula:
		s.transition(status.ProcessEula)
	case EventJoined:
		if s.status.PlayerJoined(ev.Name) {
			s.log.Info("player joined", "name", ev.Name)
		}
	case EventLeft:
		if s.status.PlayerLeft(ev.Name) {
			s.log.Info("player left", "name", ev.Name)
		}
	}
}

func (s *Scanner) transition(to status.ProcessState) {
	from, err := s.status.TransitionProcess(to)
	if err != nil {
		s.log.Warn("ignoring state change", "error", err)
		return
	}
	if from != to {
		s.log.Info("process state changed", "from", from, "to", to)
	}
}
