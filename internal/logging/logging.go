// Package logging builds the component loggers used across the monitor.
package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Verbosity selects which streams are echoed to the terminal.
type Verbosity string

const (
	VerbosityNone    Verbosity = "none"
	VerbosityMine    Verbosity = "mine"
	VerbosityWeb     Verbosity = "web"
	VerbosityMineWeb Verbosity = "mineweb"
)

// ParseVerbosity accepts none, mine, web or mineweb.
func ParseVerbosity(s string) (Verbosity, error) {
	switch v := Verbosity(strings.ToLower(strings.TrimSpace(s))); v {
	case VerbosityNone, VerbosityMine, VerbosityWeb, VerbosityMineWeb:
		return v, nil
	case "":
		return VerbosityNone, nil
	default:
		return "", fmt.Errorf("invalid verbosity %q (expected none|mine|web|mineweb)", s)
	}
}

// Mine reports whether server console and command lines are echoed.
func (v Verbosity) Mine() bool { return v == VerbosityMine || v == VerbosityMineWeb }

// Web reports whether inbound requests are echoed.
func (v Verbosity) Web() bool { return v == VerbosityWeb || v == VerbosityMineWeb }

// Set holds one logger per component.
type Set struct {
	Supervisor *log.Logger
	Console    *log.Logger
	Command    *log.Logger
	Request    *log.Logger
	API        *log.Logger
	Assets     *log.Logger
}

// New builds the component loggers writing to w. level applies to the
// diagnostic loggers; the echo loggers (console, command, request) log at
// info when enabled by verbosity. Disabled ones only show up when level is
// debug.
func New(w io.Writer, level string, v Verbosity) (*Set, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	base := log.NewWithOptions(w, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})

	echo := func(prefix string, enabled bool) *log.Logger {
		l := base.WithPrefix(prefix)
		switch {
		case enabled:
			l.SetLevel(log.InfoLevel)
		case lvl <= log.DebugLevel:
			l.SetLevel(log.DebugLevel)
		default:
			l.SetLevel(log.ErrorLevel)
		}
		return l
	}

	return &Set{
		Supervisor: base.WithPrefix("supervisor"),
		Console:    echo("console", v.Mine()),
		Command:    echo("command", v.Mine()),
		Request:    echo("request", v.Web()),
		API:        base.WithPrefix("api"),
		Assets:     base.WithPrefix("assets"),
	}, nil
}

// Discard returns a Set that drops everything; used by tests.
func Discard() *Set {
	l := log.New(io.Discard)
	return &Set{Supervisor: l, Console: l, Command: l, Request: l, API: l, Assets: l}
}
