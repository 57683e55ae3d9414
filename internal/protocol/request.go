// Package protocol holds the wire format of the monitor's web endpoint.
// Only the request line is interpreted; headers and bodies are ignored.
package protocol

import (
	"errors"
	"strings"
)

// Fixed routes. Send is a prefix; the command follows it.
const (
	RouteRoot     = "/"
	RoutePlayers  = "/api/players"
	RouteConsole  = "/api/console"
	RouteSend     = "/api/send?"
	RouteShutdown = "/api/shutdown"
	RouteRestart  = "/api/restart"
	RouteAccept   = "/api/accept"
)

var ErrNoPath = errors.New("request line has no path")

// ParseRequestLine extracts the path from a raw request line. The path runs
// from the first '/' up to the literal token "HTTP", trimmed of spaces. The
// method is ignored.
func ParseRequestLine(line string) (string, error) {
	start := strings.IndexByte(line, '/')
	if start < 0 {
		return "", ErrNoPath
	}
	rest := line[start:]
	if end := strings.Index(rest, "HTTP"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest), nil
}

// SendCommand returns the console command carried by a send path, with
// underscores turned into spaces. ok is false when path is not a send
// request or carries no command.
func SendCommand(path string) (cmd string, ok bool) {
	raw, found := strings.CutPrefix(path, RouteSend)
	if !found || raw == "" {
		return "", false
	}
	return strings.ReplaceAll(raw, "_", " "), true
}
