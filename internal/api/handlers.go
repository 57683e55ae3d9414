package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/faradayfan/minecraft-monitor/internal/assets"
	"github.com/faradayfan/minecraft-monitor/internal/protocol"
	"github.com/faradayfan/minecraft-monitor/internal/status"
)

// Dispatch maps a request path to a response. The process phase takes
// precedence over the route table while the server is starting or waiting
// for the EULA.
func (s *Server) Dispatch(ctx context.Context, path string) protocol.Response {
	switch s.status.ProcessState() {
	case status.ProcessStarting:
		return s.asset(s.opts.StartingPath)
	case status.ProcessEula:
		if path != protocol.RouteAccept && path != protocol.RouteRestart {
			return s.asset(s.opts.EulaPath)
		}
	}

	switch path {
	case protocol.RouteRoot:
		return s.asset(s.opts.IndexPath)
	case protocol.RoutePlayers:
		return s.handlePlayers()
	case protocol.RouteConsole:
		return s.handleConsole()
	case protocol.RouteShutdown:
		return s.action(ctx, "shutdown", s.lifecycle.Shutdown)
	case protocol.RouteRestart:
		return s.action(ctx, "restart", s.lifecycle.Restart)
	case protocol.RouteAccept:
		return s.action(ctx, "accept eula", s.lifecycle.AcceptEula)
	}

	if strings.HasPrefix(path, protocol.RouteSend) {
		return s.handleSend(path)
	}
	if assets.Known(path) {
		return s.asset(path)
	}
	return protocol.NotFound()
}

func (s *Server) handlePlayers() protocol.Response {
	r := s.status.Roster()
	players := r.Players
	if players == nil {
		players = []string{}
	}
	b, err := json.Marshal(PlayersResponse{
		PlayerCount:    strconv.Itoa(r.Count),
		PlayerCountMax: strconv.FormatUint(uint64(r.Max), 10),
		Players:        players,
	})
	if err != nil {
		return protocol.InternalError(err.Error())
	}
	return protocol.OK(protocol.ContentJSON, b)
}

// handleConsole renders {"chat":{"<seq>":"<line>",...}} newest first. The
// object is written by hand so the order survives.
func (s *Server) handleConsole() protocol.Response {
	var buf bytes.Buffer
	buf.WriteString(`{"chat":{`)
	for i, l := range s.status.Console() {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(strconv.FormatUint(uint64(l.Seq), 10))
		buf.WriteString(`":`)
		buf.Write(quote(l.Line))
	}
	buf.WriteString(`}}`)
	return protocol.OK(protocol.ContentJSON, buf.Bytes())
}

// quote renders line as a JSON string with line breaks removed.
func quote(line string) []byte {
	line = strings.NewReplacer("\r", "", "\n", "").Replace(line)
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(line); err != nil {
		return []byte(`""`)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
}

func (s *Server) handleSend(path string) protocol.Response {
	cmd, ok := protocol.SendCommand(path)
	if !ok {
		return protocol.NotFound()
	}
	if err := s.queue.Enqueue(cmd); err != nil {
		s.log.Warn("command not queued", "command", cmd, "error", err)
		return protocol.InternalError(err.Error())
	}
	s.log.Debug("command queued", "command", cmd)
	return protocol.Accepted()
}

func (s *Server) action(ctx context.Context, name string, fn func(context.Context) error) protocol.Response {
	ctx, cancel := context.WithTimeout(ctx, s.opts.ActionTimeout)
	defer cancel()

	s.log.Info("lifecycle request", "action", name)
	if err := fn(ctx); err != nil {
		s.log.Error("lifecycle request failed", "action", name, "error", err)
		return protocol.InternalError(err.Error())
	}
	return protocol.Accepted()
}

func (s *Server) asset(path string) protocol.Response {
	a, err := s.assets.Lookup(path)
	if err != nil {
		if !errors.Is(err, assets.ErrNotFound) {
			s.log.Error("asset lookup failed", "path", path, "error", err)
		}
		return protocol.NotFound()
	}
	return protocol.OK(a.ContentType, a.Body)
}
