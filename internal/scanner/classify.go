package scanner

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefaultPrefixWidth matches the "[HH:MM:SS INFO]: " prefix of Paper/Spigot logs.
const DefaultPrefixWidth = 17

// EventKind is the state change a console line maps to.
type EventKind int

const (
	EventNone EventKind = iota
	EventCapacity
	EventStarted
	EventStopping
	EventEula
	EventJoined
	EventLeft
)

func (k EventKind) String() string {
	switch k {
	case EventNone:
		return "none"
	case EventCapacity:
		return "capacity"
	case EventStarted:
		return "started"
	case EventStopping:
		return "stopping"
	case EventEula:
		return "eula"
	case EventJoined:
		return "joined"
	case EventLeft:
		return "left"
	default:
		return "unknown"
	}
}

// Event is the result of classifying one line.
type Event struct {
	Kind EventKind
	Name string // joined / left
	Max  uint32 // capacity
}

var (
	ErrShortLine       = errors.New("line shorter than log prefix")
	ErrNoSeparator     = errors.New("no space separator")
	ErrInvalidUsername = errors.New("invalid username")
	ErrBadCapacity     = errors.New("unparsable capacity")
)

var (
	capacityRe = regexp.MustCompile(`^There are (\d+) of a max of (\d+) players`)
	doneRe     = regexp.MustCompile(`^Done \(.*\)! For help, type "help"`)
)

const (
	closingLine = "Closing Server"
	eulaPrefix  = "You need to agree to the EULA in order to run the server"
	joinedText  = "joined the game"
	leftText    = "left the game"
)

// StripPrefix removes the fixed-width timestamp and level prefix.
func StripPrefix(line string, width int) (string, error) {
	if width <= 0 {
		return line, nil
	}
	if len(line) < width {
		return "", fmt.Errorf("%w: %d < %d bytes", ErrShortLine, len(line), width)
	}
	return line[width:], nil
}

// Classify maps prefix-stripped content to an Event. It never panics; a
// non-nil error is a per-line diagnostic and comes with EventNone.
func Classify(content string) (Event, error) {
	if m := capacityRe.FindStringSubmatch(content); m != nil {
		// m[1], the current count, is deliberately not compared with the roster.
		n, err := strconv.ParseUint(m[2], 10, 32)
		if err != nil {
			return Event{}, fmt.Errorf("%w: %q: %v", ErrBadCapacity, m[2], err)
		}
		return Event{Kind: EventCapacity, Max: uint32(n)}, nil
	}
	if doneRe.MatchString(content) {
		return Event{Kind: EventStarted}, nil
	}
	if content == closingLine {
		return Event{Kind: EventStopping}, nil
	}
	if strings.HasPrefix(content, eulaPrefix) {
		return Event{Kind: EventEula}, nil
	}

	name, rest, ok := strings.Cut(content, " ")
	if !ok {
		return Event{}, ErrNoSeparator
	}
	if !ValidUsername(name) {
		return Event{}, fmt.Errorf("%w: %q", ErrInvalidUsername, name)
	}

	switch rest {
	case joinedText:
		return Event{Kind: EventJoined, Name: name}, nil
	case leftText:
		return Event{Kind: EventLeft, Name: name}, nil
	default:
		return Event{}, nil
	}
}

// ValidUsername accepts non-empty names made of ASCII letters, digits and underscores.
func ValidUsername(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
		default:
			return false
		}
	}
	return true
}
