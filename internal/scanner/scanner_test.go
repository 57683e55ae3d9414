package scanner

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/faradayfan/minecraft-monitor/internal/status"
)

const prefix = "[12:00:00 INFO]: "

func newTestScanner(st *status.Status) *Scanner {
	l := log.New(io.Discard)
	return New(st, DefaultPrefixWidth, l, l)
}

func TestPrefixWidth(t *testing.T) {
	if len(prefix) != DefaultPrefixWidth {
		t.Fatalf("test prefix is %d bytes, expected %d", len(prefix), DefaultPrefixWidth)
	}
}

func TestValidUsername(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"Steve", true},
		{"alex_01", true},
		{"_", true},
		{"", false},
		{"two words", false},
		{"<Steve>", false},
		{"bad-name", false},
		{"dot.name", false},
		{"Stévé", false},
	}
	for _, tt := range tests {
		if got := ValidUsername(tt.name); got != tt.want {
			t.Errorf("ValidUsername(%q) = %v, expected %v", tt.name, got, tt.want)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Event
		wantErr error
	}{
		{"capacity", "There are 3 of a max of 20 players online: Steve", Event{Kind: EventCapacity, Max: 20}, nil},
		{"capacity mismatch kept", "There are 9 of a max of 5 players online:", Event{Kind: EventCapacity, Max: 5}, nil},
		{"started", `Done (3.512s)! For help, type "help"`, Event{Kind: EventStarted}, nil},
		{"closing", "Closing Server", Event{Kind: EventStopping}, nil},
		{"eula", "You need to agree to the EULA in order to run the server. Go to eula.txt for more info.", Event{Kind: EventEula}, nil},
		{"joined", "Steve joined the game", Event{Kind: EventJoined, Name: "Steve"}, nil},
		{"left", "Steve left the game", Event{Kind: EventLeft, Name: "Steve"}, nil},
		{"chat", "<Steve> hello there", Event{}, ErrInvalidUsername},
		{"unrelated", "Preparing spawn area: 42%", Event{}, nil},
		{"no space", "Stopping", Event{}, ErrNoSeparator},
		{"empty", "", Event{}, ErrNoSeparator},
		{"capacity overflow", "There are 1 of a max of 99999999999 players", Event{}, ErrBadCapacity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.content)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestStripPrefixShortLine(t *testing.T) {
	if _, err := StripPrefix("short", DefaultPrefixWidth); !errors.Is(err, ErrShortLine) {
		t.Errorf("expected ErrShortLine, got %v", err)
	}
	got, err := StripPrefix(prefix+"Closing Server", DefaultPrefixWidth)
	if err != nil || got != "Closing Server" {
		t.Errorf("got %q, %v", got, err)
	}
}

func TestRunAppliesEvents(t *testing.T) {
	st := status.New()
	sc := newTestScanner(st)

	out := strings.Join([]string{
		prefix + "Starting minecraft server version 1.16.4",
		prefix + `Done (4.2s)! For help, type "help"`,
		prefix + "There are 0 of a max of 20 players online:",
		prefix + "Steve joined the game",
		prefix + "Steve joined the game",
		prefix + "Alex joined the game",
		"",
		"oops",
		prefix + "Alex left the game",
		prefix + "Closing Server",
	}, "\n") + "\n"

	n, err := sc.Run(strings.NewReader(out))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 10 {
		t.Errorf("expected 10 lines read, got %d", n)
	}

	roster := st.Roster()
	if roster.Count != 1 || len(roster.Players) != 1 || roster.Players[0] != "Steve" {
		t.Errorf("unexpected roster %+v", roster)
	}
	if roster.Max != 20 {
		t.Errorf("expected max 20, got %d", roster.Max)
	}
	if got := st.ProcessState(); got != status.ProcessOff {
		t.Errorf("expected process off, got %s", got)
	}
	// the empty line is not stored
	if got := len(st.Console()); got != 9 {
		t.Errorf("expected 9 console lines, got %d", got)
	}
}

func TestRunJoinIsIdempotent(t *testing.T) {
	st := status.New()
	sc := newTestScanner(st)

	sc.HandleLine(prefix + "Steve joined the game\n")
	if got := st.Roster().Count; got != 1 {
		t.Fatalf("expected count 1, got %d", got)
	}
	sc.HandleLine(prefix + "Steve joined the game\n")
	roster := st.Roster()
	if roster.Count != 1 || len(roster.Players) != 1 {
		t.Errorf("second join changed roster: %+v", roster)
	}
}

func TestRunTrailingLineWithoutNewline(t *testing.T) {
	st := status.New()
	sc := newTestScanner(st)

	if _, err := sc.Run(strings.NewReader(prefix + `Done (1s)! For help, type "help"`)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := st.ProcessState(); got != status.ProcessRunning {
		t.Errorf("expected running, got %s", got)
	}
}

type failingReader struct{ err error }

func (f failingReader) Read([]byte) (int, error) { return 0, f.err }

func TestRunReturnsReadError(t *testing.T) {
	boom := errors.New("pipe broken")
	sc := newTestScanner(status.New())

	if _, err := sc.Run(failingReader{err: boom}); !errors.Is(err, boom) {
		t.Errorf("expected read error, got %v", err)
	}
}

func TestRunIgnoresIllegalTransition(t *testing.T) {
	st := status.New()
	sc := newTestScanner(st)

	sc.HandleLine(prefix + "Closing Server")
	// off -> running is not in the table
	sc.HandleLine(prefix + `Done (1s)! For help, type "help"`)
	if got := st.ProcessState(); got != status.ProcessOff {
		t.Errorf("expected off, got %s", got)
	}
}
