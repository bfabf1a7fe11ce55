package eventlog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goodtune/daybill/internal/session"
	"github.com/rs/zerolog"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name       string
		line       string
		wantOK     bool
		wantErr    bool
		wantUser   string
		wantAction session.Action
		wantTime   string
	}{
		{"login", "alice login 2026-01-01 09:00:00", true, false, "alice", session.ActionLogin, "2026-01-01 09:00:00"},
		{"logout uppercase", "bob LOGOUT 2026-01-02 02:00:00", true, false, "bob", session.ActionLogout, "2026-01-02 02:00:00"},
		{"iso separator", "carol login 2026-01-01T10:00:00", true, false, "carol", session.ActionLogin, "2026-01-01 10:00:00"},
		{"trailing comment", "dave login 2026-01-01 10:00:00 # laptop", true, false, "dave", session.ActionLogin, "2026-01-01 10:00:00"},
		{"extra whitespace", "  erin \t login   2026-01-01   11:00:00  ", true, false, "erin", session.ActionLogin, "2026-01-01 11:00:00"},
		{"blank", "   ", false, false, "", "", ""},
		{"comment", "# This is a comment", false, false, "", "", ""},
		{"too few fields", "invalid line", false, true, "", "", ""},
		{"unknown action", "alice reboot 2026-01-01 09:00:00", false, true, "", "", ""},
		{"bad timestamp", "alice login 2026-13-01 09:00:00", false, true, "", "", ""},
		{"date only", "alice login 2026-01-01", false, true, "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok, err := ParseLine(tt.line, 7)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLine(%q) error = %v, wantErr %v", tt.line, err, tt.wantErr)
			}
			if ok != tt.wantOK {
				t.Fatalf("ParseLine(%q) ok = %v, want %v", tt.line, ok, tt.wantOK)
			}

			if tt.wantErr {
				if !errors.Is(err, ErrMalformedEntry) {
					t.Errorf("expected ErrMalformedEntry, got %v", err)
				}
				var entryErr *EntryError
				if !errors.As(err, &entryErr) || entryErr.Line != 7 {
					t.Errorf("expected EntryError on line 7, got %v", err)
				}
				return
			}

			if !ok {
				return
			}
			if ev.User != tt.wantUser || ev.Action != tt.wantAction {
				t.Errorf("got %s/%s, want %s/%s", ev.User, ev.Action, tt.wantUser, tt.wantAction)
			}
			if got := ev.Timestamp.Format(TimestampLayout); got != tt.wantTime {
				t.Errorf("timestamp = %s, want %s", got, tt.wantTime)
			}
			if ev.Line != 7 {
				t.Errorf("line = %d, want 7", ev.Line)
			}
		})
	}
}

const mixedLog = `# This is a comment
invalid line
alice login 2026-01-01 09:00:00
alice logout 2026-01-01 17:00:00
`

func TestParse_LenientSkipsInvalidLines(t *testing.T) {
	p := NewParser(Options{}, zerolog.Nop())

	events, err := p.Parse(strings.NewReader(mixedLog))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Line != 3 || events[1].Line != 4 {
		t.Errorf("unexpected line numbers %d, %d", events[0].Line, events[1].Line)
	}
}

func TestParse_StrictRejectsInvalidLines(t *testing.T) {
	p := NewParser(Options{Strict: true}, zerolog.Nop())

	_, err := p.Parse(strings.NewReader(mixedLog))
	if !errors.Is(err, ErrMalformedEntry) {
		t.Fatalf("expected ErrMalformedEntry, got %v", err)
	}

	var entryErr *EntryError
	if !errors.As(err, &entryErr) || entryErr.Line != 2 {
		t.Errorf("expected error on line 2, got %v", err)
	}
}

const unorderedLog = `bob logout 2026-01-02 02:00:00
alice login 2026-01-01 09:00:00
bob login 2026-01-01 22:00:00
alice logout 2026-01-01 09:00:00
`

func TestParse_SortsStably(t *testing.T) {
	p := NewParser(Options{}, zerolog.Nop())

	events, err := p.Parse(strings.NewReader(unorderedLog))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	wantLines := []int{2, 4, 3, 1}
	for i, want := range wantLines {
		if events[i].Line != want {
			t.Errorf("event %d: line = %d, want %d", i, events[i].Line, want)
		}
	}
}

func TestParse_RequireSorted(t *testing.T) {
	p := NewParser(Options{RequireSorted: true}, zerolog.Nop())

	_, err := p.Parse(strings.NewReader(unorderedLog))
	if !errors.Is(err, ErrUnorderedEvents) {
		t.Fatalf("expected ErrUnorderedEvents, got %v", err)
	}

	if _, err := p.Parse(strings.NewReader(mixedLog)); err != nil {
		t.Errorf("sorted input should pass, got %v", err)
	}
}

func TestParseFile(t *testing.T) {
	p := NewParser(Options{}, zerolog.Nop())

	path := filepath.Join(t.TempDir(), "sessions.log")
	if err := os.WriteFile(path, []byte(mixedLog), 0644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	events, err := p.ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("expected 2 events, got %d", len(events))
	}

	if _, err := p.ParseFile(filepath.Join(t.TempDir(), "missing.log")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}

	if _, err := p.ParseFile("  "); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestParseJSONLine(t *testing.T) {
	tests := []struct {
		name       string
		line       string
		wantOK     bool
		wantErr    bool
		wantUser   string
		wantAction session.Action
	}{
		{"login", `{"user":"alice","action":"login","timestamp":"2026-01-01 09:00:00"}`, true, false, "alice", session.ActionLogin},
		{"action case folded", `{"user":"bob","action":"LogOut","timestamp":"2026-01-02T02:00:00"}`, true, false, "bob", session.ActionLogout},
		{"blank", "  ", false, false, "", ""},
		{"comment", `# {"user":"x"}`, false, false, "", ""},
		{"unknown action", `{"user":"alice","action":"reboot","timestamp":"2026-01-01 09:00:00"}`, false, true, "", ""},
		{"missing user", `{"action":"login","timestamp":"2026-01-01 09:00:00"}`, false, true, "", ""},
		{"missing action", `{"user":"alice","timestamp":"2026-01-01 09:00:00"}`, false, true, "", ""},
		{"bad timestamp", `{"user":"alice","action":"login","timestamp":"yesterday"}`, false, true, "", ""},
		{"not json", `alice login 2026-01-01 09:00:00`, false, true, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok, err := ParseJSONLine(tt.line, 3)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseJSONLine(%q) error = %v, wantErr %v", tt.line, err, tt.wantErr)
			}
			if ok != tt.wantOK {
				t.Fatalf("ParseJSONLine(%q) ok = %v, want %v", tt.line, ok, tt.wantOK)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedEntry) {
					t.Errorf("expected ErrMalformedEntry, got %v", err)
				}
				return
			}
			if ok && (ev.User != tt.wantUser || ev.Action != tt.wantAction || ev.Line != 3) {
				t.Errorf("got %+v, want %s/%s on line 3", ev, tt.wantUser, tt.wantAction)
			}
		})
	}
}

func TestParse_JSONLines(t *testing.T) {
	p := NewParser(Options{Format: FormatJSONLines}, zerolog.Nop())

	input := `{"user":"alice","action":"logout","timestamp":"2026-01-01 17:00:00"}
{"user":"alice","action":"login","timestamp":"2026-01-01 09:00:00"}
{"user":"alice","action":"sleep","timestamp":"2026-01-01 10:00:00"}
`
	events, err := p.Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Action != session.ActionLogin || events[1].Action != session.ActionLogout {
		t.Errorf("expected events sorted by time, got %+v", events)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "text": FormatText, "JSONL": FormatJSONLines} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("csv"); err == nil {
		t.Error("expected error for csv")
	}
}
