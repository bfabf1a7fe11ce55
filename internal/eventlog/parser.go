package eventlog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/goodtune/daybill/internal/metrics"
	"github.com/goodtune/daybill/internal/session"
	"github.com/rs/zerolog"
)

const (
	// TimestampLayout is the canonical timestamp format of the session log.
	TimestampLayout = "2006-01-02 15:04:05"

	minEntryFields = 3
	maxLineBytes   = 1024 * 1024
)

var timestampLayouts = []string{
	TimestampLayout,
	"2006-01-02T15:04:05",
}

// Format is the encoding of log lines.
type Format string

const (
	// FormatText is "<user> <action> <timestamp>" per line.
	FormatText Format = "text"
	// FormatJSONLines is one {"user","action","timestamp"} object per line.
	FormatJSONLines Format = "jsonl"
)

// ParseFormat validates a configured format name. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSONLines:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported input format: %q (must be text or jsonl)", s)
	}
}

// Options controls how strictly the log is read.
type Options struct {
	Format Format
	// Strict aborts on the first malformed line instead of skipping it.
	Strict bool
	// RequireSorted rejects out-of-order input instead of sorting it.
	RequireSorted bool
}

// Parser reads session log lines of the form "<user> <action> <timestamp>".
type Parser struct {
	opts   Options
	logger zerolog.Logger
}

// NewParser creates a new log parser
func NewParser(opts Options, logger zerolog.Logger) *Parser {
	return &Parser{
		opts:   opts,
		logger: logger.With().Str("component", "eventlog").Logger(),
	}
}

// ParseLine parses a single line. Blank and comment-only lines return ok=false
// with no error.
func ParseLine(line string, lineNumber int) (ev session.Event, ok bool, err error) {
	text := line
	if i := strings.IndexByte(text, '#'); i >= 0 {
		text = text[:i]
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return session.Event{}, false, nil
	}

	fail := func(reason string) (session.Event, bool, error) {
		return session.Event{}, false, &EntryError{Line: lineNumber, Text: strings.TrimSpace(line), Reason: reason}
	}

	fields := strings.Fields(text)
	if len(fields) < minEntryFields {
		return fail(fmt.Sprintf("expected at least %d fields, got %d", minEntryFields, len(fields)))
	}

	action, err := session.ParseAction(fields[1])
	if err != nil {
		return fail(err.Error())
	}

	raw := strings.Join(fields[2:], " ")
	ts, err := parseTimestamp(raw)
	if err != nil {
		return fail(fmt.Sprintf("invalid timestamp %q, expected %s", raw, TimestampLayout))
	}

	return session.Event{
		User:      fields[0],
		Action:    action,
		Timestamp: ts,
		Line:      lineNumber,
	}, true, nil
}

type jsonEntry struct {
	User      string         `json:"user"`
	Action    session.Action `json:"action"`
	Timestamp string         `json:"timestamp"`
}

// ParseJSONLine parses one JSON-lines record. Blank lines and lines starting
// with '#' return ok=false with no error.
func ParseJSONLine(line string, lineNumber int) (ev session.Event, ok bool, err error) {
	text := strings.TrimSpace(line)
	if text == "" || strings.HasPrefix(text, "#") {
		return session.Event{}, false, nil
	}

	fail := func(reason string) (session.Event, bool, error) {
		return session.Event{}, false, &EntryError{Line: lineNumber, Text: text, Reason: reason}
	}

	var entry jsonEntry
	if err := json.Unmarshal([]byte(text), &entry); err != nil {
		return fail(err.Error())
	}

	entry.User = strings.TrimSpace(entry.User)
	if entry.User == "" {
		return fail("missing user")
	}
	if entry.Action == "" {
		return fail("missing action")
	}

	ts, err := parseTimestamp(strings.TrimSpace(entry.Timestamp))
	if err != nil {
		return fail(fmt.Sprintf("invalid timestamp %q, expected %s", entry.Timestamp, TimestampLayout))
	}

	return session.Event{
		User:      entry.User,
		Action:    entry.Action,
		Timestamp: ts,
		Line:      lineNumber,
	}, true, nil
}

// parseTimestamp reads a naive timestamp. Values carry no zone and are kept in UTC.
func parseTimestamp(raw string) (time.Time, error) {
	var lastErr error
	for _, layout := range timestampLayouts {
		ts, err := time.Parse(layout, raw)
		if err == nil {
			return ts, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// Parse reads every event from r and returns them in chronological order.
func (p *Parser) Parse(r io.Reader) ([]session.Event, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var (
		events     []session.Event
		lineNumber int
		skipped    int
	)

	for scanner.Scan() {
		lineNumber++

		ev, ok, err := p.parseLine(scanner.Text(), lineNumber)
		if err != nil {
			if p.opts.Strict {
				return nil, err
			}

			skipped++
			metrics.EntriesSkipped.Inc()
			p.logger.Warn().Err(err).Int("line", lineNumber).Msg("Skipping invalid log entry")
			continue
		}
		if ok {
			events = append(events, ev)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}

	if err := Order(events, p.opts.RequireSorted); err != nil {
		return nil, err
	}

	p.logger.Info().
		Int("lines", lineNumber).
		Int("events", len(events)).
		Int("skipped", skipped).
		Msg("Processed log")

	return events, nil
}

func (p *Parser) parseLine(line string, lineNumber int) (session.Event, bool, error) {
	if p.opts.Format == FormatJSONLines {
		return ParseJSONLine(line, lineNumber)
	}
	return ParseLine(line, lineNumber)
}

// ParseFile opens path and parses it.
func (p *Parser) ParseFile(path string) ([]session.Event, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("log file path cannot be empty")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	p.logger.Debug().Str("path", path).Msg("Reading log file")
	return p.Parse(f)
}

// Order puts events into chronological order, keeping input order for equal
// timestamps. With requireSorted it only validates and returns an error
// wrapping ErrUnorderedEvents on the first regression.
func Order(events []session.Event, requireSorted bool) error {
	if requireSorted {
		for i := 1; i < len(events); i++ {
			if events[i].Timestamp.Before(events[i-1].Timestamp) {
				return fmt.Errorf("%w: line %d (%s) precedes line %d (%s)",
					ErrUnorderedEvents,
					events[i].Line, events[i].Timestamp.Format(TimestampLayout),
					events[i-1].Line, events[i-1].Timestamp.Format(TimestampLayout))
			}
		}
		return nil
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	return nil
}
