package eventlog

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedEntry is returned for a log line that cannot be parsed.
	ErrMalformedEntry = errors.New("eventlog: malformed entry")

	// ErrUnorderedEvents is returned when sorted input was required but an
	// event is older than its predecessor.
	ErrUnorderedEvents = errors.New("eventlog: events out of chronological order")
)

// EntryError describes a rejected log line.
type EntryError struct {
	Line   int
	Text   string
	Reason string
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Reason, e.Text)
}

// Unwrap makes errors.Is(err, ErrMalformedEntry) hold.
func (e *EntryError) Unwrap() error {
	return ErrMalformedEntry
}
