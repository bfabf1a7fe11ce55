package session

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Action is the kind of an event in the session log.
type Action string

const (
	ActionLogin  Action = "login"
	ActionLogout Action = "logout"
)

// ParseAction normalizes a raw action token. Matching is case-insensitive.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionLogin, ActionLogout:
		return a, nil
	default:
		return "", fmt.Errorf("unknown action: %q (must be login or logout)", s)
	}
}

// UnmarshalJSON implements json.Unmarshaler to normalize the action to lowercase.
func (a *Action) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	parsed, err := ParseAction(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Event is a single parsed login or logout record.
type Event struct {
	User      string    `json:"user"`
	Action    Action    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	Line      int       `json:"line,omitempty"` // source line, 0 when not read from a file
}

// State is the lifecycle state of a session.
type State string

const (
	StateOpen               State = "open"
	StateClosedByLogout     State = "closed_by_logout"
	StateClosedByAutoLogout State = "closed_by_auto_logout"
)

// CloseReason records why a session left the open state.
type CloseReason string

const (
	CloseLogout     CloseReason = "logout"
	CloseNewerLogin CloseReason = "newer_login"
	CloseStale      CloseReason = "stale"
)

// Session is one continuous presence interval for a user.
type Session struct {
	User        string      `json:"user"`
	LoginTime   time.Time   `json:"login_time"`
	LogoutTime  time.Time   `json:"logout_time,omitzero"` // zero while open
	State       State       `json:"state"`
	CloseReason CloseReason `json:"close_reason,omitempty"`
}

func newSession(user string, loginTime time.Time) *Session {
	return &Session{
		User:      user,
		LoginTime: loginTime,
		State:     StateOpen,
	}
}

// IsOpen reports whether no logout has been applied yet.
func (s *Session) IsOpen() bool {
	return s.State == StateOpen
}

// Logout closes an open session on an explicit logout event.
// It returns false if the session was already closed.
func (s *Session) Logout(at time.Time) bool {
	return s.close(at, StateClosedByLogout, CloseLogout)
}

// AutoLogout closes an open session on behalf of the system.
// It returns false if the session was already closed.
func (s *Session) AutoLogout(at time.Time, reason CloseReason) bool {
	return s.close(at, StateClosedByAutoLogout, reason)
}

func (s *Session) close(at time.Time, state State, reason CloseReason) bool {
	if !s.IsOpen() {
		return false
	}

	// logout_time >= login_time
	if at.Before(s.LoginTime) {
		at = s.LoginTime
	}

	s.LogoutTime = at
	s.State = state
	s.CloseReason = reason
	return true
}

// Duration returns the elapsed session time. Open sessions are measured up to now.
func (s *Session) Duration(now time.Time) time.Duration {
	end := s.LogoutTime
	if s.IsOpen() {
		end = now
	}
	if end.Before(s.LoginTime) {
		return 0
	}
	return end.Sub(s.LoginTime)
}
