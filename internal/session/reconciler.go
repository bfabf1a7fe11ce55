package session

import (
	"sort"
	"sync"
	"time"

	"github.com/goodtune/daybill/internal/metrics"
	"github.com/rs/zerolog"
)

const (
	// DefaultMaxSessionDuration is how long a session may stay open before a
	// newer login closes it at login_time + DefaultMaxSessionDuration.
	DefaultMaxSessionDuration = 24 * time.Hour
)

// Config holds reconciler configuration
type Config struct {
	MaxSessionDuration time.Duration
}

// Reconciler turns a chronologically ordered login/logout stream into
// per-user session lists.
type Reconciler struct {
	users              map[string]*userSessions
	maxSessionDuration time.Duration
	logger             zerolog.Logger
	mu                 sync.RWMutex // guards users only, never held while a list is mutated
}

// userSessions is one user's ordered session list with its own lock.
type userSessions struct {
	mu       sync.Mutex
	sessions []*Session
}

// NewReconciler creates an empty reconciler for a single run
func NewReconciler(config Config, logger zerolog.Logger) *Reconciler {
	if config.MaxSessionDuration <= 0 {
		config.MaxSessionDuration = DefaultMaxSessionDuration
	}

	return &Reconciler{
		users:              make(map[string]*userSessions),
		maxSessionDuration: config.MaxSessionDuration,
		logger:             logger.With().Str("component", "reconciler").Logger(),
	}
}

// MaxSessionDuration returns the staleness threshold in use.
func (r *Reconciler) MaxSessionDuration() time.Duration {
	return r.maxSessionDuration
}

// lookup returns the session list for user, creating it when create is set.
func (r *Reconciler) lookup(user string, create bool) *userSessions {
	r.mu.RLock()
	us := r.users[user]
	r.mu.RUnlock()

	if us != nil || !create {
		return us
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if us = r.users[user]; us == nil {
		us = &userSessions{}
		r.users[user] = us
	}
	return us
}

// RecordLogin opens a new session for user at ts.
//
// Open sessions older than the staleness threshold are closed at
// login_time + threshold first. Then the first session still open, in
// insertion order, is closed at ts. A login while a session is open is
// normal input, not a fault.
func (r *Reconciler) RecordLogin(user string, ts time.Time) {
	us := r.lookup(user, true)

	us.mu.Lock()
	defer us.mu.Unlock()

	for _, s := range us.sessions {
		if !s.IsOpen() {
			continue
		}

		deadline := s.LoginTime.Add(r.maxSessionDuration)
		if deadline.Before(ts) && s.AutoLogout(deadline, CloseStale) {
			r.recordClosed(s)
		}
	}

	if s := us.firstOpen(); s != nil && s.AutoLogout(ts, CloseNewerLogin) {
		r.recordClosed(s)
	}

	us.sessions = append(us.sessions, newSession(user, ts))
	metrics.EventsProcessed.WithLabelValues(string(ActionLogin)).Inc()

	r.logger.Debug().
		Str("user", user).
		Time("login_time", ts).
		Int("sessions", len(us.sessions)).
		Msg("Opened session")
}

// RecordLogout closes the user's first open session at ts. A logout with
// no open session changes no session, but the user is still registered so
// reports list them with an empty ledger.
func (r *Reconciler) RecordLogout(user string, ts time.Time) {
	metrics.EventsProcessed.WithLabelValues(string(ActionLogout)).Inc()

	us := r.lookup(user, true)

	us.mu.Lock()
	defer us.mu.Unlock()

	s := us.firstOpen()
	if s == nil {
		r.recordUnmatched(user, ts)
		return
	}

	if s.Logout(ts) {
		r.recordClosed(s)
	}
}

// Apply dispatches an event to RecordLogin or RecordLogout.
// Events with an unknown action are ignored.
func (r *Reconciler) Apply(ev Event) {
	switch ev.Action {
	case ActionLogin:
		r.RecordLogin(ev.User, ev.Timestamp)
	case ActionLogout:
		r.RecordLogout(ev.User, ev.Timestamp)
	default:
		r.logger.Warn().
			Str("user", ev.User).
			Str("action", string(ev.Action)).
			Int("line", ev.Line).
			Msg("Ignoring event with unknown action")
	}
}

// Sessions returns a copy of the user's sessions in insertion order.
// Unknown users yield an empty slice.
func (r *Reconciler) Sessions(user string) []Session {
	us := r.lookup(user, false)
	if us == nil {
		return []Session{}
	}

	us.mu.Lock()
	defer us.mu.Unlock()

	out := make([]Session, len(us.sessions))
	for i, s := range us.sessions {
		out[i] = *s
	}
	return out
}

// Users returns every user seen so far, sorted.
func (r *Reconciler) Users() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]string, 0, len(r.users))
	for user := range r.users {
		users = append(users, user)
	}
	sort.Strings(users)
	return users
}

func (r *Reconciler) recordClosed(s *Session) {
	metrics.SessionsClosed.WithLabelValues(string(s.CloseReason)).Inc()

	event := r.logger.Debug().
		Str("user", s.User).
		Str("state", string(s.State)).
		Str("reason", string(s.CloseReason)).
		Time("login_time", s.LoginTime).
		Time("logout_time", s.LogoutTime).
		Dur("duration", s.Duration(s.LogoutTime))
	if s.CloseReason == CloseStale {
		event = event.Dur("max_session_duration", r.MaxSessionDuration())
	}
	event.Msg("Closed session")
}

func (r *Reconciler) recordUnmatched(user string, ts time.Time) {
	metrics.UnmatchedLogouts.Inc()

	r.logger.Debug().
		Str("user", user).
		Time("logout_time", ts).
		Msg("Logout without open session, ignoring")
}

// firstOpen returns the earliest-inserted open session (must be called with lock held)
func (us *userSessions) firstOpen() *Session {
	for _, s := range us.sessions {
		if s.IsOpen() {
			return s
		}
	}
	return nil
}
