package billing

import (
	"time"

	"github.com/goodtune/daybill/internal/metrics"
	"github.com/goodtune/daybill/internal/session"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultDailyRate is the flat charge per billed calendar date.
var DefaultDailyRate = decimal.NewFromInt(240)

// Config holds aggregator configuration
type Config struct {
	DailyRate         decimal.Decimal
	OpenSessionPolicy OpenSessionPolicy
	// MaxSpanDays caps the days a single session may bill. Zero disables the cap.
	MaxSpanDays int
	Clock       Clock
}

// SessionSource supplies a user's full session list.
type SessionSource interface {
	Sessions(user string) []session.Session
}

// Aggregator converts session lists into flat-rate daily ledgers.
type Aggregator struct {
	dailyRate   decimal.Decimal
	policy      OpenSessionPolicy
	maxSpanDays int
	clock       Clock
	logger      zerolog.Logger
}

// NewAggregator creates a new billing aggregator
func NewAggregator(config Config, logger zerolog.Logger) *Aggregator {
	if config.DailyRate.IsZero() {
		config.DailyRate = DefaultDailyRate
	}
	if config.Clock == nil {
		config.Clock = WallClock{}
	}
	if config.MaxSpanDays < 0 {
		config.MaxSpanDays = 0
	}

	return &Aggregator{
		dailyRate:   config.DailyRate,
		policy:      config.OpenSessionPolicy,
		maxSpanDays: config.MaxSpanDays,
		clock:       config.Clock,
		logger:      logger.With().Str("component", "billing").Logger(),
	}
}

// DailyRate returns the flat rate charged per date.
func (a *Aggregator) DailyRate() decimal.Decimal {
	return a.dailyRate
}

// Policy returns the open-session policy in use.
func (a *Aggregator) Policy() OpenSessionPolicy {
	return a.policy
}

// Clock returns the clock that defines "today" for open sessions.
func (a *Aggregator) Clock() Clock {
	return a.clock
}

// BillingSummary builds the ledger for one user from src.
// Unknown users get an empty ledger.
func (a *Aggregator) BillingSummary(src SessionSource, user string) *Ledger {
	return a.Ledger(src.Sessions(user))
}

// Ledger charges every date from each session's login date through its end
// date, inclusive. Dates shared by several sessions are charged once.
func (a *Aggregator) Ledger(sessions []session.Session) *Ledger {
	ledger := NewLedger()
	today := Today(a.clock)

	for _, s := range sessions {
		start := DateOf(s.LoginTime)
		end := a.endDate(s, start, today)

		if a.maxSpanDays > 0 && spanDays(start, end) > a.maxSpanDays {
			capped := start.AddDate(0, 0, a.maxSpanDays-1)

			metrics.SpanTruncations.Inc()
			a.logger.Warn().
				Str("user", s.User).
				Str("login_date", start.Format(DateLayout)).
				Str("end_date", end.Format(DateLayout)).
				Str("capped_at", capped.Format(DateLayout)).
				Int("max_span_days", a.maxSpanDays).
				Msg("Session span exceeds limit, truncating")

			end = capped
		}

		for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
			ledger.Charge(day, a.dailyRate)
		}
	}

	metrics.LedgersBuilt.Inc()
	metrics.DaysBilled.Add(float64(ledger.Len()))

	return ledger
}

// endDate returns the last billable date of s.
func (a *Aggregator) endDate(s session.Session, start, today time.Time) time.Time {
	if !s.IsOpen() {
		return DateOf(s.LogoutTime)
	}

	switch a.policy {
	case ChargeThroughNow:
		if today.Before(start) {
			return start
		}
		return today
	default:
		return start
	}
}

// spanDays counts the calendar dates in [start, end].
func spanDays(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}
