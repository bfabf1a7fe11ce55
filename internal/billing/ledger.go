package billing

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used for ledger keys.
const DateLayout = "2006-01-02"

// DateOf returns the calendar date of t as midnight UTC. The wall clock
// fields of t are used as-is, so naive timestamps keep their day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Entry is one charged calendar date.
type Entry struct {
	Date   time.Time
	Amount decimal.Decimal
}

// MarshalJSON renders the date as yyyy-mm-dd and the amount with two decimals.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date   string `json:"date"`
		Amount string `json:"amount"`
	}{
		Date:   e.Date.Format(DateLayout),
		Amount: e.Amount.StringFixed(2),
	})
}

// Ledger maps calendar dates to the amount charged for that date.
// Each date is charged at most once.
type Ledger struct {
	entries map[string]Entry
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{entries: make(map[string]Entry)}
}

// Charge records amount for the date of day. Charging a date that is already
// present is a no-op; it returns true only when the date was newly added.
func (l *Ledger) Charge(day time.Time, amount decimal.Decimal) bool {
	date := DateOf(day)
	key := date.Format(DateLayout)
	if _, exists := l.entries[key]; exists {
		return false
	}

	l.entries[key] = Entry{Date: date, Amount: amount}
	return true
}

// Amount returns the amount charged for the date of day.
func (l *Ledger) Amount(day time.Time) (decimal.Decimal, bool) {
	entry, ok := l.entries[DateOf(day).Format(DateLayout)]
	return entry.Amount, ok
}

// Len returns the number of charged dates.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// IsEmpty reports whether nothing was charged.
func (l *Ledger) IsEmpty() bool {
	return len(l.entries) == 0
}

// Entries returns the charged dates in ascending order.
func (l *Ledger) Entries() []Entry {
	keys := make([]string, 0, len(l.entries))
	for key := range l.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]Entry, len(keys))
	for i, key := range keys {
		out[i] = l.entries[key]
	}
	return out
}

// Total sums every charged amount.
func (l *Ledger) Total() decimal.Decimal {
	total := decimal.Zero
	for _, entry := range l.entries {
		total = total.Add(entry.Amount)
	}
	return total
}

// Equal reports whether both ledgers charge the same dates with equal amounts.
func (l *Ledger) Equal(other *Ledger) bool {
	if other == nil || len(l.entries) != len(other.entries) {
		return false
	}
	for key, entry := range l.entries {
		o, ok := other.entries[key]
		if !ok || !o.Amount.Equal(entry.Amount) {
			return false
		}
	}
	return true
}

// MarshalJSON renders the ledger as an ordered list of entries.
func (l *Ledger) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Entries())
}
