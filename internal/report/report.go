// Package report assembles per-user ledgers into a billing report and
// renders it for people or machines.
package report

import (
	"time"

	"github.com/goodtune/daybill/internal/billing"
	"github.com/shopspring/decimal"
)

// UserTotal is a user's name with the sum of their ledger.
type UserTotal struct {
	User  string
	Total decimal.Decimal
}

// UserReport is one user's section of the report.
type UserReport struct {
	User   string
	Ledger *billing.Ledger
	Total  decimal.Decimal
}

// Report is the result of one billing run.
type Report struct {
	RunID       string
	GeneratedAt time.Time
	Policy      billing.OpenSessionPolicy
	DailyRate   decimal.Decimal
	Users       []UserReport
}

// Build materializes every user's ledger from svc, sorted by user name. The
// generation time comes from the aggregator's clock, the same instant that
// bounds through-now billing.
func Build(svc *billing.Service, runID string) *Report {
	agg := svc.Aggregator()

	r := &Report{
		RunID:       runID,
		GeneratedAt: agg.Clock().Now(),
		Policy:      agg.Policy(),
		DailyRate:   agg.DailyRate(),
	}

	for _, user := range svc.Users() {
		ledger := svc.BillingSummary(user)
		r.Users = append(r.Users, UserReport{
			User:   user,
			Ledger: ledger,
			Total:  ledger.Total(),
		})
	}

	return r
}

// Totals returns the totals of users with at least one charged date.
func (r *Report) Totals() []UserTotal {
	totals := make([]UserTotal, 0, len(r.Users))
	for _, u := range r.Users {
		if u.Ledger.IsEmpty() {
			continue
		}
		totals = append(totals, UserTotal{User: u.User, Total: u.Total})
	}
	return totals
}

// GrandTotal sums every user's total.
func (r *Report) GrandTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, u := range r.Users {
		sum = sum.Add(u.Total)
	}
	return sum
}
