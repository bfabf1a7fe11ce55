package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/goodtune/daybill/internal/billing"
	"github.com/shopspring/decimal"
)

// WriteText renders the itemized report. Color is applied only when
// colorize is set.
func WriteText(w io.Writer, r *Report, colorize bool) error {
	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow)
	for _, c := range []*color.Color{bold, cyan, green, yellow} {
		if colorize {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	tw := &textWriter{w: w}

	tw.line(bold.Sprint("Itemized Billing Report"))

	for _, u := range r.Users {
		tw.line("")
		tw.line(cyan.Sprintf("User: %s", u.User))
		tw.line(strings.Repeat("-", 50))

		if u.Ledger.IsEmpty() {
			tw.line(yellow.Sprint("  No billing information available"))
			continue
		}

		for _, entry := range u.Ledger.Entries() {
			tw.printf("  %s: %s\n", entry.Date.Format(billing.DateLayout), money(entry.Amount))
		}

		tw.line("  " + strings.Repeat("-", 30))
		tw.line(green.Sprintf("  %-12s %s", "TOTAL:", money(u.Total)))
	}

	tw.line("  " + strings.Repeat("-", 100))
	tw.line(bold.Sprint("Summary bills of all users"))
	for _, t := range r.Totals() {
		tw.printf("Bill for %s is %s\n", t.User, money(t.Total))
	}

	return tw.err
}

// WriteJSON renders the report as indented JSON.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(jsonReport(r)); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

type jsonUser struct {
	User   string `json:"user"`
	Ledger any    `json:"ledger"`
	Total  string `json:"total"`
}

type jsonDocument struct {
	RunID       string                    `json:"run_id"`
	GeneratedAt string                    `json:"generated_at"`
	Policy      billing.OpenSessionPolicy `json:"policy"`
	DailyRate   string                    `json:"daily_rate"`
	Users       []jsonUser                `json:"users"`
	Totals      []jsonTotal               `json:"totals"`
	GrandTotal  string                    `json:"grand_total"`
}

type jsonTotal struct {
	User  string `json:"user"`
	Total string `json:"total"`
}

func jsonReport(r *Report) jsonDocument {
	doc := jsonDocument{
		RunID:       r.RunID,
		GeneratedAt: r.GeneratedAt.Format(time.RFC3339),
		Policy:      r.Policy,
		DailyRate:   money(r.DailyRate),
		Users:       make([]jsonUser, 0, len(r.Users)),
		Totals:      []jsonTotal{},
		GrandTotal:  money(r.GrandTotal()),
	}

	for _, u := range r.Users {
		doc.Users = append(doc.Users, jsonUser{
			User:   u.User,
			Ledger: u.Ledger,
			Total:  money(u.Total),
		})
	}
	for _, t := range r.Totals() {
		doc.Totals = append(doc.Totals, jsonTotal{User: t.User, Total: money(t.Total)})
	}

	return doc
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// textWriter keeps the first write error so rendering reads linearly.
type textWriter struct {
	w   io.Writer
	err error
}

func (t *textWriter) line(s string) {
	t.printf("%s\n", s)
}

func (t *textWriter) printf(format string, args ...any) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintf(t.w, format, args...)
}
