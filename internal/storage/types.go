package storage

import "time"

// LedgerEntry is one charged date of an exported ledger.
type LedgerEntry struct {
	Date   string `json:"date"`   // yyyy-mm-dd
	Amount string `json:"amount"` // decimal string, two places
}

// UserLedger is a user's billing ledger as produced by one run.
type UserLedger struct {
	RunID       string        `json:"run_id"`
	User        string        `json:"user"`
	Policy      string        `json:"policy"`
	Total       string        `json:"total"`
	GeneratedAt time.Time     `json:"generated_at"`
	Entries     []LedgerEntry `json:"entries"`
}
