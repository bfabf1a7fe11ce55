package billing

import (
	"time"

	"github.com/goodtune/daybill/internal/session"
)

// Service couples a run's reconciler with an aggregator. It is the core
// boundary used by report assembly.
type Service struct {
	reconciler *session.Reconciler
	aggregator *Aggregator
}

// NewService creates a billing service over an existing reconciler.
func NewService(reconciler *session.Reconciler, aggregator *Aggregator) *Service {
	return &Service{
		reconciler: reconciler,
		aggregator: aggregator,
	}
}

// RecordLogin forwards a login to the reconciler.
func (s *Service) RecordLogin(user string, ts time.Time) {
	s.reconciler.RecordLogin(user, ts)
}

// RecordLogout forwards a logout to the reconciler.
func (s *Service) RecordLogout(user string, ts time.Time) {
	s.reconciler.RecordLogout(user, ts)
}

// BillingSummary materializes the user's ledger from current state.
func (s *Service) BillingSummary(user string) *Ledger {
	return s.aggregator.BillingSummary(s.reconciler, user)
}

// Users returns all users known to the reconciler, sorted.
func (s *Service) Users() []string {
	return s.reconciler.Users()
}

// Aggregator returns the underlying aggregator.
func (s *Service) Aggregator() *Aggregator {
	return s.aggregator
}

// Reconciler returns the underlying reconciler.
func (s *Service) Reconciler() *session.Reconciler {
	return s.reconciler
}
