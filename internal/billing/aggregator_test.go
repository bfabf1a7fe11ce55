package billing

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/goodtune/daybill/internal/session"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func at(value string) time.Time {
	ts, err := time.Parse("2006-01-02 15:04:05", value)
	if err != nil {
		panic(err)
	}
	return ts
}

func day(value string) time.Time {
	d, err := time.Parse(DateLayout, value)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestService(policy OpenSessionPolicy, now time.Time) *Service {
	reconciler := session.NewReconciler(session.Config{}, zerolog.Nop())
	aggregator := NewAggregator(Config{
		OpenSessionPolicy: policy,
		Clock:             FixedClock{At: now},
	}, zerolog.Nop())
	return NewService(reconciler, aggregator)
}

// assertLedger checks the ledger charges exactly the given dates at 240.00.
func assertLedger(t *testing.T, ledger *Ledger, dates ...string) {
	t.Helper()

	entries := ledger.Entries()
	if len(entries) != len(dates) {
		t.Fatalf("expected %d charged dates %v, got %d: %v", len(dates), dates, len(entries), entries)
	}
	for i, want := range dates {
		if got := entries[i].Date.Format(DateLayout); got != want {
			t.Errorf("entry %d: date = %s, want %s", i, got, want)
		}
		if !entries[i].Amount.Equal(DefaultDailyRate) {
			t.Errorf("entry %d: amount = %s, want %s", i, entries[i].Amount, DefaultDailyRate)
		}
	}
}

func TestBillingSummary_SingleDaySession(t *testing.T) {
	svc := newTestService(ChargeThroughLoginDay, at("2026-06-01 00:00:00"))
	svc.RecordLogin("alice", at("2026-01-01 09:00:00"))
	svc.RecordLogout("alice", at("2026-01-01 17:00:00"))

	ledger := svc.BillingSummary("alice")
	assertLedger(t, ledger, "2026-01-01")

	if total := ledger.Total().StringFixed(2); total != "240.00" {
		t.Errorf("total = %s, want 240.00", total)
	}
}

func TestBillingSummary_OvernightSession(t *testing.T) {
	svc := newTestService(ChargeThroughLoginDay, at("2026-06-01 00:00:00"))
	svc.RecordLogin("bob", at("2026-01-01 22:00:00"))
	svc.RecordLogout("bob", at("2026-01-02 02:00:00"))

	ledger := svc.BillingSummary("bob")
	assertLedger(t, ledger, "2026-01-01", "2026-01-02")

	if total := ledger.Total().StringFixed(2); total != "480.00" {
		t.Errorf("total = %s, want 480.00", total)
	}
}

func TestBillingSummary_MultiDaySession(t *testing.T) {
	svc := newTestService(ChargeThroughLoginDay, at("2026-06-01 00:00:00"))
	svc.RecordLogin("carol", at("2026-01-30 23:00:00"))
	svc.RecordLogout("carol", at("2026-02-02 01:00:00"))

	assertLedger(t, svc.BillingSummary("carol"), "2026-01-30", "2026-01-31", "2026-02-01", "2026-02-02")
}

func TestBillingSummary_DurationIndependent(t *testing.T) {
	tests := []struct {
		name   string
		logout string
	}{
		{"one second", "2026-01-01 00:00:01"},
		{"two hours", "2026-01-01 02:00:00"},
		{"whole day", "2026-01-01 23:59:59"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(ChargeThroughLoginDay, at("2026-06-01 00:00:00"))
			svc.RecordLogin("alice", at("2026-01-01 00:00:00"))
			svc.RecordLogout("alice", at(tt.logout))

			assertLedger(t, svc.BillingSummary("alice"), "2026-01-01")
		})
	}
}

func TestBillingSummary_SameDaySessionsChargedOnce(t *testing.T) {
	svc := newTestService(ChargeThroughLoginDay, at("2026-06-01 00:00:00"))
	svc.RecordLogin("alice", at("2026-01-01 09:00:00"))
	svc.RecordLogout("alice", at("2026-01-01 11:00:00"))
	svc.RecordLogin("alice", at("2026-01-01 14:00:00"))
	svc.RecordLogout("alice", at("2026-01-01 17:00:00"))

	assertLedger(t, svc.BillingSummary("alice"), "2026-01-01")
}

func TestBillingSummary_OverlappingSpansCollapse(t *testing.T) {
	svc := newTestService(ChargeThroughLoginDay, at("2026-06-01 00:00:00"))
	svc.RecordLogin("alice", at("2026-01-01 23:00:00"))
	svc.RecordLogout("alice", at("2026-01-02 01:00:00"))
	svc.RecordLogin("alice", at("2026-01-02 12:00:00"))
	svc.RecordLogout("alice", at("2026-01-02 14:00:00"))

	assertLedger(t, svc.BillingSummary("alice"), "2026-01-01", "2026-01-02")
}

func TestBillingSummary_LoginsWithoutLogout(t *testing.T) {
	svc := newTestService(ChargeThroughLoginDay, at("2026-06-01 00:00:00"))
	svc.RecordLogin("alice", at("2026-01-01 09:00:00"))
	svc.RecordLogin("alice", at("2026-01-01 14:00:00"))

	assertLedger(t, svc.BillingSummary("alice"), "2026-01-01")
}

func TestBillingSummary_StaleSessionAutoLogout(t *testing.T) {
	svc := newTestService(ChargeThroughLoginDay, at("2026-06-01 00:00:00"))
	svc.RecordLogin("alice", at("2026-01-01 10:00:00"))
	svc.RecordLogin("alice", at("2026-01-02 11:00:00"))

	assertLedger(t, svc.BillingSummary("alice"), "2026-01-01", "2026-01-02")

	first := svc.Reconciler().Sessions("alice")[0]
	if first.CloseReason != session.CloseStale {
		t.Errorf("expected stale auto-logout, got %s", first.CloseReason)
	}
}

func TestBillingSummary_MissingLogoutThroughLoginDay(t *testing.T) {
	svc := newTestService(ChargeThroughLoginDay, at("2026-01-05 12:00:00"))
	svc.RecordLogin("dave", at("2026-01-01 10:00:00"))

	assertLedger(t, svc.BillingSummary("dave"), "2026-01-01")
}

func TestBillingSummary_MissingLogoutThroughNow(t *testing.T) {
	svc := newTestService(ChargeThroughNow, at("2026-01-03 08:00:00"))
	svc.RecordLogin("dave", at("2026-01-01 10:00:00"))

	assertLedger(t, svc.BillingSummary("dave"), "2026-01-01", "2026-01-02", "2026-01-03")
}

func TestBillingSummary_ThroughNowWithFutureLogin(t *testing.T) {
	svc := newTestService(ChargeThroughNow, at("2025-12-30 08:00:00"))
	svc.RecordLogin("dave", at("2026-01-01 10:00:00"))

	assertLedger(t, svc.BillingSummary("dave"), "2026-01-01")
}

func TestBillingSummary_ThroughNowIgnoresClosedSessions(t *testing.T) {
	svc := newTestService(ChargeThroughNow, at("2026-01-10 08:00:00"))
	svc.RecordLogin("alice", at("2026-01-01 09:00:00"))
	svc.RecordLogout("alice", at("2026-01-01 17:00:00"))

	assertLedger(t, svc.BillingSummary("alice"), "2026-01-01")
}

func TestBillingSummary_UnknownUser(t *testing.T) {
	svc := newTestService(ChargeThroughLoginDay, at("2026-06-01 00:00:00"))

	ledger := svc.BillingSummary("nobody")
	if !ledger.IsEmpty() {
		t.Errorf("expected empty ledger, got %v", ledger.Entries())
	}
	if !ledger.Total().IsZero() {
		t.Errorf("expected zero total, got %s", ledger.Total())
	}
}

func TestBillingSummary_Idempotent(t *testing.T) {
	svc := newTestService(ChargeThroughNow, at("2026-01-04 00:00:00"))
	svc.RecordLogin("alice", at("2026-01-01 09:00:00"))
	svc.RecordLogout("alice", at("2026-01-02 17:00:00"))
	svc.RecordLogin("alice", at("2026-01-03 09:00:00"))

	first := svc.BillingSummary("alice")
	second := svc.BillingSummary("alice")
	if !first.Equal(second) {
		t.Errorf("expected identical ledgers, got %v and %v", first.Entries(), second.Entries())
	}
}

func TestBillingSummary_UsersIndependent(t *testing.T) {
	svc := newTestService(ChargeThroughLoginDay, at("2026-06-01 00:00:00"))
	svc.RecordLogin("alice", at("2026-01-01 09:00:00"))
	svc.RecordLogin("bob", at("2026-01-01 10:00:00"))
	svc.RecordLogout("bob", at("2026-01-01 12:00:00"))
	svc.RecordLogin("carol", at("2026-01-01 23:00:00"))

	for _, user := range []string{"alice", "bob", "carol"} {
		assertLedger(t, svc.BillingSummary(user), "2026-01-01")
	}
}

func TestAggregator_CustomRate(t *testing.T) {
	agg := NewAggregator(Config{DailyRate: decimal.RequireFromString("99.95")}, zerolog.Nop())

	ledger := agg.Ledger([]session.Session{{
		User:       "alice",
		LoginTime:  at("2026-01-01 22:00:00"),
		LogoutTime: at("2026-01-02 01:00:00"),
		State:      session.StateClosedByLogout,
	}})

	if got := ledger.Total().StringFixed(2); got != "199.90" {
		t.Errorf("total = %s, want 199.90", got)
	}
}

func TestAggregator_MaxSpanDays(t *testing.T) {
	agg := NewAggregator(Config{MaxSpanDays: 3}, zerolog.Nop())

	ledger := agg.Ledger([]session.Session{{
		User:       "alice",
		LoginTime:  at("2026-01-01 09:00:00"),
		LogoutTime: at("2026-03-01 09:00:00"),
		State:      session.StateClosedByLogout,
	}})

	assertLedger(t, ledger, "2026-01-01", "2026-01-02", "2026-01-03")
}

func TestLedger_ChargeIsIdempotent(t *testing.T) {
	ledger := NewLedger()
	if !ledger.Charge(at("2026-01-01 09:00:00"), DefaultDailyRate) {
		t.Fatal("first charge should add the date")
	}
	if ledger.Charge(at("2026-01-01 18:00:00"), decimal.NewFromInt(1)) {
		t.Fatal("second charge for the same date should be a no-op")
	}

	amount, ok := ledger.Amount(day("2026-01-01"))
	if !ok || !amount.Equal(DefaultDailyRate) {
		t.Errorf("amount = %s (ok=%v), want %s", amount, ok, DefaultDailyRate)
	}
}

func TestLedger_MarshalJSON(t *testing.T) {
	ledger := NewLedger()
	ledger.Charge(day("2026-01-02"), DefaultDailyRate)
	ledger.Charge(day("2026-01-01"), DefaultDailyRate)

	data, err := json.Marshal(ledger)
	if err != nil {
		t.Fatalf("marshal ledger: %v", err)
	}

	want := `[{"date":"2026-01-01","amount":"240.00"},{"date":"2026-01-02","amount":"240.00"}]`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}
}

func TestParseOpenSessionPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    OpenSessionPolicy
		wantErr bool
	}{
		{"through-login-day", ChargeThroughLoginDay, false},
		{"", ChargeThroughLoginDay, false},
		{"Through-Now", ChargeThroughNow, false},
		{"now", ChargeThroughNow, false},
		{"forever", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOpenSessionPolicy(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseOpenSessionPolicy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseOpenSessionPolicy(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
