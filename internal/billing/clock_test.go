package billing

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestToday_UsesWallClockDate(t *testing.T) {
	// 23:30 at UTC-5 is already the next day in UTC.
	loc := time.FixedZone("EST", -5*60*60)
	clock := FixedClock{At: time.Date(2026, 1, 5, 23, 30, 0, 0, loc)}

	if got := Today(clock).Format(DateLayout); got != "2026-01-05" {
		t.Errorf("Today() = %s, want 2026-01-05", got)
	}
}

func TestThroughNow_LateEveningStaysOnLocalDate(t *testing.T) {
	loc := time.FixedZone("EST", -5*60*60)

	svc := newTestService(ChargeThroughNow, time.Date(2026, 1, 5, 23, 30, 0, 0, loc))
	svc.RecordLogin("dave", at("2026-01-04 10:00:00"))

	assertLedger(t, svc.BillingSummary("dave"), "2026-01-04", "2026-01-05")
}

func TestWallClock_Location(t *testing.T) {
	loc := time.FixedZone("AEST", 10*60*60)

	if got := (WallClock{Location: loc}).Now().Location(); got != loc {
		t.Errorf("WallClock.Now() location = %v, want %v", got, loc)
	}
	if got := (WallClock{}).Now().Location(); got != time.Local {
		t.Errorf("zero WallClock location = %v, want Local", got)
	}
}

func TestAggregator_DefaultClock(t *testing.T) {
	agg := NewAggregator(Config{}, zerolog.Nop())
	if _, ok := agg.Clock().(WallClock); !ok {
		t.Errorf("expected WallClock by default, got %T", agg.Clock())
	}
}
