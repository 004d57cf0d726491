package attendance

import (
	"errors"
	"testing"
	"time"
)

func testTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation(timeLayout, value, time.Local)
	if err != nil {
		t.Fatal(err)
	}
	return ts
}

func TestCheckInCheckOutFlow(t *testing.T) {
	ledger := NewLedger(t.TempDir())

	in := testTime(t, "2026-08-30 09:00:00")
	event, err := ledger.CheckIn("alice", in, "attendance")
	if err != nil {
		t.Fatalf("check-in failed: %v", err)
	}
	if event.Date != "2026-08-30" {
		t.Errorf("date = %q", event.Date)
	}
	if event.CheckedOut() {
		t.Error("fresh check-in should not be checked out")
	}

	out := testTime(t, "2026-08-30 17:30:00")
	event, err = ledger.CheckOut("alice", out)
	if err != nil {
		t.Fatalf("check-out failed: %v", err)
	}
	if event.WorkedHours != 8.5 {
		t.Errorf("worked hours = %v; want 8.5", event.WorkedHours)
	}
}

func TestCheckInIdempotentRejection(t *testing.T) {
	ledger := NewLedger(t.TempDir())
	in := testTime(t, "2026-08-30 09:00:00")

	if _, err := ledger.CheckIn("alice", in, "attendance"); err != nil {
		t.Fatalf("first check-in failed: %v", err)
	}

	_, err := ledger.CheckIn("alice", in.Add(time.Minute), "attendance")
	if !errors.Is(err, ErrAlreadyCheckedIn) {
		t.Errorf("expected ErrAlreadyCheckedIn, got %v", err)
	}

	// Exactly one row for the (identity, date).
	history, err := ledger.History("alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 {
		t.Errorf("history has %d rows; want 1", len(history))
	}
}

func TestCheckOutWithoutCheckIn(t *testing.T) {
	ledger := NewLedger(t.TempDir())

	_, err := ledger.CheckOut("alice", testTime(t, "2026-08-30 17:00:00"))
	if !errors.Is(err, ErrNoOpenCheckIn) {
		t.Errorf("expected ErrNoOpenCheckIn, got %v", err)
	}
}

func TestCheckOutTerminal(t *testing.T) {
	ledger := NewLedger(t.TempDir())

	if _, err := ledger.CheckIn("alice", testTime(t, "2026-08-30 09:00:00"), "attendance"); err != nil {
		t.Fatal(err)
	}
	if _, err := ledger.CheckOut("alice", testTime(t, "2026-08-30 17:00:00")); err != nil {
		t.Fatal(err)
	}

	// Checked-out is terminal for the date, for both transitions.
	_, err := ledger.CheckOut("alice", testTime(t, "2026-08-30 18:00:00"))
	if !errors.Is(err, ErrAlreadyCheckedOut) {
		t.Errorf("second check-out: expected ErrAlreadyCheckedOut, got %v", err)
	}
	_, err = ledger.CheckIn("alice", testTime(t, "2026-08-30 18:00:00"), "attendance")
	if !errors.Is(err, ErrAlreadyCheckedOut) {
		t.Errorf("check-in after check-out: expected ErrAlreadyCheckedOut, got %v", err)
	}
}

func TestNewDayNewRow(t *testing.T) {
	ledger := NewLedger(t.TempDir())

	if _, err := ledger.CheckIn("alice", testTime(t, "2026-08-30 09:00:00"), "attendance"); err != nil {
		t.Fatal(err)
	}
	if _, err := ledger.CheckOut("alice", testTime(t, "2026-08-30 17:00:00")); err != nil {
		t.Fatal(err)
	}

	// The next calendar day starts from NoRecord again.
	if _, err := ledger.CheckIn("alice", testTime(t, "2026-08-31 08:45:00"), "attendance"); err != nil {
		t.Fatalf("next-day check-in failed: %v", err)
	}

	history, err := ledger.History("alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Errorf("history has %d rows; want 2", len(history))
	}
}

func TestHistorySurvivesReload(t *testing.T) {
	dir := t.TempDir()

	first := NewLedger(dir)
	if _, err := first.CheckIn("alice", testTime(t, "2026-08-30 09:00:00"), "reception"); err != nil {
		t.Fatal(err)
	}
	if _, err := first.CheckOut("alice", testTime(t, "2026-08-30 12:15:00")); err != nil {
		t.Fatal(err)
	}

	second := NewLedger(dir)
	history, err := second.History("alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 {
		t.Fatalf("history has %d rows; want 1", len(history))
	}
	e := history[0]
	if e.Name != "alice" || e.Position != "reception" {
		t.Errorf("row lost fields: %+v", e)
	}
	if e.WorkedHours != 3.25 {
		t.Errorf("worked hours = %v; want 3.25", e.WorkedHours)
	}
}

func TestLedgersArePartitionedByIdentity(t *testing.T) {
	ledger := NewLedger(t.TempDir())
	ts := testTime(t, "2026-08-30 09:00:00")

	if _, err := ledger.CheckIn("alice", ts, "attendance"); err != nil {
		t.Fatal(err)
	}
	if _, err := ledger.CheckIn("bob", ts, "attendance"); err != nil {
		t.Fatalf("bob's check-in must not see alice's row: %v", err)
	}

	all, err := ledger.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("merged report has %d identities; want 2", len(all))
	}
}

func TestEnsureIdempotent(t *testing.T) {
	ledger := NewLedger(t.TempDir())

	if err := ledger.Ensure("alice"); err != nil {
		t.Fatal(err)
	}
	if err := ledger.Ensure("alice"); err != nil {
		t.Fatalf("second ensure should be a no-op: %v", err)
	}

	history, err := ledger.History("alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 0 {
		t.Errorf("ensured file should be empty, has %d rows", len(history))
	}
}

func TestIdentitySlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"alice", "alice"},
		{"Jiří Novák", "jiri_novak"},
		{"Mary-Jane", "mary_jane"},
		{"él@n!", "eln"},
	}

	for _, tc := range tests {
		if got := identitySlug(tc.in); got != tc.want {
			t.Errorf("identitySlug(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}
