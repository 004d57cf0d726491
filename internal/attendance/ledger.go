// Package attendance enforces the per-identity time-clock state machine and
// keeps the durable per-identity event log: at most one check-in and one
// check-out per calendar day, worked hours computed on check-out.
package attendance

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/minhvu/faceclock/internal/logger"
)

// State machine violations. The ledger is left unchanged when any of these
// fire; they are idempotent rejections, not crashes.
var (
	ErrAlreadyCheckedIn  = errors.New("already checked in today")
	ErrAlreadyCheckedOut = errors.New("already checked out today")
	ErrNoOpenCheckIn     = errors.New("no open check-in today")
)

// Timestamp layouts shared with the CSV files.
const (
	dateLayout = "2006-01-02"
	timeLayout = "2006-01-02 15:04:05"
)

// Event is one attendance row: at most one per identity per calendar date.
// A row is created on check-in, completed on check-out and never deleted by
// normal operation.
type Event struct {
	Name        string    `json:"name"`
	Date        string    `json:"date"` // calendar date, YYYY-MM-DD
	CheckIn     time.Time `json:"check_in"`
	CheckOut    time.Time `json:"check_out,omitempty"`
	WorkedHours float64   `json:"worked_hours,omitempty"`
	Position    string    `json:"position"`
}

// CheckedOut reports whether the row is terminal for its date.
func (e *Event) CheckedOut() bool { return !e.CheckOut.IsZero() }

// Ledger owns the per-identity attendance logs, one CSV file per identity
// so concurrent writers for different identities never contend.
type Ledger struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLedger creates a ledger rooted at dir.
func NewLedger(dir string) *Ledger {
	return &Ledger{dir: dir, locks: make(map[string]*sync.Mutex)}
}

// lockFor returns the per-identity mutex, creating it on first use.
// Writes for the same identity are serialized; different identities run
// concurrently.
func (l *Ledger) lockFor(identity string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := identitySlug(identity)
	if _, ok := l.locks[key]; !ok {
		l.locks[key] = &sync.Mutex{}
	}
	return l.locks[key]
}

// path returns the identity's CSV file path.
func (l *Ledger) path(identity string) string {
	return filepath.Join(l.dir, fmt.Sprintf("attendances_%s.csv", identitySlug(identity)))
}

// CheckIn opens today's attendance row. Allowed only when the identity has
// no row for ts's calendar date.
func (l *Ledger) CheckIn(identity string, ts time.Time, position string) (*Event, error) {
	lock := l.lockFor(identity)
	lock.Lock()
	defer lock.Unlock()

	events, err := l.load(identity)
	if err != nil {
		return nil, err
	}

	date := ts.Format(dateLayout)
	for i := range events {
		if events[i].Date != date {
			continue
		}
		if events[i].CheckedOut() {
			return nil, ErrAlreadyCheckedOut
		}
		return nil, ErrAlreadyCheckedIn
	}

	event := Event{
		Name:     identity,
		Date:     date,
		CheckIn:  ts,
		Position: position,
	}
	events = append(events, event)

	if err := l.write(identity, events); err != nil {
		return nil, err
	}

	logger.L().WithFields(logger.Fields{"identity": identity, "date": date}).Info("check-in recorded")
	return &event, nil
}

// CheckOut completes today's open row and computes worked hours, rounded to
// two decimals. Allowed only from an open check-in on ts's calendar date.
func (l *Ledger) CheckOut(identity string, ts time.Time) (*Event, error) {
	lock := l.lockFor(identity)
	lock.Lock()
	defer lock.Unlock()

	events, err := l.load(identity)
	if err != nil {
		return nil, err
	}

	date := ts.Format(dateLayout)
	for i := range events {
		if events[i].Date != date {
			continue
		}
		if events[i].CheckedOut() {
			return nil, ErrAlreadyCheckedOut
		}

		events[i].CheckOut = ts
		events[i].WorkedHours = roundHours(ts.Sub(events[i].CheckIn))

		if err := l.write(identity, events); err != nil {
			return nil, err
		}

		logger.L().WithFields(logger.Fields{
			"identity": identity,
			"date":     date,
			"hours":    events[i].WorkedHours,
		}).Info("check-out recorded")
		return &events[i], nil
	}

	return nil, ErrNoOpenCheckIn
}

// History returns the identity's events in log order. A missing file is an
// empty history, not an error.
func (l *Ledger) History(identity string) ([]Event, error) {
	lock := l.lockFor(identity)
	lock.Lock()
	defer lock.Unlock()

	return l.load(identity)
}

// All merges every identity's log for reporting, keyed by the log's file
// identity.
func (l *Ledger) All() (map[string][]Event, error) {
	entries, err := os.ReadDir(l.dir)
	if os.IsNotExist(err) {
		return map[string][]Event{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading ledger directory %s: %w", l.dir, err)
	}

	merged := make(map[string][]Event)
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "attendances_") || !strings.HasSuffix(name, ".csv") {
			continue
		}
		slug := strings.TrimSuffix(strings.TrimPrefix(name, "attendances_"), ".csv")

		events, err := readEventsFile(filepath.Join(l.dir, name))
		if err != nil {
			return nil, err
		}
		merged[slug] = events
	}
	return merged, nil
}

// Ensure creates the identity's log file with the column header if it does
// not exist yet. Idempotent.
func (l *Ledger) Ensure(identity string) error {
	lock := l.lockFor(identity)
	lock.Lock()
	defer lock.Unlock()

	path := l.path(identity)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return l.write(identity, nil)
}

// roundHours converts a duration to hours, rounded to 2 decimals.
func roundHours(d time.Duration) float64 {
	return math.Round(d.Hours()*100) / 100
}
