package attendance

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// csvHeader is the fixed column schema of every attendance file.
var csvHeader = []string{"name", "date", "check_in", "check_out", "worked_hours", "position"}

// load reads the identity's events. A missing file yields an empty slice.
func (l *Ledger) load(identity string) ([]Event, error) {
	events, err := readEventsFile(l.path(identity))
	if os.IsNotExist(err) {
		return nil, nil
	}
	return events, err
}

// readEventsFile parses one attendance CSV.
func readEventsFile(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing attendance log %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	events := make([]Event, 0, len(records)-1)
	for i, row := range records[1:] { // skip header
		if len(row) != len(csvHeader) {
			return nil, fmt.Errorf("attendance log %s row %d has %d columns, want %d",
				path, i+2, len(row), len(csvHeader))
		}

		event := Event{Name: row[0], Date: row[1], Position: row[5]}
		if row[2] != "" {
			event.CheckIn, err = time.ParseInLocation(timeLayout, row[2], time.Local)
			if err != nil {
				return nil, fmt.Errorf("attendance log %s row %d: bad check-in time: %w", path, i+2, err)
			}
		}
		if row[3] != "" {
			event.CheckOut, err = time.ParseInLocation(timeLayout, row[3], time.Local)
			if err != nil {
				return nil, fmt.Errorf("attendance log %s row %d: bad check-out time: %w", path, i+2, err)
			}
		}
		if row[4] != "" {
			event.WorkedHours, err = strconv.ParseFloat(row[4], 64)
			if err != nil {
				return nil, fmt.Errorf("attendance log %s row %d: bad worked hours: %w", path, i+2, err)
			}
		}
		events = append(events, event)
	}
	return events, nil
}

// write persists the identity's full event list atomically: temp file then
// rename, so a crash never leaves a torn log.
func (l *Ledger) write(identity string, events []Event) error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("creating ledger directory: %w", err)
	}

	tmp, err := os.CreateTemp(l.dir, ".attendance-*.csv")
	if err != nil {
		return fmt.Errorf("creating temp attendance file: %w", err)
	}
	tmpName := tmp.Name()

	w := csv.NewWriter(tmp)
	rows := [][]string{csvHeader}
	for i := range events {
		rows = append(rows, eventToRow(&events[i]))
	}
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing attendance rows: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp attendance file: %w", err)
	}

	path := l.path(identity)
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing attendance log %s: %w", filepath.Base(path), err)
	}
	return nil
}

// eventToRow serializes one event into the column schema.
func eventToRow(e *Event) []string {
	row := []string{e.Name, e.Date, "", "", "", e.Position}
	if !e.CheckIn.IsZero() {
		row[2] = e.CheckIn.Format(timeLayout)
	}
	if !e.CheckOut.IsZero() {
		row[3] = e.CheckOut.Format(timeLayout)
		row[4] = strconv.FormatFloat(e.WorkedHours, 'f', 2, 64)
	}
	return row
}
