package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/minhvu/faceclock/internal/attendance"
)

func TestAttendanceCheckIn(t *testing.T) {
	cfg := testConfig(t)
	h := NewAttendanceHandler(testLedger(t, cfg))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/attendance/check-in",
		strings.NewReader(`{"identity": "Alice", "position": "engineer"}`))
	rec := httptest.NewRecorder()
	h.CheckIn(rec, req)

	assertStatusCode(t, rec, http.StatusCreated)

	var event attendance.Event
	parseJSONResponse(t, rec, &event)
	if event.Name != "Alice" {
		t.Errorf("Name = %q, want %q", event.Name, "Alice")
	}
	if event.Position != "engineer" {
		t.Errorf("Position = %q, want %q", event.Position, "engineer")
	}
}

func TestAttendanceCheckInTwiceConflicts(t *testing.T) {
	cfg := testConfig(t)
	h := NewAttendanceHandler(testLedger(t, cfg))

	for i, wantStatus := range []int{http.StatusCreated, http.StatusConflict} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/attendance/check-in",
			strings.NewReader(`{"identity": "Alice"}`))
		rec := httptest.NewRecorder()
		h.CheckIn(rec, req)
		if rec.Code != wantStatus {
			t.Fatalf("attempt %d: status = %d, want %d", i+1, rec.Code, wantStatus)
		}
	}
}

func TestAttendanceCheckOutWithoutCheckIn(t *testing.T) {
	cfg := testConfig(t)
	h := NewAttendanceHandler(testLedger(t, cfg))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/attendance/check-out",
		strings.NewReader(`{"identity": "Alice"}`))
	rec := httptest.NewRecorder()
	h.CheckOut(rec, req)

	assertStatusCode(t, rec, http.StatusConflict)
}

func TestAttendanceRequiresIdentity(t *testing.T) {
	cfg := testConfig(t)
	h := NewAttendanceHandler(testLedger(t, cfg))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/attendance/check-in",
		strings.NewReader(`{"position": "engineer"}`))
	rec := httptest.NewRecorder()
	h.CheckIn(rec, req)

	assertStatusCode(t, rec, http.StatusBadRequest)
}

func TestAttendanceHistory(t *testing.T) {
	cfg := testConfig(t)
	ledger := testLedger(t, cfg)
	h := NewAttendanceHandler(ledger)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/attendance/check-in",
		strings.NewReader(`{"identity": "Alice"}`))
	rec := httptest.NewRecorder()
	h.CheckIn(rec, req)
	assertStatusCode(t, rec, http.StatusCreated)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/attendance/Alice", nil)
	req = requestWithChiParams(req, map[string]string{"identity": "Alice"})
	rec = httptest.NewRecorder()
	h.History(rec, req)

	assertStatusCode(t, rec, http.StatusOK)

	var resp struct {
		Identity string             `json:"identity"`
		Events   []attendance.Event `json:"events"`
	}
	parseJSONResponse(t, rec, &resp)
	if len(resp.Events) != 1 {
		t.Fatalf("got %d events, want 1", len(resp.Events))
	}
}

func TestAttendanceListRequiresAdmin(t *testing.T) {
	cfg := testConfig(t)
	h := NewAttendanceHandler(testLedger(t, cfg))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attendance", nil)
	rec := httptest.NewRecorder()
	h.List(rec, requestWithPrincipal(req, false))
	assertStatusCode(t, rec, http.StatusForbidden)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/attendance", nil)
	rec = httptest.NewRecorder()
	h.List(rec, requestWithPrincipal(req, true))
	assertStatusCode(t, rec, http.StatusOK)
}
