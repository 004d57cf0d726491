package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/minhvu/faceclock/internal/attendance"
	"github.com/minhvu/faceclock/internal/web/middleware"
)

// AttendanceHandler handles attendance ledger endpoints.
type AttendanceHandler struct {
	ledger *attendance.Ledger
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(ledger *attendance.Ledger) *AttendanceHandler {
	return &AttendanceHandler{ledger: ledger}
}

// CheckInRequest represents a manual check-in request.
type CheckInRequest struct {
	Identity string `json:"identity" validate:"required"`
	Position string `json:"position"`
}

// CheckOutRequest represents a manual check-out request.
type CheckOutRequest struct {
	Identity string `json:"identity" validate:"required"`
}

// CheckIn records a check-in for an identity.
func (h *AttendanceHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req CheckInRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	event, err := h.ledger.CheckIn(req.Identity, time.Now(), req.Position)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, event)
}

// CheckOut records a check-out for an identity.
func (h *AttendanceHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	var req CheckOutRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	event, err := h.ledger.CheckOut(req.Identity, time.Now())
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, event)
}

// History returns the attendance history for one identity.
func (h *AttendanceHandler) History(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "identity")
	if identity == "" {
		respondError(w, http.StatusBadRequest, "missing identity")
		return
	}

	events, err := h.ledger.History(identity)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"identity": identity,
		"events":   events,
	})
}

// List returns attendance records for every known identity. Admin only.
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipalFromContext(r.Context())
	if principal == nil || !principal.Admin {
		respondError(w, http.StatusForbidden, "listing all records requires admin access")
		return
	}

	all, err := h.ledger.All()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, all)
}

// respondLedgerError maps ledger state errors to conflict responses.
func respondLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, attendance.ErrAlreadyCheckedIn),
		errors.Is(err, attendance.ErrAlreadyCheckedOut),
		errors.Is(err, attendance.ErrNoOpenCheckIn):
		respondError(w, http.StatusConflict, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}
