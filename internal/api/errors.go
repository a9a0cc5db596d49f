package api

import (
	"errors"
	"net/http"

	"github.com/clinicore/scheduling-service/internal/booking"
	"github.com/clinicore/scheduling-service/internal/intervention"
	"github.com/clinicore/scheduling-service/internal/schedule"
)

// handleDomainError maps service errors onto HTTP responses. Unknown
// errors become a generic 500 so internals never leak to clients.
func handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrInvalidDuration),
		errors.Is(err, schedule.ErrInvalidDateRange),
		errors.Is(err, schedule.ErrInvalidClockRange),
		errors.Is(err, schedule.ErrUnknownWeekday):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())

	case errors.Is(err, schedule.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "slot_not_found", err.Error())
	case errors.Is(err, booking.ErrAppointmentNotFound),
		errors.Is(err, intervention.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, booking.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, booking.ErrSpecialistNotFound):
		writeError(w, http.StatusNotFound, "specialist_not_found", err.Error())

	case errors.Is(err, booking.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", err.Error())
	case errors.Is(err, booking.ErrPatientOverlap):
		writeError(w, http.StatusConflict, "patient_overlap", err.Error())
	case errors.Is(err, booking.ErrSlotContended):
		writeError(w, http.StatusConflict, "slot_contended", err.Error())
	case errors.Is(err, booking.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, schedule.ErrSlotHasAppointments):
		writeError(w, http.StatusConflict, "slot_has_appointments", err.Error())
	case errors.Is(err, schedule.ErrPastSlot):
		writeError(w, http.StatusConflict, "past_slot", err.Error())
	case errors.Is(err, intervention.ErrAlreadyClosed):
		writeError(w, http.StatusConflict, "intervention_already_closed", err.Error())

	case errors.Is(err, booking.ErrNotHighRisk):
		writeError(w, http.StatusUnprocessableEntity, "patient_not_high_risk", err.Error())

	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
	}
}
