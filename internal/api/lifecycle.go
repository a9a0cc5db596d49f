package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicore/scheduling-service/internal/booking"
	"github.com/clinicore/scheduling-service/internal/metrics"
)

func recordSessionHandler(lc *booking.Lifecycle, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req RecordSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.Content == "" {
			writeError(w, http.StatusBadRequest, "missing_content", "content must not be empty")
			return
		}
		actorID, err := uuid.Parse(req.ActorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_actor_id", "actor_id must be a valid UUID")
			return
		}

		appt, err := lc.RecordSession(r.Context(), id, req.Content, actorID)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		m.ObserveTransition(string(appt.Status))
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt, false))
	}
}

func markNoShowHandler(lc *booking.Lifecycle, m *metrics.Metrics) http.HandlerFunc {
	return transitionHandler(lc.MarkNoShow, m)
}

func cancelAppointmentHandler(lc *booking.Lifecycle, m *metrics.Metrics) http.HandlerFunc {
	return transitionHandler(lc.Cancel, m)
}

func transitionHandler(apply func(context.Context, uuid.UUID) (*booking.Appointment, error), m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := apply(r.Context(), id)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		m.ObserveTransition(string(appt.Status))
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt, false))
	}
}

func referAppointmentHandler(lc *booking.Lifecycle, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req ReferRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		specialistID, err := uuid.Parse(req.SpecialistID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_specialist_id", "specialist_id must be a valid UUID")
			return
		}
		actorID, err := uuid.Parse(req.ActorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_actor_id", "actor_id must be a valid UUID")
			return
		}

		ref, err := lc.Refer(r.Context(), id, specialistID, req.Note, actorID)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		m.ObserveTransition(string(booking.StatusReferred))
		writeJSON(w, http.StatusCreated, ReferralResponse{
			ID:            ref.ID,
			AppointmentID: ref.AppointmentID,
			PatientID:     ref.PatientID,
			SpecialistID:  ref.SpecialistID,
			Note:          ref.Note,
			CreatedAt:     ref.CreatedAt,
		})
	}
}
