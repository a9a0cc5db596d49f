package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicore/scheduling-service/internal/booking"
	"github.com/clinicore/scheduling-service/internal/intervention"
	"github.com/clinicore/scheduling-service/internal/metrics"
)

func bookAppointmentHandler(booker *booking.Booker, interventions *intervention.Service, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		slotID, err := uuid.Parse(req.SlotID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "slot_id must be a valid UUID")
			return
		}
		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		actorID, err := uuid.Parse(req.ActorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_actor_id", "actor_id must be a valid UUID")
			return
		}

		// The course gate: a patient whose current intervention already
		// used its four sessions needs a closure before booking again.
		pos, err := interventions.Derive(r.Context(), patientID, nil)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		if pos.LimitReached {
			m.ObserveBooking("limit_reached")
			writeError(w, http.StatusConflict, "intervention_limit_reached",
				"patient has used all sessions of the current intervention; close it before booking")
			return
		}

		result, err := booker.Book(r.Context(), slotID, patientID, actorID)
		if err != nil {
			m.ObserveBooking("rejected")
			handleDomainError(w, err)
			return
		}

		m.ObserveBooking("booked")
		writeJSON(w, http.StatusCreated, toAppointmentResponse(result.Appointment, result.LinkPending))
	}
}

func rescheduleAppointmentHandler(booker *booking.Booker, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req RescheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		newSlotID, err := uuid.Parse(req.NewSlotID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "new_slot_id must be a valid UUID")
			return
		}
		actorID, err := uuid.Parse(req.ActorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_actor_id", "actor_id must be a valid UUID")
			return
		}

		result, err := booker.Reschedule(r.Context(), id, newSlotID, actorID)
		if err != nil {
			m.ObserveBooking("reschedule_rejected")
			handleDomainError(w, err)
			return
		}

		m.ObserveBooking("rescheduled")
		writeJSON(w, http.StatusCreated, toAppointmentResponse(result.Appointment, result.LinkPending))
	}
}

func getAppointmentHandler(store *booking.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := store.GetAppointment(r.Context(), id)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt, false))
	}
}

func listPatientAppointmentsHandler(store *booking.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := uuid.Parse(chi.URLParam(r, "patientID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patientID must be a valid UUID")
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		appts, err := store.ListAppointmentsByPatient(r.Context(), patientID, limit, offset)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		resp := make([]AppointmentResponse, 0, len(appts))
		for i := range appts {
			resp = append(resp, toAppointmentResponse(&appts[i], false))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
