package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicore/scheduling-service/internal/intervention"
)

func closeInterventionHandler(svc *intervention.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req CloseInterventionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		actorID, err := uuid.Parse(req.ActorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_actor_id", "actor_id must be a valid UUID")
			return
		}

		closure, err := svc.Close(r.Context(), id, req.Note, actorID)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, ClosureResponse{
			ID:            closure.ID,
			AppointmentID: closure.AppointmentID,
			PatientID:     closure.PatientID,
			Note:          closure.Note,
			ClosedBy:      closure.ClosedBy,
			ClosedAt:      closure.ClosedAt,
		})
	}
}

func deriveInterventionHandler(svc *intervention.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := uuid.Parse(chi.URLParam(r, "patientID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patientID must be a valid UUID")
			return
		}

		var apptID *uuid.UUID
		if raw := r.URL.Query().Get("appointment_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment_id must be a valid UUID")
				return
			}
			apptID = &id
		}

		pos, err := svc.Derive(r.Context(), patientID, apptID)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, pos)
	}
}
