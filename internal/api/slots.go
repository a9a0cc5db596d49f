package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicore/scheduling-service/internal/metrics"
	"github.com/clinicore/scheduling-service/internal/schedule"
)

func generateSlotsHandler(svc *schedule.Service, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GenerateSlotsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		providerID, err := uuid.Parse(req.ProviderID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_provider_id", "provider_id must be a valid UUID")
			return
		}

		actorID, err := uuid.Parse(req.ActorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_actor_id", "actor_id must be a valid UUID")
			return
		}

		from, err := time.Parse(time.DateOnly, req.From)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "from must be YYYY-MM-DD")
			return
		}
		to, err := time.Parse(time.DateOnly, req.To)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "to must be YYYY-MM-DD")
			return
		}

		raw := make(map[string][]schedule.ClockRange, len(req.WeeklyTemplate))
		for day, windows := range req.WeeklyTemplate {
			for _, win := range windows {
				start, err := schedule.ParseTimeOfDay(win.Start)
				if err != nil {
					writeError(w, http.StatusBadRequest, "invalid_time", err.Error())
					return
				}
				end, err := schedule.ParseTimeOfDay(win.End)
				if err != nil {
					writeError(w, http.StatusBadRequest, "invalid_time", err.Error())
					return
				}
				raw[day] = append(raw[day], schedule.ClockRange{Start: start, End: end})
			}
		}

		tmpl, err := schedule.NormalizeTemplate(raw)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		created, err := svc.Generate(r.Context(), providerID, schedule.DateRange{From: from, To: to}, req.DurationMinutes, tmpl, actorID)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		m.ObserveSlotsGenerated(created)
		writeJSON(w, http.StatusCreated, GenerateSlotsResponse{SlotsCreated: created})
	}
}

func listProviderSlotsHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, err := uuid.Parse(chi.URLParam(r, "providerID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_provider_id", "providerID must be a valid UUID")
			return
		}

		from, err := time.Parse(time.DateOnly, r.URL.Query().Get("from"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "from must be YYYY-MM-DD")
			return
		}
		to, err := time.Parse(time.DateOnly, r.URL.Query().Get("to"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "to must be YYYY-MM-DD")
			return
		}

		slots, err := svc.ListSlots(r.Context(), providerID, schedule.DateRange{From: from, To: to})
		if err != nil {
			handleDomainError(w, err)
			return
		}

		resp := make([]SlotResponse, 0, len(slots))
		for _, s := range slots {
			resp = append(resp, toSlotResponse(s))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func deleteSlotHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "id must be a valid UUID")
			return
		}

		if err := svc.DeleteSlot(r.Context(), id, time.Now()); err != nil {
			handleDomainError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
