package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/scheduling-service/internal/booking"
	"github.com/clinicore/scheduling-service/internal/schedule"
)

type ClockRangeRequest struct {
	Start string `json:"start"` // "09:00"
	End   string `json:"end"`
}

type GenerateSlotsRequest struct {
	ProviderID      string                         `json:"provider_id"`
	From            string                         `json:"from"` // YYYY-MM-DD inclusive
	To              string                         `json:"to"`
	DurationMinutes int                            `json:"duration_minutes"`
	WeeklyTemplate  map[string][]ClockRangeRequest `json:"weekly_template"`
	ActorID         string                         `json:"actor_id"`
}

type GenerateSlotsResponse struct {
	SlotsCreated int `json:"slots_created"`
}

type SlotResponse struct {
	ID         uuid.UUID `json:"id"`
	ProviderID uuid.UUID `json:"provider_id"`
	Date       string    `json:"date"`
	Start      string    `json:"start"`
	End        string    `json:"end"`
}

func toSlotResponse(s schedule.Slot) SlotResponse {
	return SlotResponse{
		ID:         s.ID,
		ProviderID: s.ProviderID,
		Date:       s.Date.Format(time.DateOnly),
		Start:      s.Start.String(),
		End:        s.End.String(),
	}
}

type BookAppointmentRequest struct {
	SlotID    string `json:"slot_id"`
	PatientID string `json:"patient_id"`
	ActorID   string `json:"actor_id"`
}

type RescheduleRequest struct {
	NewSlotID string `json:"new_slot_id"`
	ActorID   string `json:"actor_id"`
}

type RecordSessionRequest struct {
	Content string `json:"content"`
	ActorID string `json:"actor_id"`
}

type ReferRequest struct {
	SpecialistID string `json:"specialist_id"`
	Note         string `json:"note"`
	ActorID      string `json:"actor_id"`
}

type CloseInterventionRequest struct {
	Note    string `json:"note"`
	ActorID string `json:"actor_id"`
}

type AppointmentResponse struct {
	ID          uuid.UUID  `json:"id"`
	PatientID   uuid.UUID  `json:"patient_id"`
	ProviderID  uuid.UUID  `json:"provider_id"`
	SlotID      uuid.UUID  `json:"slot_id"`
	Date        string     `json:"date"`
	Start       string     `json:"start"`
	End         string     `json:"end"`
	Status      string     `json:"status"`
	MeetingLink string     `json:"meeting_link,omitempty"`
	SessionRef  *uuid.UUID `json:"session_ref,omitempty"`
	LinkPending bool       `json:"link_pending,omitempty"`
}

func toAppointmentResponse(a *booking.Appointment, linkPending bool) AppointmentResponse {
	return AppointmentResponse{
		ID:          a.ID,
		PatientID:   a.PatientID,
		ProviderID:  a.ProviderID,
		SlotID:      a.SlotID,
		Date:        a.Date.Format(time.DateOnly),
		Start:       a.Start.String(),
		End:         a.End.String(),
		Status:      string(a.Status),
		MeetingLink: a.MeetingLink,
		SessionRef:  a.SessionRef,
		LinkPending: linkPending,
	}
}

type ReferralResponse struct {
	ID            uuid.UUID `json:"id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	PatientID     uuid.UUID `json:"patient_id"`
	SpecialistID  uuid.UUID `json:"specialist_id"`
	Note          string    `json:"note,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type ClosureResponse struct {
	ID            uuid.UUID `json:"id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	PatientID     uuid.UUID `json:"patient_id"`
	Note          string    `json:"note,omitempty"`
	ClosedBy      uuid.UUID `json:"closed_by"`
	ClosedAt      time.Time `json:"closed_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
