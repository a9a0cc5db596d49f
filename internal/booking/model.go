package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/scheduling-service/internal/schedule"
)

type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusAttended  Status = "ATTENDED"
	StatusNoShow    Status = "NO_SHOW"
	StatusCancelled Status = "CANCELLED"
	StatusReferred  Status = "REFERRED"
)

// transitions is the full lifecycle: CANCELLED and REFERRED are
// terminal, nothing reopens them.
var transitions = map[Status][]Status{
	StatusScheduled: {StatusAttended, StatusNoShow, StatusCancelled, StatusReferred},
	StatusNoShow:    {StatusCancelled},
	StatusAttended:  {StatusReferred},
}

// CanTransition reports whether the lifecycle permits from -> to.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// statusesAllowing lists the states a transition to target may start
// from, for compare-and-swap updates.
func statusesAllowing(target Status) []string {
	var from []string
	for state, nexts := range transitions {
		for _, next := range nexts {
			if next == target {
				from = append(from, string(state))
			}
		}
	}
	return from
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Appointment struct {
	ID          uuid.UUID
	PatientID   uuid.UUID
	ProviderID  uuid.UUID
	SlotID      uuid.UUID
	Date        time.Time
	Start       schedule.TimeOfDay
	End         schedule.TimeOfDay
	Status      Status
	MeetingLink string
	SessionRef  *uuid.UUID
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SessionRecord is the clinical note attached to an attended
// appointment via Appointment.SessionRef.
type SessionRecord struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	PatientID     uuid.UUID
	Content       string
	RecordedBy    uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Referral struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	PatientID     uuid.UUID
	SpecialistID  uuid.UUID
	Note          string
	CreatedAt     time.Time
}

// BookResult carries the committed appointment plus degradation flags
// from best-effort collaborators. LinkPending means the meeting link
// provider failed or timed out after the booking committed.
type BookResult struct {
	Appointment *Appointment
	LinkPending bool
}
