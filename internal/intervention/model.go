// Package intervention tracks clinical courses of up to four sessions
// and derives intervention/session numbering from history. Numbers are
// never stored: every answer is recomputed from the closure and
// appointment log so backfilled or out-of-order data stays consistent.
package intervention

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/scheduling-service/internal/schedule"
)

// SessionsPerIntervention is the clinical protocol's course length.
const SessionsPerIntervention = 4

var (
	ErrAlreadyClosed       = errors.New("intervention already closed for this appointment")
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// Closure marks the appointment at which an intervention formally
// ends. Immutable once written.
type Closure struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	PatientID     uuid.UUID
	Note          string
	ClosedBy      uuid.UUID
	ClosedAt      time.Time
}

// VisitRef is a live (SCHEDULED or ATTENDED) appointment's position in
// the patient's timeline.
type VisitRef struct {
	ID    uuid.UUID
	Date  time.Time
	Start schedule.TimeOfDay
}

// ClosureRef is a closure pinned to its appointment's position.
type ClosureRef struct {
	ClosureID     uuid.UUID
	AppointmentID uuid.UUID
	Date          time.Time
	Start         schedule.TimeOfDay
}

// History is a patient's ordered timeline: both slices sorted by
// (date, start time), ties broken by appointment id ascending.
type History struct {
	Visits   []VisitRef
	Closures []ClosureRef
}

// Derivation is the computed position of an appointment (or of the
// next, not-yet-created one) in the patient's protocol.
type Derivation struct {
	InterventionNumber int  `json:"intervention_number"`
	SessionNumber      int  `json:"session_number"`
	GlobalPosition     int  `json:"global_position"`
	LimitReached       bool `json:"limit_reached"`
}
