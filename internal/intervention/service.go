package intervention

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Close records the end of an intervention at the given appointment.
// Allowed regardless of the appointment's status; a second closure for
// the same appointment fails ErrAlreadyClosed and changes nothing.
func (s *Service) Close(ctx context.Context, appointmentID uuid.UUID, note string, actorID uuid.UUID) (*Closure, error) {
	patientID, err := s.repo.GetAppointmentPatient(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	closure, err := s.repo.InsertClosure(ctx, Closure{
		ID:            uuid.New(),
		AppointmentID: appointmentID,
		PatientID:     patientID,
		Note:          note,
		ClosedBy:      actorID,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", appointmentID.String()).
		Str("patient_id", patientID.String()).
		Msg("intervention closed")

	return closure, nil
}

// Derive recomputes the intervention/session position for a specific
// live appointment, or for the patient's next appointment when
// appointmentID is nil. The history is refetched on every call.
func (s *Service) Derive(ctx context.Context, patientID uuid.UUID, appointmentID *uuid.UUID) (Derivation, error) {
	h, err := s.repo.LoadHistory(ctx, patientID)
	if err != nil {
		return Derivation{}, fmt.Errorf("load patient history: %w", err)
	}
	return Derive(h, appointmentID)
}
