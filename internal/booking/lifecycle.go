package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/scheduling-service/internal/risk"
)

// Lifecycle applies status transitions to booked appointments. Every
// transition is a compare-and-swap on a single row, so no lock beyond
// the store's per-row atomicity is needed.
type Lifecycle struct {
	store       *Store
	risk        risk.Assessor
	riskTimeout time.Duration
	log         zerolog.Logger
}

func NewLifecycle(store *Store, assessor risk.Assessor, riskTimeout time.Duration, log zerolog.Logger) *Lifecycle {
	if assessor == nil {
		assessor = risk.Denied{}
	}
	if riskTimeout <= 0 {
		riskTimeout = 3 * time.Second
	}
	return &Lifecycle{
		store:       store,
		risk:        assessor,
		riskTimeout: riskTimeout,
		log:         log,
	}
}

// RecordSession stores the clinical note for an appointment and marks
// it ATTENDED. A session record carried over from a reschedule is
// updated in place rather than duplicated.
func (l *Lifecycle) RecordSession(ctx context.Context, appointmentID uuid.UUID, content string, actorID uuid.UUID) (*Appointment, error) {
	tx, err := l.store.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin session tx: %w", err)
	}
	defer tx.Rollback(ctx)

	appt, err := getAppointmentForUpdate(ctx, tx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.Status != StatusScheduled {
		return nil, fmt.Errorf("%w: record session from %s", ErrInvalidTransition, appt.Status)
	}

	if appt.SessionRef != nil {
		if err := updateSessionRecord(ctx, tx, *appt.SessionRef, content, actorID); err != nil {
			return nil, fmt.Errorf("update session record: %w", err)
		}
	} else {
		rec := SessionRecord{
			ID:            uuid.New(),
			AppointmentID: appt.ID,
			PatientID:     appt.PatientID,
			Content:       content,
			RecordedBy:    actorID,
		}
		if err := insertSessionRecord(ctx, tx, rec); err != nil {
			return nil, fmt.Errorf("insert session record: %w", err)
		}
		if err := setSessionRef(ctx, tx, appt.ID, rec.ID); err != nil {
			return nil, fmt.Errorf("link session record: %w", err)
		}
	}

	updated, err := updateAppointmentStatus(ctx, tx, appt.ID, StatusAttended)
	if err != nil {
		return nil, fmt.Errorf("mark attended: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit session tx: %w", err)
	}
	return updated, nil
}

// MarkNoShow moves a SCHEDULED appointment to NO_SHOW.
func (l *Lifecycle) MarkNoShow(ctx context.Context, appointmentID uuid.UUID) (*Appointment, error) {
	return l.transition(ctx, appointmentID, StatusNoShow)
}

// Cancel moves a SCHEDULED or NO_SHOW appointment to CANCELLED.
func (l *Lifecycle) Cancel(ctx context.Context, appointmentID uuid.UUID) (*Appointment, error) {
	return l.transition(ctx, appointmentID, StatusCancelled)
}

// Refer records a specialist referral for a high-risk patient and
// moves the appointment to REFERRED. The risk check fails closed: any
// assessor error is treated as not high risk.
func (l *Lifecycle) Refer(ctx context.Context, appointmentID, specialistID uuid.UUID, note string, actorID uuid.UUID) (*Referral, error) {
	appt, err := getAppointment(ctx, l.store.db, appointmentID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(appt.Status, StatusReferred) {
		return nil, fmt.Errorf("%w: refer from %s", ErrInvalidTransition, appt.Status)
	}

	riskCtx, cancel := context.WithTimeout(ctx, l.riskTimeout)
	high, err := l.risk.IsHighRisk(riskCtx, appt.PatientID)
	cancel()
	if err != nil {
		l.log.Warn().Err(err).Str("patient_id", appt.PatientID.String()).Msg("risk assessment failed, treating as not high risk")
		high = false
	}
	if !high {
		return nil, ErrNotHighRisk
	}

	tx, err := l.store.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin referral tx: %w", err)
	}
	defer tx.Rollback(ctx)

	exists, err := specialistExists(ctx, tx, specialistID)
	if err != nil {
		return nil, fmt.Errorf("check specialist: %w", err)
	}
	if !exists {
		return nil, ErrSpecialistNotFound
	}

	// CAS re-checks the status under the row lock; a concurrent
	// transition surfaces as an invalid transition here.
	if _, err := updateAppointmentStatus(ctx, tx, appt.ID, StatusReferred); err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, fmt.Errorf("%w: refer from %s", ErrInvalidTransition, appt.Status)
		}
		return nil, fmt.Errorf("mark referred: %w", err)
	}

	ref, err := insertReferral(ctx, tx, Referral{
		ID:            uuid.New(),
		AppointmentID: appt.ID,
		PatientID:     appt.PatientID,
		SpecialistID:  specialistID,
		Note:          note,
	})
	if err != nil {
		return nil, fmt.Errorf("insert referral: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit referral tx: %w", err)
	}
	return ref, nil
}

func (l *Lifecycle) transition(ctx context.Context, id uuid.UUID, to Status) (*Appointment, error) {
	updated, err := updateAppointmentStatus(ctx, l.store.db, id, to)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, ErrAppointmentNotFound) {
		return nil, fmt.Errorf("transition to %s: %w", to, err)
	}

	// Zero rows: missing appointment or illegal source status.
	appt, lookupErr := getAppointment(ctx, l.store.db, id)
	if lookupErr != nil {
		return nil, lookupErr
	}
	return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appt.Status, to)
}
