package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/scheduling-service/internal/meeting"
	"github.com/clinicore/scheduling-service/internal/metrics"
	"github.com/clinicore/scheduling-service/internal/notify"
	redisclient "github.com/clinicore/scheduling-service/internal/redis"
)

// Booker reserves slots for patients. The availability checks and the
// insert run in one transaction against the slot row lock; the Redis
// lock in front only sheds contention before it reaches the database.
type Booker struct {
	store         *Store
	locker        redisclient.Locker
	links         meeting.Provider
	notifier      notify.Dispatcher
	loc           *time.Location
	linkTimeout   time.Duration
	notifyTimeout time.Duration
	cancelOnMove  bool
	metrics       *metrics.Metrics
	log           zerolog.Logger
}

type BookerConfig struct {
	Locker        redisclient.Locker
	Links         meeting.Provider
	Notifier      notify.Dispatcher
	Location      *time.Location
	LinkTimeout   time.Duration
	NotifyTimeout time.Duration

	// RescheduleCancelsOriginal makes Reschedule cancel the source
	// appointment in the same transaction that books the new slot.
	RescheduleCancelsOriginal bool

	Metrics *metrics.Metrics
	Logger  zerolog.Logger
}

func NewBooker(store *Store, cfg BookerConfig) *Booker {
	b := &Booker{
		store:         store,
		locker:        cfg.Locker,
		links:         cfg.Links,
		notifier:      cfg.Notifier,
		loc:           cfg.Location,
		linkTimeout:   cfg.LinkTimeout,
		notifyTimeout: cfg.NotifyTimeout,
		cancelOnMove:  cfg.RescheduleCancelsOriginal,
		metrics:       cfg.Metrics,
		log:           cfg.Logger,
	}
	if b.locker == nil {
		b.locker = redisclient.NoopLocker{}
	}
	if b.links == nil {
		b.links = meeting.Disabled{}
	}
	if b.notifier == nil {
		b.notifier = notify.NewLogDispatcher(cfg.Logger)
	}
	if b.loc == nil {
		b.loc = time.UTC
	}
	if b.linkTimeout <= 0 {
		b.linkTimeout = 5 * time.Second
	}
	if b.notifyTimeout <= 0 {
		b.notifyTimeout = 5 * time.Second
	}
	return b
}

// Book reserves slotID for patientID. Exactly one of N concurrent
// calls for the same slot wins; the rest see ErrSlotUnavailable or
// ErrSlotContended. Meeting link creation and notification happen
// after commit and never undo the booking.
func (b *Booker) Book(ctx context.Context, slotID, patientID, actorID uuid.UUID) (*BookResult, error) {
	patient, err := getPatient(ctx, b.store.db, patientID)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	var created *Appointment

	err = b.locker.WithSlotLock(ctx, slotID, func(lockCtx context.Context) error {
		tx, err := b.store.db.Begin(lockCtx)
		if err != nil {
			return fmt.Errorf("begin booking tx: %w", err)
		}
		defer tx.Rollback(lockCtx)

		slot, err := getSlotForUpdate(lockCtx, tx, slotID)
		if err != nil {
			return err
		}

		taken, err := slotHasLiveAppointment(lockCtx, tx, slotID)
		if err != nil {
			return fmt.Errorf("check slot availability: %w", err)
		}
		if taken {
			return ErrSlotUnavailable
		}

		overlap, err := patientOverlapExists(lockCtx, tx, patientID, slot, nil)
		if err != nil {
			return fmt.Errorf("check patient overlap: %w", err)
		}
		if overlap {
			return ErrPatientOverlap
		}

		created, err = insertAppointment(lockCtx, tx, Appointment{
			ID:         uuid.New(),
			PatientID:  patientID,
			ProviderID: slot.ProviderID,
			SlotID:     slot.ID,
			Date:       slot.Date,
			Start:      slot.Start,
			End:        slot.End,
			Status:     StatusScheduled,
			CreatedBy:  actorID,
		})
		if err != nil {
			return err
		}

		return tx.Commit(lockCtx)
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotContended
		}
		return nil, err
	}

	return b.afterCommit(ctx, created, patient, false), nil
}

// Reschedule books the patient into a new slot, carrying over the
// session reference. The source appointment must still be SCHEDULED;
// whether it gets cancelled is the configured policy.
func (b *Booker) Reschedule(ctx context.Context, appointmentID, newSlotID, actorID uuid.UUID) (*BookResult, error) {
	src, err := getAppointment(ctx, b.store.db, appointmentID)
	if err != nil {
		return nil, err
	}
	if src.Status != StatusScheduled {
		return nil, fmt.Errorf("%w: cannot reschedule from %s", ErrInvalidTransition, src.Status)
	}

	patient, err := getPatient(ctx, b.store.db, src.PatientID)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	var created *Appointment

	err = b.locker.WithSlotLock(ctx, newSlotID, func(lockCtx context.Context) error {
		tx, err := b.store.db.Begin(lockCtx)
		if err != nil {
			return fmt.Errorf("begin reschedule tx: %w", err)
		}
		defer tx.Rollback(lockCtx)

		// Re-read under lock: the source may have moved since the
		// pre-check outside the transaction.
		src, err = getAppointmentForUpdate(lockCtx, tx, appointmentID)
		if err != nil {
			return err
		}
		if src.Status != StatusScheduled {
			return fmt.Errorf("%w: cannot reschedule from %s", ErrInvalidTransition, src.Status)
		}

		slot, err := getSlotForUpdate(lockCtx, tx, newSlotID)
		if err != nil {
			return err
		}

		taken, err := slotHasLiveAppointment(lockCtx, tx, newSlotID)
		if err != nil {
			return fmt.Errorf("check slot availability: %w", err)
		}
		if taken {
			return ErrSlotUnavailable
		}

		// The source appointment is excluded from the overlap scan only
		// when it gets cancelled in this same transaction; a source that
		// stays live still counts against the new window.
		var exclude *uuid.UUID
		if b.cancelOnMove {
			exclude = &src.ID
		}
		overlap, err := patientOverlapExists(lockCtx, tx, src.PatientID, slot, exclude)
		if err != nil {
			return fmt.Errorf("check patient overlap: %w", err)
		}
		if overlap {
			return ErrPatientOverlap
		}

		created, err = insertAppointment(lockCtx, tx, Appointment{
			ID:         uuid.New(),
			PatientID:  src.PatientID,
			ProviderID: slot.ProviderID,
			SlotID:     slot.ID,
			Date:       slot.Date,
			Start:      slot.Start,
			End:        slot.End,
			Status:     StatusScheduled,
			SessionRef: src.SessionRef,
			CreatedBy:  actorID,
		})
		if err != nil {
			return err
		}

		if b.cancelOnMove {
			if _, err := updateAppointmentStatus(lockCtx, tx, src.ID, StatusCancelled); err != nil {
				return fmt.Errorf("cancel source appointment: %w", err)
			}
		}

		return tx.Commit(lockCtx)
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotContended
		}
		return nil, err
	}

	return b.afterCommit(ctx, created, patient, true), nil
}

// afterCommit runs the best-effort collaborators. Their failures only
// degrade the result.
func (b *Booker) afterCommit(ctx context.Context, appt *Appointment, patient *Patient, rescheduled bool) *BookResult {
	res := &BookResult{Appointment: appt}

	starts := appt.Start.At(appt.Date, b.loc)
	ends := appt.End.At(appt.Date, b.loc)

	// The booking is already committed; the collaborators must not be
	// torn down by a client disconnect.
	detached := context.WithoutCancel(ctx)

	linkCtx, cancel := context.WithTimeout(detached, b.linkTimeout)
	subject := fmt.Sprintf("Clinical session %s %s", appt.Date.Format(time.DateOnly), appt.Start)
	link, err := b.links.Create(linkCtx, subject, starts.UTC(), ends.UTC())
	cancel()
	if err != nil {
		b.log.Warn().Err(err).Str("appointment_id", appt.ID.String()).Msg("meeting link creation failed, leaving link empty")
		b.metrics.ObserveCollaboratorFailure("meeting_link")
		res.LinkPending = true
	} else if link != "" {
		if err := setMeetingLink(detached, b.store.db, appt.ID, link); err != nil {
			b.log.Warn().Err(err).Str("appointment_id", appt.ID.String()).Msg("meeting link not persisted")
			res.LinkPending = true
		} else {
			appt.MeetingLink = link
		}
	}

	notice := notify.Notice{
		AppointmentID: appt.ID,
		PatientName:   patient.Name,
		StartsAt:      starts,
		EndsAt:        ends,
		MeetingLink:   appt.MeetingLink,
		Rescheduled:   rescheduled,
	}
	if patient.Email != nil {
		notice.PatientEmail = *patient.Email
	}

	notifyCtx, cancel := context.WithTimeout(detached, b.notifyTimeout)
	defer cancel()
	if err := b.notifier.Notify(notifyCtx, notice); err != nil {
		b.log.Warn().Err(err).Str("appointment_id", appt.ID.String()).Msg("notification dispatch failed")
		b.metrics.ObserveCollaboratorFailure("notify")
	}

	return res
}
