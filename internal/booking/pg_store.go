package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/clinicore/scheduling-service/internal/schedule"
)

const appointmentColumns = `id, patient_id, provider_id, slot_id, appt_date, start_time, end_time,
		status, meeting_link, session_ref, created_by, created_at, updated_at`

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a          Appointment
		date       pgtype.Date
		start, end pgtype.Time
		sessionRef *uuid.UUID
	)

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.ProviderID,
		&a.SlotID,
		&date,
		&start,
		&end,
		&a.Status,
		&a.MeetingLink,
		&sessionRef,
		&a.CreatedBy,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Date = schedule.DateOnly(date.Time)
	a.Start = schedule.FromPGTime(start)
	a.End = schedule.FromPGTime(end)
	a.SessionRef = sessionRef
	return &a, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var email *string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&email,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	p.Email = email
	return &p, nil
}

func scanSlot(row pgx.Row) (*schedule.Slot, error) {
	var (
		s          schedule.Slot
		date       pgtype.Date
		start, end pgtype.Time
	)

	err := row.Scan(
		&s.ID,
		&s.ProviderID,
		&date,
		&start,
		&end,
		&s.CreatedBy,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, schedule.ErrSlotNotFound
		}
		return nil, err
	}

	s.Date = schedule.DateOnly(date.Time)
	s.Start = schedule.FromPGTime(start)
	s.End = schedule.FromPGTime(end)
	return &s, nil
}

// Queries

func getPatient(ctx context.Context, q querier, id uuid.UUID) (*Patient, error) {
	row := q.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

// getSlotForUpdate pins the slot row for the rest of the transaction,
// serializing concurrent bookings of the same slot.
func getSlotForUpdate(ctx context.Context, q querier, id uuid.UUID) (*schedule.Slot, error) {
	row := q.QueryRow(ctx, `
		SELECT id, provider_id, slot_date, start_time, end_time, created_by, created_at
		FROM slots
		WHERE id = $1
		FOR UPDATE
	`, id)
	return scanSlot(row)
}

func slotHasLiveAppointment(ctx context.Context, q querier, slotID uuid.UUID) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE slot_id = $1 AND status <> 'CANCELLED'
		)
	`, slotID).Scan(&exists)
	return exists, err
}

// patientOverlapExists applies the half-open interval test against the
// patient's live appointments on a given day. exclude removes one
// appointment from consideration (the source of a reschedule).
func patientOverlapExists(ctx context.Context, q querier, patientID uuid.UUID, slot *schedule.Slot, exclude *uuid.UUID) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE patient_id = $1
			  AND appt_date = $2
			  AND status <> 'CANCELLED'
			  AND start_time < $3
			  AND end_time > $4
			  AND ($5::uuid IS NULL OR id <> $5)
		)
	`, patientID, schedule.ToPGDate(slot.Date), schedule.ToPGTime(slot.End), schedule.ToPGTime(slot.Start), exclude).Scan(&exists)
	return exists, err
}

func insertAppointment(ctx context.Context, q querier, a Appointment) (*Appointment, error) {
	row := q.QueryRow(ctx, `
		INSERT INTO appointments
			(id, patient_id, provider_id, slot_id, appt_date, start_time, end_time,
			 status, meeting_link, session_ref, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, '', $9, $10, now(), now())
		RETURNING `+appointmentColumns+`
	`, a.ID, a.PatientID, a.ProviderID, a.SlotID,
		schedule.ToPGDate(a.Date), schedule.ToPGTime(a.Start), schedule.ToPGTime(a.End),
		a.Status, a.SessionRef, a.CreatedBy)

	created, err := scanAppointment(row)
	if err != nil {
		// The partial unique index on live appointments per slot is the
		// backstop for races the FOR UPDATE lock did not cover.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrSlotUnavailable
		}
		return nil, err
	}
	return created, nil
}

func getAppointment(ctx context.Context, q querier, id uuid.UUID) (*Appointment, error) {
	row := q.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func getAppointmentForUpdate(ctx context.Context, q querier, id uuid.UUID) (*Appointment, error) {
	row := q.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, id)
	return scanAppointment(row)
}

// updateAppointmentStatus is a compare-and-swap: the row only moves to
// the target status if it currently sits in a state the lifecycle
// allows. Zero rows means the appointment is gone or the transition is
// illegal; callers disambiguate.
func updateAppointmentStatus(ctx context.Context, q querier, id uuid.UUID, to Status) (*Appointment, error) {
	row := q.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = ANY($3)
		RETURNING `+appointmentColumns+`
	`, id, to, statusesAllowing(to))
	return scanAppointment(row)
}

func setMeetingLink(ctx context.Context, q querier, id uuid.UUID, link string) error {
	_, err := q.Exec(ctx, `
		UPDATE appointments
		SET meeting_link = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, link)
	if err != nil {
		return fmt.Errorf("set meeting link: %w", err)
	}
	return nil
}

func insertSessionRecord(ctx context.Context, q querier, rec SessionRecord) error {
	_, err := q.Exec(ctx, `
		INSERT INTO session_records (id, appointment_id, patient_id, content, recorded_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
	`, rec.ID, rec.AppointmentID, rec.PatientID, rec.Content, rec.RecordedBy)
	return err
}

func updateSessionRecord(ctx context.Context, q querier, id uuid.UUID, content string, recordedBy uuid.UUID) error {
	_, err := q.Exec(ctx, `
		UPDATE session_records
		SET content = $2,
		    recorded_by = $3,
		    updated_at = now()
		WHERE id = $1
	`, id, content, recordedBy)
	return err
}

func setSessionRef(ctx context.Context, q querier, appointmentID, sessionID uuid.UUID) error {
	_, err := q.Exec(ctx, `
		UPDATE appointments
		SET session_ref = $2,
		    updated_at = now()
		WHERE id = $1
	`, appointmentID, sessionID)
	return err
}

func specialistExists(ctx context.Context, q querier, id uuid.UUID) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM specialists WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func insertReferral(ctx context.Context, q querier, ref Referral) (*Referral, error) {
	row := q.QueryRow(ctx, `
		INSERT INTO referrals (id, appointment_id, patient_id, specialist_id, note, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, appointment_id, patient_id, specialist_id, note, created_at
	`, ref.ID, ref.AppointmentID, ref.PatientID, ref.SpecialistID, ref.Note)

	var out Referral
	if err := row.Scan(&out.ID, &out.AppointmentID, &out.PatientID, &out.SpecialistID, &out.Note, &out.CreatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

func listAppointmentsByPatient(ctx context.Context, q querier, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	rows, err := q.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY appt_date, start_time, id
		LIMIT $2 OFFSET $3
	`, patientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
