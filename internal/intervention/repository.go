package intervention

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/clinicore/scheduling-service/internal/schedule"
)

// DB mirrors the pgxpool methods the repository uses; pgxmock pools
// satisfy it.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository interface {
	LoadHistory(ctx context.Context, patientID uuid.UUID) (History, error)
	InsertClosure(ctx context.Context, c Closure) (*Closure, error)
	GetAppointmentPatient(ctx context.Context, appointmentID uuid.UUID) (uuid.UUID, error)
}

type PgRepository struct {
	db DB
}

func NewPgRepository(db DB) *PgRepository {
	return &PgRepository{db: db}
}

func (r *PgRepository) LoadHistory(ctx context.Context, patientID uuid.UUID) (History, error) {
	var h History

	rows, err := r.db.Query(ctx, `
		SELECT id, appt_date, start_time
		FROM appointments
		WHERE patient_id = $1
		  AND status IN ('SCHEDULED', 'ATTENDED')
		ORDER BY appt_date, start_time, id
	`, patientID)
	if err != nil {
		return History{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			v     VisitRef
			date  pgtype.Date
			start pgtype.Time
		)
		if err := rows.Scan(&v.ID, &date, &start); err != nil {
			return History{}, err
		}
		v.Date = schedule.DateOnly(date.Time)
		v.Start = schedule.FromPGTime(start)
		h.Visits = append(h.Visits, v)
	}
	if err := rows.Err(); err != nil {
		return History{}, err
	}
	rows.Close()

	closureRows, err := r.db.Query(ctx, `
		SELECT c.id, c.appointment_id, a.appt_date, a.start_time
		FROM intervention_closures c
		JOIN appointments a ON a.id = c.appointment_id
		WHERE c.patient_id = $1
		ORDER BY a.appt_date, a.start_time, a.id
	`, patientID)
	if err != nil {
		return History{}, err
	}
	defer closureRows.Close()

	for closureRows.Next() {
		var (
			c     ClosureRef
			date  pgtype.Date
			start pgtype.Time
		)
		if err := closureRows.Scan(&c.ClosureID, &c.AppointmentID, &date, &start); err != nil {
			return History{}, err
		}
		c.Date = schedule.DateOnly(date.Time)
		c.Start = schedule.FromPGTime(start)
		h.Closures = append(h.Closures, c)
	}
	if err := closureRows.Err(); err != nil {
		return History{}, err
	}

	return h, nil
}

func (r *PgRepository) InsertClosure(ctx context.Context, c Closure) (*Closure, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO intervention_closures (id, appointment_id, patient_id, note, closed_by, closed_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, appointment_id, patient_id, note, closed_by, closed_at
	`, c.ID, c.AppointmentID, c.PatientID, c.Note, c.ClosedBy)

	var out Closure
	err := row.Scan(&out.ID, &out.AppointmentID, &out.PatientID, &out.Note, &out.ClosedBy, &out.ClosedAt)
	if err != nil {
		// unique(appointment_id) is the idempotency guard.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrAlreadyClosed
		}
		return nil, err
	}
	return &out, nil
}

func (r *PgRepository) GetAppointmentPatient(ctx context.Context, appointmentID uuid.UUID) (uuid.UUID, error) {
	var patientID uuid.UUID
	err := r.db.QueryRow(ctx, `
		SELECT patient_id FROM appointments WHERE id = $1
	`, appointmentID).Scan(&patientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrAppointmentNotFound
		}
		return uuid.Nil, err
	}
	return patientID, nil
}
