package booking

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrSpecialistNotFound  = errors.New("specialist not found")
	ErrSlotUnavailable     = errors.New("slot already has a live appointment")
	ErrPatientOverlap      = errors.New("patient has an overlapping appointment")
	ErrSlotContended       = errors.New("slot is currently being booked, please retry")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrNotHighRisk         = errors.New("patient does not meet the high-risk predicate")
)

// DB is what Booker and Lifecycle need from pgxpool.Pool; pgxmock
// pools satisfy it for tests.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// querier is satisfied by both DB and pgx.Tx, so the same SQL helpers
// run inside and outside transactions.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store exposes the appointment read path shared by the services and
// the API layer.
type Store struct {
	db DB
}

func NewStore(db DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return getAppointment(ctx, s.db, id)
}

func (s *Store) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return getPatient(ctx, s.db, id)
}

func (s *Store) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	if limit <= 0 {
		limit = 20 // default
	}
	if limit > 100 {
		limit = 100 // max
	}
	if offset < 0 {
		offset = 0
	}
	return listAppointmentsByPatient(ctx, s.db, patientID, limit, offset)
}
