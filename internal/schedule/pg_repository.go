package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DB is the narrow slice of pgxpool.Pool the repository needs, so
// pgxmock pools plug in for tests.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	db DB
}

func NewPgRepository(db DB) *PgRepository {
	return &PgRepository{db: db}
}

// Helpers

func ToPGTime(t TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: int64(t) * 60 * 1_000_000, Valid: true}
}

func FromPGTime(t pgtype.Time) TimeOfDay {
	return TimeOfDay(t.Microseconds / (60 * 1_000_000))
}

func ToPGDate(d time.Time) pgtype.Date {
	return pgtype.Date{Time: DateOnly(d), Valid: true}
}

func scanSlot(row pgx.Row) (*Slot, error) {
	var (
		s          Slot
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
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	s.Date = DateOnly(date.Time)
	s.Start = FromPGTime(start)
	s.End = FromPGTime(end)
	return &s, nil
}

// Interface methods

func (r *PgRepository) InsertSlotIfFree(ctx context.Context, s Slot) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO slots (id, provider_id, slot_date, start_time, end_time, created_by, created_at)
		SELECT $1, $2, $3, $4, $5, $6, now()
		WHERE NOT EXISTS (
			SELECT 1 FROM slots
			WHERE provider_id = $2
			  AND slot_date = $3
			  AND start_time < $5
			  AND end_time > $4
		)
	`, s.ID, s.ProviderID, ToPGDate(s.Date), ToPGTime(s.Start), ToPGTime(s.End), s.CreatedBy)
	if err != nil {
		// A concurrent generator run can slip past the NOT EXISTS guard;
		// the (provider, date, start) unique key catches it.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, nil
		}
		return false, err
	}

	return tag.RowsAffected() == 1, nil
}

func (r *PgRepository) GetSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, provider_id, slot_date, start_time, end_time, created_by, created_at
		FROM slots
		WHERE id = $1
	`, id)
	return scanSlot(row)
}

func (r *PgRepository) ListSlots(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]Slot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, provider_id, slot_date, start_time, end_time, created_by, created_at
		FROM slots
		WHERE provider_id = $1
		  AND slot_date >= $2
		  AND slot_date <= $3
		ORDER BY slot_date, start_time
	`, providerID, ToPGDate(from), ToPGDate(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) DeleteSlotIfUnreferenced(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM slots s
		WHERE s.id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM appointments a
			WHERE a.slot_id = s.id AND a.status <> 'CANCELLED'
		  )
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Nothing deleted: either the slot is gone or it is still booked.
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM slots WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrSlotHasAppointments
	}
	return ErrSlotNotFound
}
