package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *PgRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewPgRepository(mock)
}

func TestPgTimeRoundTrip(t *testing.T) {
	for _, v := range []TimeOfDay{0, 9 * 60, 23*60 + 59} {
		assert.Equal(t, v, FromPGTime(ToPGTime(v)))
	}
}

func TestInsertSlotIfFree(t *testing.T) {
	mock, repo := newMockRepo(t)

	slot := Slot{
		ID:         uuid.New(),
		ProviderID: uuid.New(),
		Date:       time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		Start:      9 * 60,
		End:        10 * 60,
		CreatedBy:  uuid.New(),
	}

	mock.ExpectExec("INSERT INTO slots").
		WithArgs(slot.ID, slot.ProviderID, ToPGDate(slot.Date), ToPGTime(slot.Start), ToPGTime(slot.End), slot.CreatedBy).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	inserted, err := repo.InsertSlotIfFree(context.Background(), slot)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertSlotIfFreeSkipsOverlap(t *testing.T) {
	mock, repo := newMockRepo(t)

	slot := Slot{ID: uuid.New(), ProviderID: uuid.New(), Date: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), Start: 9 * 60, End: 10 * 60, CreatedBy: uuid.New()}

	mock.ExpectExec("INSERT INTO slots").
		WithArgs(slot.ID, slot.ProviderID, ToPGDate(slot.Date), ToPGTime(slot.Start), ToPGTime(slot.End), slot.CreatedBy).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	inserted, err := repo.InsertSlotIfFree(context.Background(), slot)
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestInsertSlotIfFreeUniqueViolationIsNotAnError(t *testing.T) {
	mock, repo := newMockRepo(t)

	slot := Slot{ID: uuid.New(), ProviderID: uuid.New(), Date: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), Start: 9 * 60, End: 10 * 60, CreatedBy: uuid.New()}

	mock.ExpectExec("INSERT INTO slots").
		WithArgs(slot.ID, slot.ProviderID, ToPGDate(slot.Date), ToPGTime(slot.Start), ToPGTime(slot.End), slot.CreatedBy).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	inserted, err := repo.InsertSlotIfFree(context.Background(), slot)
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestGetSlotByID(t *testing.T) {
	mock, repo := newMockRepo(t)

	id := uuid.New()
	providerID := uuid.New()
	createdBy := uuid.New()
	date := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, provider_id, slot_date").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "provider_id", "slot_date", "start_time", "end_time", "created_by", "created_at"}).
			AddRow(id, providerID, ToPGDate(date), ToPGTime(9*60), ToPGTime(10*60), createdBy, time.Now()))

	slot, err := repo.GetSlotByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, slot.ID)
	assert.Equal(t, providerID, slot.ProviderID)
	assert.True(t, slot.Date.Equal(date))
	assert.Equal(t, TimeOfDay(9*60), slot.Start)
	assert.Equal(t, TimeOfDay(10*60), slot.End)
}

func TestGetSlotByIDNotFound(t *testing.T) {
	mock, repo := newMockRepo(t)

	id := uuid.New()
	mock.ExpectQuery("SELECT id, provider_id, slot_date").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "provider_id", "slot_date", "start_time", "end_time", "created_by", "created_at"}))

	_, err := repo.GetSlotByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestListSlots(t *testing.T) {
	mock, repo := newMockRepo(t)

	providerID := uuid.New()
	from := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, provider_id, slot_date").
		WithArgs(providerID, ToPGDate(from), ToPGDate(to)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "provider_id", "slot_date", "start_time", "end_time", "created_by", "created_at"}).
			AddRow(uuid.New(), providerID, ToPGDate(from), ToPGTime(9*60), ToPGTime(10*60), uuid.New(), time.Now()).
			AddRow(uuid.New(), providerID, ToPGDate(from), ToPGTime(10*60), ToPGTime(11*60), uuid.New(), time.Now()))

	slots, err := repo.ListSlots(context.Background(), providerID, from, to)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, TimeOfDay(9*60), slots[0].Start)
	assert.Equal(t, TimeOfDay(10*60), slots[1].Start)
}

func TestDeleteSlotIfUnreferenced(t *testing.T) {
	mock, repo := newMockRepo(t)

	id := uuid.New()
	mock.ExpectExec("DELETE FROM slots").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	assert.NoError(t, repo.DeleteSlotIfUnreferenced(context.Background(), id))
}

func TestDeleteSlotIfUnreferencedStillBooked(t *testing.T) {
	mock, repo := newMockRepo(t)

	id := uuid.New()
	mock.ExpectExec("DELETE FROM slots").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	err := repo.DeleteSlotIfUnreferenced(context.Background(), id)
	assert.ErrorIs(t, err, ErrSlotHasAppointments)
}

func TestDeleteSlotIfUnreferencedMissing(t *testing.T) {
	mock, repo := newMockRepo(t)

	id := uuid.New()
	mock.ExpectExec("DELETE FROM slots").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	err := repo.DeleteSlotIfUnreferenced(context.Background(), id)
	assert.ErrorIs(t, err, ErrSlotNotFound)
}
