package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/scheduling-service/internal/risk"
	"github.com/clinicore/scheduling-service/internal/schedule"
)

func newLifecycleFixture(t *testing.T, assessor risk.Assessor) (*fixture, *Lifecycle) {
	t.Helper()
	f := newFixture(t, BookerConfig{})
	return f, NewLifecycle(NewStore(f.mock), assessor, time.Second, zerolog.Nop())
}

func TestRecordSessionCreatesNoteAndMarksAttended(t *testing.T) {
	f, lc := newLifecycleFixture(t, nil)

	apptID := uuid.New()

	f.mock.ExpectBegin()
	f.mock.ExpectQuery("FROM appointments").
		WithArgs(apptID).
		WillReturnRows(srcRowWithStatus(f, apptID, StatusScheduled))
	f.mock.ExpectExec("INSERT INTO session_records").
		WithArgs(pgxmock.AnyArg(), apptID, f.patientID, "patient doing well", f.actorID).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	f.mock.ExpectExec("SET session_ref").
		WithArgs(apptID, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	f.mock.ExpectQuery("UPDATE appointments").
		WithArgs(apptID, StatusAttended, pgxmock.AnyArg()).
		WillReturnRows(srcRowWithStatus(f, apptID, StatusAttended))
	f.mock.ExpectCommit()

	appt, err := lc.RecordSession(context.Background(), apptID, "patient doing well", f.actorID)
	require.NoError(t, err)
	assert.Equal(t, StatusAttended, appt.Status)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRecordSessionUpdatesCarriedOverNote(t *testing.T) {
	f, lc := newLifecycleFixture(t, nil)

	apptID := uuid.New()
	sessionRef := uuid.New()

	f.mock.ExpectBegin()
	f.mock.ExpectQuery("FROM appointments").
		WithArgs(apptID).
		WillReturnRows(pgxmock.NewRows(apptCols).
			AddRow(apptID, f.patientID, f.provider, f.slotID, schedule.ToPGDate(f.date),
				schedule.ToPGTime(9*60), schedule.ToPGTime(10*60), StatusScheduled, "", &sessionRef, f.actorID, time.Now(), time.Now()))
	f.mock.ExpectExec("UPDATE session_records").
		WithArgs(sessionRef, "revised note", f.actorID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	f.mock.ExpectQuery("UPDATE appointments").
		WithArgs(apptID, StatusAttended, pgxmock.AnyArg()).
		WillReturnRows(srcRowWithStatus(f, apptID, StatusAttended))
	f.mock.ExpectCommit()

	_, err := lc.RecordSession(context.Background(), apptID, "revised note", f.actorID)
	require.NoError(t, err)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRecordSessionRejectsNonScheduled(t *testing.T) {
	f, lc := newLifecycleFixture(t, nil)

	apptID := uuid.New()
	f.mock.ExpectBegin()
	f.mock.ExpectQuery("FROM appointments").
		WithArgs(apptID).
		WillReturnRows(srcRowWithStatus(f, apptID, StatusCancelled))
	f.mock.ExpectRollback()

	_, err := lc.RecordSession(context.Background(), apptID, "note", f.actorID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMarkNoShow(t *testing.T) {
	f, lc := newLifecycleFixture(t, nil)

	apptID := uuid.New()
	f.mock.ExpectQuery("UPDATE appointments").
		WithArgs(apptID, StatusNoShow, pgxmock.AnyArg()).
		WillReturnRows(srcRowWithStatus(f, apptID, StatusNoShow))

	appt, err := lc.MarkNoShow(context.Background(), apptID)
	require.NoError(t, err)
	assert.Equal(t, StatusNoShow, appt.Status)
}

func TestCancelFromNoShow(t *testing.T) {
	f, lc := newLifecycleFixture(t, nil)

	apptID := uuid.New()
	f.mock.ExpectQuery("UPDATE appointments").
		WithArgs(apptID, StatusCancelled, pgxmock.AnyArg()).
		WillReturnRows(srcRowWithStatus(f, apptID, StatusCancelled))

	appt, err := lc.Cancel(context.Background(), apptID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, appt.Status)
}

func TestTransitionDisambiguatesZeroRows(t *testing.T) {
	f, lc := newLifecycleFixture(t, nil)

	apptID := uuid.New()

	// CAS matched nothing; the reload finds the appointment in a
	// terminal state, so the transition is illegal rather than missing.
	f.mock.ExpectQuery("UPDATE appointments").
		WithArgs(apptID, StatusNoShow, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(apptCols))
	f.mock.ExpectQuery("FROM appointments").
		WithArgs(apptID).
		WillReturnRows(srcRowWithStatus(f, apptID, StatusReferred))

	_, err := lc.MarkNoShow(context.Background(), apptID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransitionMissingAppointment(t *testing.T) {
	f, lc := newLifecycleFixture(t, nil)

	apptID := uuid.New()
	f.mock.ExpectQuery("UPDATE appointments").
		WithArgs(apptID, StatusNoShow, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(apptCols))
	f.mock.ExpectQuery("FROM appointments").
		WithArgs(apptID).
		WillReturnRows(pgxmock.NewRows(apptCols))

	_, err := lc.MarkNoShow(context.Background(), apptID)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestReferHighRiskPatient(t *testing.T) {
	f, _ := newLifecycleFixture(t, nil)
	specialistID := uuid.New()
	apptID := uuid.New()

	lc := NewLifecycle(NewStore(f.mock), risk.Static{f.patientID: true}, time.Second, zerolog.Nop())

	f.mock.ExpectQuery("FROM appointments").
		WithArgs(apptID).
		WillReturnRows(srcRowWithStatus(f, apptID, StatusAttended))
	f.mock.ExpectBegin()
	f.mock.ExpectQuery("SELECT EXISTS").
		WithArgs(specialistID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	f.mock.ExpectQuery("UPDATE appointments").
		WithArgs(apptID, StatusReferred, pgxmock.AnyArg()).
		WillReturnRows(srcRowWithStatus(f, apptID, StatusReferred))
	f.mock.ExpectQuery("INSERT INTO referrals").
		WithArgs(pgxmock.AnyArg(), apptID, f.patientID, specialistID, "seek specialist care").
		WillReturnRows(pgxmock.NewRows([]string{"id", "appointment_id", "patient_id", "specialist_id", "note", "created_at"}).
			AddRow(uuid.New(), apptID, f.patientID, specialistID, "seek specialist care", time.Now()))
	f.mock.ExpectCommit()

	ref, err := lc.Refer(context.Background(), apptID, specialistID, "seek specialist care", f.actorID)
	require.NoError(t, err)
	assert.Equal(t, specialistID, ref.SpecialistID)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestReferNotHighRisk(t *testing.T) {
	f, lc := newLifecycleFixture(t, risk.Denied{})
	apptID := uuid.New()

	f.mock.ExpectQuery("FROM appointments").
		WithArgs(apptID).
		WillReturnRows(srcRowWithStatus(f, apptID, StatusScheduled))

	_, err := lc.Refer(context.Background(), apptID, uuid.New(), "", f.actorID)
	assert.ErrorIs(t, err, ErrNotHighRisk)
}

// erroringAssessor simulates an unreachable risk service.
type erroringAssessor struct{}

func (erroringAssessor) IsHighRisk(context.Context, uuid.UUID) (bool, error) {
	return false, errors.New("risk service unreachable")
}

func TestReferFailsClosedOnAssessorError(t *testing.T) {
	f, lc := newLifecycleFixture(t, erroringAssessor{})
	apptID := uuid.New()

	f.mock.ExpectQuery("FROM appointments").
		WithArgs(apptID).
		WillReturnRows(srcRowWithStatus(f, apptID, StatusScheduled))

	_, err := lc.Refer(context.Background(), apptID, uuid.New(), "", f.actorID)
	assert.ErrorIs(t, err, ErrNotHighRisk)
}

func TestReferRejectsTerminalStatus(t *testing.T) {
	f, lc := newLifecycleFixture(t, nil)
	apptID := uuid.New()

	f.mock.ExpectQuery("FROM appointments").
		WithArgs(apptID).
		WillReturnRows(srcRowWithStatus(f, apptID, StatusCancelled))

	_, err := lc.Refer(context.Background(), apptID, uuid.New(), "", f.actorID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestReferUnknownSpecialist(t *testing.T) {
	f, _ := newLifecycleFixture(t, nil)
	apptID := uuid.New()
	specialistID := uuid.New()

	lc := NewLifecycle(NewStore(f.mock), risk.Static{f.patientID: true}, time.Second, zerolog.Nop())

	f.mock.ExpectQuery("FROM appointments").
		WithArgs(apptID).
		WillReturnRows(srcRowWithStatus(f, apptID, StatusScheduled))
	f.mock.ExpectBegin()
	f.mock.ExpectQuery("SELECT EXISTS").
		WithArgs(specialistID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	f.mock.ExpectRollback()

	_, err := lc.Refer(context.Background(), apptID, specialistID, "", f.actorID)
	assert.ErrorIs(t, err, ErrSpecialistNotFound)
}

func TestCanTransitionTable(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusScheduled, StatusAttended},
		{StatusScheduled, StatusNoShow},
		{StatusScheduled, StatusCancelled},
		{StatusScheduled, StatusReferred},
		{StatusNoShow, StatusCancelled},
		{StatusAttended, StatusReferred},
	}
	for _, tt := range allowed {
		assert.True(t, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}

	denied := []struct{ from, to Status }{
		{StatusCancelled, StatusScheduled},
		{StatusReferred, StatusScheduled},
		{StatusAttended, StatusScheduled},
		{StatusAttended, StatusNoShow},
		{StatusNoShow, StatusAttended},
		{StatusNoShow, StatusScheduled},
		{StatusCancelled, StatusCancelled},
	}
	for _, tt := range denied {
		assert.False(t, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestStatusesAllowing(t *testing.T) {
	assert.ElementsMatch(t, []string{"SCHEDULED"}, statusesAllowing(StatusAttended))
	assert.ElementsMatch(t, []string{"SCHEDULED"}, statusesAllowing(StatusNoShow))
	assert.ElementsMatch(t, []string{"SCHEDULED", "NO_SHOW"}, statusesAllowing(StatusCancelled))
	assert.ElementsMatch(t, []string{"SCHEDULED", "ATTENDED"}, statusesAllowing(StatusReferred))
}
