package intervention

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/scheduling-service/internal/schedule"
)

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func clock(s string) schedule.TimeOfDay {
	t, err := schedule.ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// buildHistory lays out visits at 10:00 on consecutive days starting
// 2024-03-04 and returns them with their ids.
func buildHistory(n int) ([]VisitRef, []uuid.UUID) {
	visits := make([]VisitRef, 0, n)
	ids := make([]uuid.UUID, 0, n)
	start := day("2024-03-04")
	for i := 0; i < n; i++ {
		id := uuid.New()
		visits = append(visits, VisitRef{
			ID:    id,
			Date:  start.AddDate(0, 0, i),
			Start: clock("10:00"),
		})
		ids = append(ids, id)
	}
	return visits, ids
}

func TestDeriveEmptyHistoryBaseline(t *testing.T) {
	got, err := Derive(History{}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, got.InterventionNumber)
	assert.Equal(t, 1, got.SessionNumber)
	assert.Equal(t, 0, got.GlobalPosition)
	assert.False(t, got.LimitReached)
}

func TestDeriveNextCountsSessionsWithinCourse(t *testing.T) {
	visits, _ := buildHistory(2)

	got, err := Derive(History{Visits: visits}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, got.InterventionNumber)
	assert.Equal(t, 3, got.SessionNumber)
	assert.Equal(t, 2, got.GlobalPosition)
	assert.False(t, got.LimitReached)
}

func TestDeriveNextLimitReachedAfterFourSessions(t *testing.T) {
	visits, _ := buildHistory(4)

	got, err := Derive(History{Visits: visits}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, got.InterventionNumber)
	assert.Equal(t, 5, got.SessionNumber)
	assert.True(t, got.LimitReached)
}

func TestDeriveNextAfterClosureStartsNewCourse(t *testing.T) {
	visits, ids := buildHistory(4)
	closures := []ClosureRef{{
		ClosureID:     uuid.New(),
		AppointmentID: ids[3],
		Date:          visits[3].Date,
		Start:         visits[3].Start,
	}}

	got, err := Derive(History{Visits: visits, Closures: closures}, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, got.InterventionNumber)
	assert.Equal(t, 1, got.SessionNumber)
	assert.Equal(t, 4, got.GlobalPosition)
	assert.False(t, got.LimitReached)
}

func TestDeriveTargetPositions(t *testing.T) {
	visits, ids := buildHistory(6)
	// Course one closed at the fourth visit.
	closures := []ClosureRef{{
		ClosureID:     uuid.New(),
		AppointmentID: ids[3],
		Date:          visits[3].Date,
		Start:         visits[3].Start,
	}}
	h := History{Visits: visits, Closures: closures}

	tests := []struct {
		name         string
		target       uuid.UUID
		intervention int
		session      int
		global       int
	}{
		{"first visit", ids[0], 1, 1, 1},
		{"fourth visit", ids[3], 1, 4, 4},
		{"fifth visit opens course two", ids[4], 2, 1, 5},
		{"sixth visit", ids[5], 2, 2, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Derive(h, &tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.intervention, got.InterventionNumber)
			assert.Equal(t, tt.session, got.SessionNumber)
			assert.Equal(t, tt.global, got.GlobalPosition)
		})
	}
}

func TestDeriveClosureAtSameMomentDoesNotSplitThatVisit(t *testing.T) {
	// The closure sits on the fourth visit. The fourth visit itself
	// still belongs to course one; only later visits start course two.
	visits, ids := buildHistory(4)
	closures := []ClosureRef{{
		ClosureID:     uuid.New(),
		AppointmentID: ids[3],
		Date:          visits[3].Date,
		Start:         visits[3].Start,
	}}

	got, err := Derive(History{Visits: visits, Closures: closures}, &ids[3])
	require.NoError(t, err)

	assert.Equal(t, 1, got.InterventionNumber)
	assert.Equal(t, 4, got.SessionNumber)
}

func TestDeriveUnknownTarget(t *testing.T) {
	visits, _ := buildHistory(2)
	unknown := uuid.New()

	_, err := Derive(History{Visits: visits}, &unknown)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestDeriveMultipleClosures(t *testing.T) {
	visits, ids := buildHistory(9)
	closures := []ClosureRef{
		{ClosureID: uuid.New(), AppointmentID: ids[2], Date: visits[2].Date, Start: visits[2].Start},
		{ClosureID: uuid.New(), AppointmentID: ids[6], Date: visits[6].Date, Start: visits[6].Start},
	}
	h := History{Visits: visits, Closures: closures}

	got, err := Derive(h, &ids[8])
	require.NoError(t, err)
	assert.Equal(t, 3, got.InterventionNumber)
	assert.Equal(t, 2, got.SessionNumber)
	assert.Equal(t, 9, got.GlobalPosition)

	next, err := Derive(h, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, next.InterventionNumber)
	assert.Equal(t, 3, next.SessionNumber)
}

func TestDeriveIsStableAcrossCalls(t *testing.T) {
	visits, ids := buildHistory(5)
	closures := []ClosureRef{{
		ClosureID:     uuid.New(),
		AppointmentID: ids[1],
		Date:          visits[1].Date,
		Start:         visits[1].Start,
	}}
	h := History{Visits: visits, Closures: closures}

	first, err := Derive(h, &ids[4])
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := Derive(h, &ids[4])
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestDeriveSameDayOrderedByStartTime(t *testing.T) {
	d := day("2024-05-10")
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	visits := []VisitRef{
		{ID: ids[0], Date: d, Start: clock("09:00")},
		{ID: ids[1], Date: d, Start: clock("11:00")},
		{ID: ids[2], Date: d, Start: clock("15:00")},
	}
	// Closed at the morning visit: the later two open course two.
	closures := []ClosureRef{{
		ClosureID:     uuid.New(),
		AppointmentID: ids[0],
		Date:          d,
		Start:         clock("09:00"),
	}}
	h := History{Visits: visits, Closures: closures}

	got, err := Derive(h, &ids[2])
	require.NoError(t, err)
	assert.Equal(t, 2, got.InterventionNumber)
	assert.Equal(t, 2, got.SessionNumber)
	assert.Equal(t, 3, got.GlobalPosition)
}
