package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Slot is one bookable window for a provider on a calendar day. Slots
// for the same provider and day never overlap.
type Slot struct {
	ID         uuid.UUID
	ProviderID uuid.UUID
	Date       time.Time
	Start      TimeOfDay
	End        TimeOfDay
	CreatedBy  uuid.UUID
	CreatedAt  time.Time
}

// WeeklyTemplate lists the clock windows a provider works per weekday.
type WeeklyTemplate map[time.Weekday][]ClockRange

// NormalizeTemplate resolves weekday-name keys and validates each
// window. Duplicate names folding to the same weekday are merged.
func NormalizeTemplate(in map[string][]ClockRange) (WeeklyTemplate, error) {
	out := make(WeeklyTemplate, len(in))
	for name, ranges := range in {
		wd, err := ParseWeekday(name)
		if err != nil {
			return nil, err
		}
		for _, r := range ranges {
			if !r.valid() {
				return nil, fmt.Errorf("%w: window %s-%s on %s", ErrInvalidClockRange, r.Start, r.End, name)
			}
		}
		out[wd] = append(out[wd], ranges...)
	}
	return out, nil
}
