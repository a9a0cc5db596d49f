package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a clock time expressed as minutes since midnight. Slot
// arithmetic stays in integer minutes so overlap checks cannot pick up
// timezone or DST artifacts.
type TimeOfDay int

const minutesPerDay = 24 * 60

var ErrInvalidTimeOfDay = errors.New("invalid time of day")

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS"; seconds are rejected
// unless zero since slots are minute-grained. The whole string must be
// part of the clock value; trailing garbage is an error.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		if p == "" || len(p) > 2 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
		}
		for _, c := range p {
			if c < '0' || c > '9' {
				return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
			}
		}
		n, _ := strconv.Atoi(p)
		nums[i] = n
	}
	h, m, sec := nums[0], nums[1], nums[2]
	if h > 23 || m > 59 || sec != 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	return TimeOfDay(h*60 + m), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

func (t TimeOfDay) valid() bool {
	return t >= 0 && t <= minutesPerDay
}

// At anchors the clock time onto a calendar date in the given location.
func (t TimeOfDay) At(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, int(t)/60, int(t)%60, 0, 0, loc)
}

// overlaps is the half-open interval test used everywhere slots and
// appointments are compared: [aStart,aEnd) intersects [bStart,bEnd).
func overlaps(aStart, aEnd, bStart, bEnd TimeOfDay) bool {
	return aStart < bEnd && aEnd > bStart
}

// ClockRange is a half-open window within one day.
type ClockRange struct {
	Start TimeOfDay
	End   TimeOfDay
}

func (r ClockRange) valid() bool {
	return r.Start.valid() && r.End.valid() && r.Start < r.End
}

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	From time.Time
	To   time.Time
}

func (r DateRange) valid() bool {
	return !r.From.IsZero() && !r.To.IsZero() && !r.From.After(r.To)
}

// DateOnly strips the clock portion, keeping the calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
