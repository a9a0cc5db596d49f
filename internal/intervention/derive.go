package intervention

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/scheduling-service/internal/schedule"
)

// beforeMoment compares two timeline positions by (date, start time)
// only. Closure-versus-visit comparisons are deliberately not
// id-tie-broken: a closure at the same instant as a visit counts as
// neither before nor after it.
func beforeMoment(aDate time.Time, aStart schedule.TimeOfDay, bDate time.Time, bStart schedule.TimeOfDay) bool {
	if !aDate.Equal(bDate) {
		return aDate.Before(bDate)
	}
	return aStart < bStart
}

// Derive computes the intervention and session numbers for the live
// visit identified by targetID, or for the patient's next
// not-yet-created appointment when targetID is nil. History must be
// ordered; see History. Pure function over already-committed data;
// results must never be cached across writes.
func Derive(h History, targetID *uuid.UUID) (Derivation, error) {
	if targetID == nil {
		return deriveNext(h), nil
	}

	targetIdx := -1
	for i, v := range h.Visits {
		if v.ID == *targetID {
			targetIdx = i
			break
		}
	}
	if targetIdx < 0 {
		return Derivation{}, ErrAppointmentNotFound
	}

	t := h.Visits[targetIdx]

	// Closures whose appointment sits strictly before the target.
	k := 0
	var last *ClosureRef
	for i := range h.Closures {
		c := h.Closures[i]
		if beforeMoment(c.Date, c.Start, t.Date, t.Start) {
			k++
			last = &h.Closures[i]
		}
	}

	// Sessions: live visits since the last closure, up to and
	// including the target in timeline order.
	session := 0
	for i := 0; i <= targetIdx; i++ {
		v := h.Visits[i]
		if last == nil || beforeMoment(last.Date, last.Start, v.Date, v.Start) {
			session++
		}
	}

	return Derivation{
		InterventionNumber: k + 1,
		SessionNumber:      session,
		GlobalPosition:     targetIdx + 1,
		LimitReached:       session > SessionsPerIntervention,
	}, nil
}

// deriveNext positions the appointment that would be booked now: one
// past the end of the timeline. When the next session would exceed the
// course length, LimitReached tells the caller to require a closure
// before booking; the count itself is reported unclamped.
func deriveNext(h History) Derivation {
	k := len(h.Closures)

	since := len(h.Visits)
	if k > 0 {
		last := h.Closures[k-1]
		since = 0
		for _, v := range h.Visits {
			if beforeMoment(last.Date, last.Start, v.Date, v.Start) {
				since++
			}
		}
	}

	session := since + 1
	return Derivation{
		InterventionNumber: k + 1,
		SessionNumber:      session,
		GlobalPosition:     len(h.Visits),
		LimitReached:       session > SessionsPerIntervention,
	}
}
