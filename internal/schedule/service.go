package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	MinSlotMinutes = 15
	MaxSlotMinutes = 120
)

type Service struct {
	repo            Repository
	loc             *time.Location
	allowPastDelete bool
	log             zerolog.Logger
}

func NewService(repo Repository, loc *time.Location, allowPastDelete bool, log zerolog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repo:            repo,
		loc:             loc,
		allowPastDelete: allowPastDelete,
		log:             log,
	}
}

// Generate expands a weekly template over a date range into discrete
// slots. Each window is partitioned into durationMinutes pieces from
// its start; a trailing remainder shorter than the duration is dropped.
// Candidates that overlap an existing slot for the same provider and
// day are skipped, so re-running with the same arguments creates
// nothing new. Returns the number of slots created.
func (s *Service) Generate(ctx context.Context, providerID uuid.UUID, r DateRange, durationMinutes int, tmpl WeeklyTemplate, actorID uuid.UUID) (int, error) {
	if durationMinutes < MinSlotMinutes || durationMinutes > MaxSlotMinutes {
		return 0, fmt.Errorf("%w: %d minutes", ErrInvalidDuration, durationMinutes)
	}
	if !r.valid() {
		return 0, ErrInvalidDateRange
	}

	dur := TimeOfDay(durationMinutes)
	created := 0

	for day := DateOnly(r.From); !day.After(DateOnly(r.To)); day = day.AddDate(0, 0, 1) {
		windows, ok := tmpl[day.Weekday()]
		if !ok {
			continue
		}

		for _, w := range windows {
			for start := w.Start; start+dur <= w.End; start += dur {
				slot := Slot{
					ID:         uuid.New(),
					ProviderID: providerID,
					Date:       day,
					Start:      start,
					End:        start + dur,
					CreatedBy:  actorID,
				}

				inserted, err := s.repo.InsertSlotIfFree(ctx, slot)
				if err != nil {
					return created, fmt.Errorf("insert slot %s %s: %w", day.Format(time.DateOnly), start, err)
				}
				if inserted {
					created++
				}
			}
		}
	}

	s.log.Info().
		Str("provider_id", providerID.String()).
		Str("from", r.From.Format(time.DateOnly)).
		Str("to", r.To.Format(time.DateOnly)).
		Int("duration_min", durationMinutes).
		Int("created", created).
		Msg("slot generation complete")

	return created, nil
}

// DeleteSlot removes an unbooked slot. Whether past slots may be
// deleted is a deployment policy, not a hard rule.
func (s *Service) DeleteSlot(ctx context.Context, id uuid.UUID, now time.Time) error {
	if !s.allowPastDelete {
		slot, err := s.repo.GetSlotByID(ctx, id)
		if err != nil {
			return err
		}
		today := DateOnly(now.In(s.loc))
		if slot.Date.Before(today) {
			return ErrPastSlot
		}
	}

	return s.repo.DeleteSlotIfUnreferenced(ctx, id)
}

func (s *Service) GetSlot(ctx context.Context, id uuid.UUID) (*Slot, error) {
	return s.repo.GetSlotByID(ctx, id)
}

func (s *Service) ListSlots(ctx context.Context, providerID uuid.UUID, r DateRange) ([]Slot, error) {
	if !r.valid() {
		return nil, ErrInvalidDateRange
	}
	return s.repo.ListSlots(ctx, providerID, r.From, r.To)
}
