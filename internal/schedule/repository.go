package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSlotNotFound        = errors.New("slot not found")
	ErrSlotHasAppointments = errors.New("slot has a live appointment")
	ErrPastSlot            = errors.New("slot date is in the past")
	ErrInvalidDuration     = errors.New("slot duration outside allowed bounds")
	ErrInvalidDateRange    = errors.New("invalid date range")
	ErrInvalidClockRange   = errors.New("invalid clock range")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	// InsertSlotIfFree inserts the slot unless an existing slot for the
	// same provider and date overlaps it; reports whether a row was
	// inserted. This is the per-slot idempotency guard for generation.
	InsertSlotIfFree(ctx context.Context, s Slot) (bool, error)

	GetSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error)
	ListSlots(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]Slot, error)

	// DeleteSlotIfUnreferenced removes the slot unless a non-cancelled
	// appointment still points at it.
	DeleteSlotIfUnreferenced(ctx context.Context, id uuid.UUID) error
}
