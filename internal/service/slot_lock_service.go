package service

import (
	"context"
	"strings"
	"time"

	"seatbooking/internal/domain"
	"seatbooking/internal/metrics"
	"seatbooking/internal/models"
	"seatbooking/internal/timeslot"

	"github.com/rs/zerolog"
)

const DefaultLockTTL = 5 * time.Minute

// SlotLockService guards a (date, slot) pair while a customer completes
// checkout. The lock is advisory: Create does not require it.
type SlotLockService struct {
	store  domain.SlotLockStore
	ttl    time.Duration
	loc    *time.Location
	logger *zerolog.Logger
}

func NewSlotLockService(store domain.SlotLockStore, ttl time.Duration, loc *time.Location, logger *zerolog.Logger) *SlotLockService {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	if loc == nil {
		loc = time.Local
	}
	return &SlotLockService{store: store, ttl: ttl, loc: loc, logger: logger}
}

func (s *SlotLockService) key(date, slot string) (string, string, error) {
	date, slot = strings.TrimSpace(date), strings.TrimSpace(slot)
	if date == "" || slot == "" {
		return "", "", domain.Validationf("bookingDate and timeSlot are required")
	}
	_, canonical, err := timeslot.ParseDate(date, s.loc)
	if err != nil {
		return "", "", err
	}
	sl, err := timeslot.Parse(slot)
	if err != nil {
		return "", "", err
	}
	return canonical, sl.String(), nil
}

// Lock claims the slot for holder. Any live lock, including one held by the
// same holder, makes this fail with Conflict.
func (s *SlotLockService) Lock(ctx context.Context, date, slot, holder string) (*models.SlotLock, error) {
	date, slot, err := s.key(date, slot)
	if err != nil {
		return nil, err
	}
	if holder = strings.TrimSpace(holder); holder == "" {
		return nil, domain.Validationf("userToken is required")
	}

	lock := &models.SlotLock{BookingDate: date, TimeSlot: slot, HolderToken: holder}
	ok, err := s.store.Acquire(ctx, lock, s.ttl)
	if err != nil {
		return nil, domain.Persistence(err, "failed to lock slot")
	}
	if !ok {
		metrics.IncLockConflict()
		return nil, domain.Conflictf("Slot temporarily locked by another user")
	}
	s.logger.Debug().Str("date", date).Str("slot", slot).Time("expires_at", lock.ExpiresAt).Msg("slot locked")
	return lock, nil
}

// Release drops holder's lock. Releasing an absent or expired lock succeeds.
func (s *SlotLockService) Release(ctx context.Context, date, slot, holder string) error {
	date, slot, err := s.key(date, slot)
	if err != nil {
		return err
	}
	if err := s.store.Release(ctx, date, slot, strings.TrimSpace(holder)); err != nil {
		return domain.Persistence(err, "failed to release slot")
	}
	return nil
}

// Get returns the live lock on a slot, or nil.
func (s *SlotLockService) Get(ctx context.Context, date, slot string) (*models.SlotLock, error) {
	date, slot, err := s.key(date, slot)
	if err != nil {
		return nil, err
	}
	lock, err := s.store.Get(ctx, date, slot)
	return lock, domain.Persistence(err, "failed to read slot lock")
}

func (s *SlotLockService) TTL() time.Duration {
	return s.ttl
}
