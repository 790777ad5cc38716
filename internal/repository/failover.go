package repository

import (
	"context"
	"sync/atomic"
	"time"

	"seatbooking/internal/domain"
	"seatbooking/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverLockStore serves locks from primary (Redis) and switches to the
// fallback store while primary is failing, retrying primary once a minute.
// Locks taken on the fallback keep holding their slot after primary
// recovers, until they expire or are released. Locks taken on primary are
// not visible while primary is down.
type FailoverLockStore struct {
	primary   domain.SlotLockStore
	fallback  domain.SlotLockStore
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
	now       func() time.Time
}

func NewFailoverLockStore(primary, fallback domain.SlotLockStore, logger *zerolog.Logger) *FailoverLockStore {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &FailoverLockStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

func (r *FailoverLockStore) markDown(err error) {
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("Primary lock store failed, falling back to memory")
	}
	r.lastCheck.Store(r.now().UnixNano())
}

// usePrimary reports whether the next call should try primary.
func (r *FailoverLockStore) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	return r.now().Sub(time.Unix(0, r.lastCheck.Load())) > recoveryInterval
}

func (r *FailoverLockStore) recovered() {
	if r.isDown.Swap(false) {
		r.logger.Info().Msg("Primary lock store recovered")
	}
}

func (r *FailoverLockStore) Acquire(ctx context.Context, lock *models.SlotLock, ttl time.Duration) (bool, error) {
	if r.usePrimary() {
		held, err := r.fallback.Get(ctx, lock.BookingDate, lock.TimeSlot)
		if err != nil {
			return false, err
		}
		if held != nil {
			return false, nil
		}
		ok, err := r.primary.Acquire(ctx, lock, ttl)
		if err == nil {
			r.recovered()
			return ok, nil
		}
		r.markDown(err)
	}
	return r.fallback.Acquire(ctx, lock, ttl)
}

func (r *FailoverLockStore) Release(ctx context.Context, date, timeSlot, holderToken string) error {
	// Release on both so a lock taken before a switch is not stranded.
	fbErr := r.fallback.Release(ctx, date, timeSlot, holderToken)
	if r.usePrimary() {
		err := r.primary.Release(ctx, date, timeSlot, holderToken)
		if err == nil {
			r.recovered()
			return fbErr
		}
		r.markDown(err)
	}
	return fbErr
}

func (r *FailoverLockStore) Get(ctx context.Context, date, timeSlot string) (*models.SlotLock, error) {
	if r.usePrimary() {
		lock, err := r.primary.Get(ctx, date, timeSlot)
		if err == nil {
			r.recovered()
			if lock != nil {
				return lock, nil
			}
			return r.fallback.Get(ctx, date, timeSlot)
		}
		r.markDown(err)
	}
	return r.fallback.Get(ctx, date, timeSlot)
}
