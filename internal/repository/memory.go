package repository

import (
	"context"
	"sync"
	"time"

	"seatbooking/internal/models"
)

// MemoryLockStore is the in-process slot lock store. Expired entries are
// ignored on lookup and dropped by Sweep.
type MemoryLockStore struct {
	mu    sync.Mutex
	locks map[string]models.SlotLock
	now   func() time.Time
}

func NewMemoryLockStore() *MemoryLockStore {
	return &MemoryLockStore{
		locks: make(map[string]models.SlotLock),
		now:   time.Now,
	}
}

// SetClock overrides the time source; used by tests to step past expiry.
func (s *MemoryLockStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryLockStore) Acquire(ctx context.Context, lock *models.SlotLock, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	key := lock.Key()
	if existing, ok := s.locks[key]; ok && !existing.Expired(now) {
		return false, nil
	}

	lock.ExpiresAt = now.Add(ttl)
	s.locks[key] = *lock
	return true, nil
}

func (s *MemoryLockStore) Release(ctx context.Context, date, timeSlot, holderToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := models.SlotKey(date, timeSlot)
	existing, ok := s.locks[key]
	if !ok {
		return nil
	}
	if existing.HolderToken == holderToken || existing.Expired(s.now()) {
		delete(s.locks, key)
	}
	return nil
}

func (s *MemoryLockStore) Get(ctx context.Context, date, timeSlot string) (*models.SlotLock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := models.SlotKey(date, timeSlot)
	existing, ok := s.locks[key]
	if !ok {
		return nil, nil
	}
	if existing.Expired(s.now()) {
		delete(s.locks, key)
		return nil, nil
	}
	return &existing, nil
}

// Sweep drops expired locks and returns how many were removed.
func (s *MemoryLockStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, l := range s.locks {
		if l.Expired(now) {
			delete(s.locks, key)
			removed++
		}
	}
	return removed
}

// StartJanitor runs Sweep every interval until ctx is done.
func (s *MemoryLockStore) StartJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}
