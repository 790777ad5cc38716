package database

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"seatbooking/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentBooking_Capacity(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	const numGoroutines = 10
	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	results := make(chan error, numGoroutines)

	// 10 parties of 10 against the default 50 seats
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			results <- db.CreateBooking(ctx, newTestBooking("2026-02-14", "19:00-20:00", 10, nil))
		}()
	}
	wg.Wait()
	close(results)

	var ok, rejected int
	for err := range results {
		if err == nil {
			ok++
			continue
		}
		assert.Equal(t, domain.KindCapacity, domain.KindOf(err), err.Error())
		rejected++
	}
	assert.Equal(t, 5, ok)
	assert.Equal(t, 5, rejected)

	booked, err := db.GetBookedSeats(ctx, "2026-02-14", "19:00-20:00")
	require.NoError(t, err)
	assert.Equal(t, 50, booked)
}

func TestConcurrentBooking_SameSeat(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	const numGoroutines = 8
	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	results := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(i int) {
			defer wg.Done()
			seats := []string{"2-T4-S1", fmt.Sprintf("3-T%d-S1", i)}
			results <- db.CreateBooking(ctx, newTestBooking("2026-02-14", "19:00-20:00", 2, seats))
		}(i)
	}
	wg.Wait()
	close(results)

	var ok int
	for err := range results {
		if err == nil {
			ok++
			continue
		}
		assert.Equal(t, domain.KindConflict, domain.KindOf(err))
	}
	assert.Equal(t, 1, ok, "exactly one booking may claim a seat")
}
