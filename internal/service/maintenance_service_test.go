package service

import (
	"context"
	"testing"
	"time"

	"seatbooking/internal/domain"
	"seatbooking/internal/models"
	"seatbooking/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaintenanceService(t *testing.T) {
	env := setupService(t)
	logger := zerolog.Nop()
	svc := NewMaintenanceService(env.db, &logger)
	ctx := context.Background()

	t.Run("RequiredFields", func(t *testing.T) {
		_, err := svc.Mark(ctx, MaintenanceInput{SeatID: "1-T1-S1"})
		require.Error(t, err)
		assert.Equal(t, "Seat ID and manager email are required", err.Error())

		_, err = svc.Mark(ctx, MaintenanceInput{SeatID: "window", MarkedBy: "m@example.com"})
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	})

	m, err := svc.Mark(ctx, MaintenanceInput{SeatID: "1-T1-S1", MarkedBy: "m@example.com"})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultMaintenanceReason, m.Reason)
	assert.True(t, m.IsActive)

	t.Run("Duplicate", func(t *testing.T) {
		_, err := svc.Mark(ctx, MaintenanceInput{SeatID: "1-T1-S1", MarkedBy: "other@example.com", Reason: "wobbly"})
		require.Error(t, err)
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
		assert.Equal(t, "Seat is already under maintenance", err.Error())
	})

	t.Run("BlocksBooking", func(t *testing.T) {
		_, err := env.svc.Create(ctx, validInput())
		require.Error(t, err)
		assert.Equal(t, domain.KindConflict, domain.KindOf(err))
	})

	_, err = svc.Mark(ctx, MaintenanceInput{SeatID: "2-T3-S1", MarkedBy: "m@example.com", Reason: "broken leg"})
	require.NoError(t, err)

	ids, err := svc.ActiveSeatIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1-T1-S1", "2-T3-S1"}, ids)

	t.Run("Remove", func(t *testing.T) {
		require.NoError(t, svc.Remove(ctx, m.ID))
		// Removing twice is fine.
		require.NoError(t, svc.Remove(ctx, m.ID))

		err := svc.Remove(ctx, "bogus")
		assert.Equal(t, domain.KindInvalidID, domain.KindOf(err))
		assert.Equal(t, "Invalid maintenance ID", err.Error())

		err = svc.Remove(ctx, uuid.NewString())
		assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
		assert.Equal(t, "Maintenance record not found", err.Error())
	})

	t.Run("BulkRemove", func(t *testing.T) {
		_, err := svc.BulkRemove(ctx, []string{" "})
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))

		n, err := svc.BulkRemove(ctx, []string{"2-T3-S1", "9-T9-S9"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		ids, err := svc.ActiveSeatIDs(ctx)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	records, err := svc.ListRecords(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestSlotLockService(t *testing.T) {
	logger := zerolog.Nop()
	store := repository.NewMemoryLockStore()
	now := time.Date(2026, 1, 20, 10, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return now })
	svc := NewSlotLockService(store, 0, time.UTC, &logger)
	ctx := context.Background()

	assert.Equal(t, DefaultLockTTL, svc.TTL())

	lock, err := svc.Lock(ctx, "2026-01-22", "18:00-19:00", "token-a")
	require.NoError(t, err)
	assert.Equal(t, now.Add(DefaultLockTTL), lock.ExpiresAt)

	t.Run("HeldByAnyone", func(t *testing.T) {
		for _, holder := range []string{"token-b", "token-a"} {
			_, err := svc.Lock(ctx, "2026-01-22", "18:00-19:00", holder)
			require.Error(t, err)
			assert.Equal(t, domain.KindConflict, domain.KindOf(err))
			assert.Equal(t, "Slot temporarily locked by another user", err.Error())
		}
	})

	t.Run("OtherSlotIsFree", func(t *testing.T) {
		_, err := svc.Lock(ctx, "2026-01-22", "19:00-20:00", "token-b")
		assert.NoError(t, err)
	})

	t.Run("ReleaseByOtherHolderIsNoop", func(t *testing.T) {
		require.NoError(t, svc.Release(ctx, "2026-01-22", "18:00-19:00", "token-b"))
		got, err := svc.Get(ctx, "2026-01-22", "18:00-19:00")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "token-a", got.HolderToken)
	})

	t.Run("Release", func(t *testing.T) {
		require.NoError(t, svc.Release(ctx, "2026-01-22", "18:00-19:00", "token-a"))
		require.NoError(t, svc.Release(ctx, "2026-01-22", "18:00-19:00", "token-a"))

		got, err := svc.Get(ctx, "2026-01-22", "18:00-19:00")
		require.NoError(t, err)
		assert.Nil(t, got)

		_, err = svc.Lock(ctx, "2026-01-22", "18:00-19:00", "token-b")
		assert.NoError(t, err)
	})

	t.Run("Validation", func(t *testing.T) {
		_, err := svc.Lock(ctx, "", "18:00-19:00", "token-a")
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))

		_, err = svc.Lock(ctx, "2026-01-22", "6pm", "token-a")
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))

		_, err = svc.Lock(ctx, "2026-01-22", "20:00-21:00", " ")
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	})
}

func TestRestaurantService(t *testing.T) {
	env := setupService(t)
	logger := zerolog.Nop()
	svc := NewRestaurantService(env.db, models.DefaultRestaurant(), &logger)
	ctx := context.Background()

	r, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultRestaurantName, r.Name)

	slots, err := svc.TimeSlots(ctx)
	require.NoError(t, err)
	require.Len(t, slots, 12)
	assert.Equal(t, "10:00-11:00", slots[0])
	assert.Equal(t, "21:00-22:00", slots[11])

	seats := 80
	duration := 90
	updated, err := svc.Update(ctx, RestaurantUpdate{TotalSeats: &seats, SlotDuration: &duration})
	require.NoError(t, err)
	assert.Equal(t, 80, updated.TotalSeats)

	slots, err = svc.TimeSlots(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"10:00-11:30", "11:30-13:00", "13:00-14:30", "14:30-16:00",
		"16:00-17:30", "17:30-19:00", "19:00-20:30", "20:30-22:00",
	}, slots)

	empty := ""
	_, err = svc.Update(ctx, RestaurantUpdate{Name: &empty})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	zero := 0
	_, err = svc.Update(ctx, RestaurantUpdate{TotalSeats: &zero})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	late := "23:30"
	_, err = svc.Update(ctx, RestaurantUpdate{OpeningTime: &late})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	r, err = svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 80, r.TotalSeats)
}

func TestRestaurantService_TimeSlotsCreatesVenue(t *testing.T) {
	env := setupService(t)
	logger := zerolog.Nop()
	custom := models.DefaultRestaurant()
	custom.Name = "Blue Door"
	custom.SlotDuration = 120
	svc := NewRestaurantService(env.db, custom, &logger)
	ctx := context.Background()

	// Fresh database: TimeSlots must not need a prior Get.
	slots, err := svc.TimeSlots(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, slots)

	r, err := env.db.GetRestaurant(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Blue Door", r.Name)
	assert.Equal(t, 120, r.SlotDuration)
}
