package database

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"seatbooking/internal/domain"
	"seatbooking/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	db.SetLocation(time.UTC)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestBooking(date, slot string, seats int, selected []string) *models.Booking {
	day, _ := time.ParseInLocation(models.DateLayout, date, time.UTC)
	var h, m int
	_, _ = fmt.Sscanf(slot, "%d:%d", &h, &m)
	return &models.Booking{
		ID:                     uuid.NewString(),
		CustomerName:           "Asha Rao",
		CustomerEmail:          "asha@example.com",
		CustomerPhone:          "9876543210",
		BookingDate:            date,
		TimeSlot:               slot,
		BookingDateTime:        day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute),
		NumberOfSeats:          seats,
		SelectedSeats:          selected,
		Status:                 models.StatusConfirmed,
		NotificationPreference: models.PreferenceBoth,
	}
}

func createTestBooking(t *testing.T, db *DB, date, slot string, seats int, selected []string) *models.Booking {
	t.Helper()
	b := newTestBooking(date, slot, seats, selected)
	require.NoError(t, db.CreateBooking(context.Background(), b))
	return b
}

func TestCreateAndGetBooking(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	b := createTestBooking(t, db, "2026-01-22", "18:00-19:00", 2, []string{"1-T1-S1", "1-T1-S2"})
	assert.Equal(t, int64(1), b.Version)

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.CustomerName, got.CustomerName)
	assert.Equal(t, "18:00-19:00", got.TimeSlot)
	assert.Equal(t, time.Date(2026, 1, 22, 18, 0, 0, 0, time.UTC), got.BookingDateTime)
	assert.Equal(t, []string{"1-T1-S1", "1-T1-S2"}, got.SelectedSeats)
	assert.Equal(t, models.ArrivalUnknown, got.Arrival)
	assert.False(t, got.ReminderSent)
	assert.False(t, got.TimeAlertSent)

	_, err = db.GetBooking(ctx, uuid.NewString())
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestCreateBooking_Capacity(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	createTestBooking(t, db, "2026-01-22", "10:00-11:00", 10, nil)

	err := db.CreateBooking(ctx, newTestBooking("2026-01-22", "10:00-11:00", 45, nil))
	require.Error(t, err)
	assert.Equal(t, domain.KindCapacity, domain.KindOf(err))
	assert.Equal(t, "Only 40 seats available", err.Error())

	booked, err := db.GetBookedSeats(ctx, "2026-01-22", "10:00-11:00")
	require.NoError(t, err)
	assert.Equal(t, 10, booked)

	// other slot is unaffected
	createTestBooking(t, db, "2026-01-22", "11:00-12:00", 45, nil)
}

func TestCreateBooking_UsesConfiguredCapacity(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	r := models.DefaultRestaurant()
	r.TotalSeats = 8
	require.NoError(t, db.SaveRestaurant(ctx, &r))

	createTestBooking(t, db, "2026-01-22", "10:00-11:00", 8, nil)
	err := db.CreateBooking(ctx, newTestBooking("2026-01-22", "10:00-11:00", 1, nil))
	assert.Equal(t, "Only 0 seats available", err.Error())
}

func TestCreateBooking_SeatClaims(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	createTestBooking(t, db, "2026-01-22", "18:00-19:00", 1, []string{"1-T1-S1"})

	err := db.CreateBooking(ctx, newTestBooking("2026-01-22", "18:00-19:00", 1, []string{"1-T1-S1"}))
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))

	// same seat in another slot is fine
	createTestBooking(t, db, "2026-01-22", "19:00-20:00", 1, []string{"1-T1-S1"})

	require.NoError(t, db.CreateMaintenance(ctx, &models.SeatMaintenance{
		ID: uuid.NewString(), SeatID: "1-T2-S1", Reason: "wobbly", MarkedBy: "mgr", StartDate: time.Now(),
	}))
	err = db.CreateBooking(ctx, newTestBooking("2026-01-22", "18:00-19:00", 1, []string{"1-T2-S1"}))
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
	assert.Contains(t, err.Error(), "maintenance")

	seats, err := db.GetOccupiedSeats(ctx, "2026-01-22", "18:00-19:00")
	require.NoError(t, err)
	assert.Equal(t, []string{"1-T1-S1"}, seats)
}

func TestUpdateBooking(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	other := createTestBooking(t, db, "2026-01-22", "10:00-11:00", 30, nil)
	b := createTestBooking(t, db, "2026-01-22", "10:00-11:00", 10, []string{"1-T1-S1"})

	t.Run("GrowWithinCapacityExcludingSelf", func(t *testing.T) {
		b.NumberOfSeats = 20
		require.NoError(t, db.UpdateBooking(ctx, b, true))
		assert.Equal(t, int64(2), b.Version)
	})

	t.Run("GrowBeyondCapacity", func(t *testing.T) {
		b.NumberOfSeats = 21
		err := db.UpdateBooking(ctx, b, true)
		require.Error(t, err)
		assert.Equal(t, "Only 20 seats available for this time slot", err.Error())
		b.NumberOfSeats = 20
	})

	t.Run("StaleVersion", func(t *testing.T) {
		stale := *b
		stale.Version = 1
		err := db.UpdateBooking(ctx, &stale, false)
		assert.ErrorIs(t, err, ErrConcurrentModification)
	})

	t.Run("SeatsMoveWithBooking", func(t *testing.T) {
		b.SelectedSeats = []string{"1-T3-S1"}
		require.NoError(t, db.UpdateBooking(ctx, b, true))
		seats, err := db.GetOccupiedSeats(ctx, "2026-01-22", "10:00-11:00")
		require.NoError(t, err)
		assert.Equal(t, []string{"1-T3-S1"}, seats)
	})

	_ = other
}

func TestApplyTransition(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	b := createTestBooking(t, db, "2026-01-22", "18:00-19:00", 2, []string{"1-T1-S1", "1-T1-S2"})

	arrived, changed, err := db.ApplyTransition(ctx, b.ID, models.EventArrive)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.ArrivalArrived, arrived.Arrival)
	assert.Equal(t, models.StatusConfirmed, arrived.Status)

	_, changed, err = db.ApplyTransition(ctx, b.ID, models.EventArrive)
	require.NoError(t, err)
	assert.False(t, changed)

	// arrival is known, so the sweep may not auto-cancel
	_, _, err = db.ApplyTransition(ctx, b.ID, models.EventAutoCancel)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))

	cancelled, changed, err := db.ApplyTransition(ctx, b.ID, models.EventCancel)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	seats, err := db.GetOccupiedSeats(ctx, "2026-01-22", "18:00-19:00")
	require.NoError(t, err)
	assert.Empty(t, seats)

	_, _, err = db.ApplyTransition(ctx, b.ID, models.EventArrive)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err), "cancelled bookings are never resurrected")

	_, _, err = db.ApplyTransition(ctx, uuid.NewString(), models.EventCancel)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestMarkNotified(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	b := createTestBooking(t, db, "2026-01-22", "18:00-19:00", 2, nil)

	ok, err := db.MarkNotified(ctx, b.ID, models.NotifyReminder)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.MarkNotified(ctx, b.ID, models.NotifyReminder)
	require.NoError(t, err)
	assert.False(t, ok, "second mark must not flip the flag again")

	ok, err = db.MarkNotified(ctx, b.ID, models.NotifyTimeAlert)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = db.MarkNotified(ctx, b.ID, models.NotifyCancellation)
	assert.Error(t, err)

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, got.ReminderSent)
	assert.True(t, got.TimeAlertSent)
}

func TestListBookings(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	late := createTestBooking(t, db, "2026-01-22", "20:00-21:00", 2, nil)
	early := createTestBooking(t, db, "2026-01-22", "12:00-13:00", 2, nil)
	nextDay := createTestBooking(t, db, "2026-01-23", "10:00-11:00", 2, nil)
	cancelled := createTestBooking(t, db, "2026-01-22", "14:00-15:00", 2, nil)
	_, _, err := db.ApplyTransition(ctx, cancelled.ID, models.EventCancel)
	require.NoError(t, err)

	all, err := db.ListBookings(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, []string{early.ID, cancelled.ID, late.ID, nextDay.ID}, ids(all))

	byDate, err := db.ListBookingsByDate(ctx, "2026-01-22")
	require.NoError(t, err)
	assert.Equal(t, []string{early.ID, late.ID}, ids(byDate))

	ranged, err := db.ListBookingsByDateRange(ctx, "2026-01-23", "2026-01-31")
	require.NoError(t, err)
	assert.Equal(t, []string{nextDay.ID}, ids(ranged))

	window, err := db.ListConfirmedBetween(ctx,
		time.Date(2026, 1, 22, 11, 30, 0, 0, time.UTC),
		time.Date(2026, 1, 22, 20, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []string{early.ID, late.ID}, ids(window))
}

func TestDeleteBooking(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	b := createTestBooking(t, db, "2026-01-22", "18:00-19:00", 1, []string{"1-T1-S1"})

	require.NoError(t, db.DeleteBooking(ctx, b.ID))
	_, err := db.GetBooking(ctx, b.ID)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	seats, err := db.GetOccupiedSeats(ctx, "2026-01-22", "18:00-19:00")
	require.NoError(t, err)
	assert.Empty(t, seats)

	assert.Equal(t, domain.KindNotFound, domain.KindOf(db.DeleteBooking(ctx, b.ID)))
}

func ids(bookings []*models.Booking) []string {
	out := make([]string, len(bookings))
	for i, b := range bookings {
		out[i] = b.ID
	}
	return out
}
