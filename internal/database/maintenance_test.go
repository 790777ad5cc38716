package database

import (
	"context"
	"testing"
	"time"

	"seatbooking/internal/domain"
	"seatbooking/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMaintenance(seat string) *models.SeatMaintenance {
	return &models.SeatMaintenance{
		ID:        uuid.NewString(),
		SeatID:    seat,
		Reason:    models.DefaultMaintenanceReason,
		MarkedBy:  "manager",
		StartDate: time.Date(2026, 1, 20, 9, 0, 0, 0, time.UTC),
	}
}

func TestMaintenanceLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	m := newMaintenance("1-T1-S1")
	require.NoError(t, db.CreateMaintenance(ctx, m))
	assert.True(t, m.IsActive)

	err := db.CreateMaintenance(ctx, newMaintenance("1-T1-S1"))
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	assert.Equal(t, "Seat is already under maintenance", err.Error())

	seats, err := db.GetActiveMaintenanceSeatIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1-T1-S1"}, seats)

	require.NoError(t, db.DeactivateMaintenance(ctx, m.ID))
	require.NoError(t, db.DeactivateMaintenance(ctx, m.ID), "already inactive is a no-op")

	err = db.DeactivateMaintenance(ctx, uuid.NewString())
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	seats, err = db.GetActiveMaintenanceSeatIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, seats)

	// seat can go back into maintenance once the old record ended
	require.NoError(t, db.CreateMaintenance(ctx, newMaintenance("1-T1-S1")))

	records, err := db.ListMaintenance(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	var ended int
	for _, r := range records {
		if !r.IsActive {
			ended++
			require.NotNil(t, r.EndDate)
		}
	}
	assert.Equal(t, 1, ended)
}

func TestDeactivateMaintenanceBySeats(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for _, seat := range []string{"1-T1-S1", "1-T1-S2", "1-T2-S1"} {
		require.NoError(t, db.CreateMaintenance(ctx, newMaintenance(seat)))
	}

	n, err := db.DeactivateMaintenanceBySeats(ctx, []string{"1-T1-S1", "1-T2-S1", "9-T9-S9"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = db.DeactivateMaintenanceBySeats(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	seats, err := db.GetActiveMaintenanceSeatIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1-T1-S2"}, seats)
}
