//go:build integration

package audit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"seatbooking/internal/config"
	"seatbooking/internal/events"
	"seatbooking/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestMongoSink_Integration(t *testing.T) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "27017")
	require.NoError(t, err)

	logger := zerolog.Nop()
	sink, disconnect, err := Connect(ctx, config.MongoConfig{
		URI:        fmt.Sprintf("mongodb://%s:%s", host, port.Port()),
		Database:   "seatbooking_test",
		Collection: "booking_audit",
	}, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = disconnect(ctx) })

	b := &models.Booking{ID: "b-42", BookingDate: "2026-01-22", TimeSlot: "18:00-19:00", NumberOfSeats: 2, Status: models.StatusConfirmed}
	ev, err := events.NewJSONEvent(events.EventBookingCreated, events.BookingEventPayload{Booking: *b, OccurredAt: time.Now()})
	require.NoError(t, err)

	require.NoError(t, sink.HandleEvent(ctx, &ev))
	// Redelivery is absorbed by the _id key.
	require.NoError(t, sink.HandleEvent(ctx, &ev))

	history, err := sink.History(ctx, "b-42")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, events.EventBookingCreated, history[0].EventType)
}
