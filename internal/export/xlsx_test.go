package export

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"seatbooking/internal/domain"
	"seatbooking/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fakeBookings struct {
	list     []*models.Booking
	from, to string
}

func (f *fakeBookings) ListRange(_ context.Context, from, to string) ([]*models.Booking, error) {
	f.from, f.to = from, to
	return f.list, nil
}

type fakeSlots []string

func (f fakeSlots) TimeSlots(context.Context) ([]string, error) { return f, nil }

func sampleBookings() []*models.Booking {
	created := time.Date(2026, 1, 20, 9, 30, 0, 0, time.UTC)
	return []*models.Booking{
		{
			ID: "b-1", BookingDate: "2026-01-22", TimeSlot: "18:00-19:00",
			CustomerName: "Asha", CustomerEmail: "asha@example.com", CustomerPhone: "9876543210",
			NumberOfSeats: 2, SelectedSeats: []string{"1-T1-S1", "1-T1-S2"},
			Status: models.StatusConfirmed, NotificationPreference: models.PreferenceEmail, CreatedAt: created,
		},
		{
			ID: "b-2", BookingDate: "2026-01-22", TimeSlot: "18:00-19:00",
			CustomerName: "Ravi", CustomerEmail: "ravi@example.com", CustomerPhone: "9876543211",
			NumberOfSeats: 3, SelectedSeats: []string{"2-T1-S1", "2-T1-S2", "2-T1-S3"},
			Status: models.StatusConfirmed, NotificationPreference: models.PreferenceSMS, CreatedAt: created,
		},
		{
			ID: "b-3", BookingDate: "2026-01-23", TimeSlot: "12:00-13:00",
			CustomerName: "Meera", CustomerEmail: "meera@example.com", CustomerPhone: "9876543212",
			NumberOfSeats: 4, SelectedSeats: []string{"3-T1-S1", "3-T1-S2", "3-T1-S3", "3-T1-S4"},
			Status: models.StatusCancelled, NotificationPreference: models.PreferenceBoth, CreatedAt: created,
		},
	}
}

func TestBuild(t *testing.T) {
	start := time.Date(2026, 1, 22, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	f, err := Build(start, end, sampleBookings(), []string{"12:00-13:00", "18:00-19:00"})
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{bookingsSheet, occupancySheet}, f.GetSheetList())

	rows, err := f.GetRows(bookingsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, bookingColumns, rows[0])
	assert.Equal(t, "b-1", rows[1][0])
	assert.Equal(t, "1-T1-S1, 1-T1-S2", rows[1][7])
	assert.Equal(t, "cancelled", rows[3][8])

	v, err := f.GetCellValue(occupancySheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "22.01", v)

	// 18:00-19:00 on the 22nd holds both confirmed bookings.
	v, err = f.GetCellValue(occupancySheet, "B4")
	require.NoError(t, err)
	assert.Equal(t, "5", v)

	// Cancelled bookings do not count towards occupancy.
	v, err = f.GetCellValue(occupancySheet, "C3")
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestBuild_UnknownSlotIsListed(t *testing.T) {
	day := time.Date(2026, 1, 22, 0, 0, 0, 0, time.UTC)

	f, err := Build(day, day, sampleBookings()[:1], []string{"12:00-13:00"})
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue(occupancySheet, "A4")
	require.NoError(t, err)
	assert.Equal(t, "18:00-19:00", v)
}

func TestExporter_SaveFile(t *testing.T) {
	logger := zerolog.Nop()
	dir := filepath.Join(t.TempDir(), "exports")
	src := &fakeBookings{list: sampleBookings()}
	e := NewExporter(src, fakeSlots{"18:00-19:00"}, dir, &logger)

	path, err := e.SaveFile(context.Background(), "2026-01-22", "2026-01-23")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "bookings_2026-01-22_to_2026-01-23.xlsx"), path)
	assert.Equal(t, "2026-01-22", src.from)
	assert.Equal(t, "2026-01-23", src.to)

	_, err = os.Stat(path)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	name, err := f.GetCellValue(bookingsSheet, "D2")
	require.NoError(t, err)
	assert.Equal(t, "Asha", name)
}

func TestExporter_Write(t *testing.T) {
	logger := zerolog.Nop()
	e := NewExporter(&fakeBookings{list: sampleBookings()}, nil, t.TempDir(), &logger)

	var buf bytes.Buffer
	require.NoError(t, e.Write(context.Background(), &buf, "2026-01-22", "2026-01-22"))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(bookingsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestExporter_InvalidRange(t *testing.T) {
	logger := zerolog.Nop()
	e := NewExporter(&fakeBookings{}, nil, t.TempDir(), &logger)
	ctx := context.Background()

	cases := [][2]string{
		{"22-01-2026", "2026-01-23"},
		{"2026-01-22", "tomorrow"},
		{"2026-01-23", "2026-01-22"},
		{"2026-01-01", "2026-12-31"},
	}
	for _, c := range cases {
		_, err := e.SaveFile(ctx, c[0], c[1])
		assert.Equal(t, domain.KindValidation, domain.KindOf(err), c)
	}
}
