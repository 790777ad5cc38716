package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"seatbooking/internal/config"
	"seatbooking/internal/database"
	"seatbooking/internal/events"
	"seatbooking/internal/export"
	"seatbooking/internal/models"
	"seatbooking/internal/repository"
	"seatbooking/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var testNow = time.Date(2026, 1, 20, 10, 0, 0, 0, time.UTC)

func newTestServices(t *testing.T) Services {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "api.db"), &logger)
	require.NoError(t, err)
	db.SetLocation(time.UTC)
	t.Cleanup(func() { db.Close() })

	restaurants := service.NewRestaurantService(db, models.DefaultRestaurant(), &logger)
	bookings := service.NewBookingService(db, restaurants, nil, events.NewEventBus(&logger), time.UTC, 30, &logger)
	bookings.SetClock(func() time.Time { return testNow })

	store := repository.NewMemoryLockStore()
	store.SetClock(func() time.Time { return testNow })

	return Services{
		Restaurants: restaurants,
		Bookings:    bookings,
		Maintenance: service.NewMaintenanceService(db, &logger),
		Locks:       service.NewSlotLockService(store, 0, time.UTC, &logger),
		Exporter:    export.NewExporter(bookings, restaurants, t.TempDir(), &logger),
	}
}

func newTestHTTPServer(t *testing.T, cfg config.APIConfig, production bool) *httptest.Server {
	t.Helper()
	logger := zerolog.Nop()
	srv := NewHTTPServer(&cfg, newTestServices(t), nil, production, &logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

type envelope struct {
	Success        bool              `json:"success"`
	Message        string            `json:"message"`
	Booking        *models.Booking   `json:"booking"`
	Bookings       []*models.Booking `json:"bookings"`
	TimeSlots      []string          `json:"timeSlots"`
	OccupiedSeats  []string          `json:"occupiedSeats"`
	AvailableSeats int               `json:"availableSeats"`
	BookedSeats    int               `json:"bookedSeats"`
	TotalSeats     int               `json:"totalSeats"`
	Maintenance    *models.SeatMaintenance
	Seats          []string `json:"maintenanceSeats"`
	Removed        int64    `json:"removed"`
}

func call(t *testing.T, method, url string, body any, headers ...string) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequestWithContext(context.Background(), method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func bookingBody() map[string]any {
	return map[string]any{
		"customerName":  "Asha Rao",
		"customerEmail": "asha@example.com",
		"customerPhone": "9876543210",
		"bookingDate":   "2026-01-22",
		"timeSlot":      "18:00-19:00",
		"numberOfSeats": 2,
		"selectedSeats": []string{"1-T1-S1", "1-T1-S2"},
	}
}

func TestHTTP_Health(t *testing.T) {
	ts := newTestHTTPServer(t, config.APIConfig{}, false)
	code, env := call(t, http.MethodGet, ts.URL+"/healthz", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)
}

func TestHTTP_BookingLifecycle(t *testing.T) {
	ts := newTestHTTPServer(t, config.APIConfig{}, false)
	base := ts.URL + "/api/v1/bookings"

	code, env := call(t, http.MethodPost, base, bookingBody())
	require.Equal(t, http.StatusCreated, code, env.Message)
	require.NotNil(t, env.Booking)
	assert.Equal(t, "Booking created successfully", env.Message)
	id := env.Booking.ID

	code, env = call(t, http.MethodGet, base+"/"+id, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "9876543210", env.Booking.CustomerPhone)

	code, env = call(t, http.MethodGet, base+"/availability?date=2026-01-22&timeSlot=18:00-19:00", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 48, env.AvailableSeats)
	assert.Equal(t, 2, env.BookedSeats)
	assert.Equal(t, 50, env.TotalSeats)

	code, env = call(t, http.MethodGet, base+"/occupied?date=2026-01-22&timeSlot=18:00-19:00", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"1-T1-S1", "1-T1-S2"}, env.OccupiedSeats)

	code, env = call(t, http.MethodGet, base+"/date/2026-01-22", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, env.Bookings, 1)

	code, env = call(t, http.MethodPut, base+"/"+id, map[string]any{"customerName": "Asha R."})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Asha R.", env.Booking.CustomerName)

	code, env = call(t, http.MethodPatch, base+"/"+id+"/arrival-yes", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.ArrivalArrived, env.Booking.Arrival)

	code, env = call(t, http.MethodPatch, base+"/"+id+"/complete", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.StatusCompleted, env.Booking.Status)

	code, env = call(t, http.MethodPatch, base+"/"+id+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.False(t, env.Success)
	assert.Equal(t, "Cannot cancel a booking that is completed", env.Message)

	code, _ = call(t, http.MethodDelete, base+"/"+id, nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = call(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.NotNil(t, env.Bookings)
	assert.Empty(t, env.Bookings)
}

func TestHTTP_ArrivalNoCancels(t *testing.T) {
	ts := newTestHTTPServer(t, config.APIConfig{}, false)
	base := ts.URL + "/api/v1/bookings"

	_, env := call(t, http.MethodPost, base, bookingBody())
	require.NotNil(t, env.Booking)

	code, env := call(t, http.MethodPatch, base+"/"+env.Booking.ID+"/arrival-no", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.StatusCancelled, env.Booking.Status)
	assert.Equal(t, models.ArrivalNoShow, env.Booking.Arrival)
}

func TestHTTP_ErrorStatuses(t *testing.T) {
	ts := newTestHTTPServer(t, config.APIConfig{}, false)
	base := ts.URL + "/api/v1/bookings"

	tests := []struct {
		name    string
		method  string
		url     string
		body    any
		code    int
		message string
	}{
		{"InvalidID", http.MethodGet, base + "/12345", nil, http.StatusBadRequest, "Invalid booking ID"},
		{"NotFound", http.MethodGet, base + "/" + uuid.NewString(), nil, http.StatusNotFound, "Booking not found"},
		{"MissingQuery", http.MethodGet, base + "/availability?date=2026-01-22", nil, http.StatusBadRequest, "Date and timeSlot are required"},
		{"BadJSON", http.MethodPost, base, "not an object", http.StatusBadRequest, "Invalid JSON body"},
		{"Validation", http.MethodPost, base, map[string]any{"customerName": "x"}, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := call(t, tt.method, tt.url, tt.body)
			assert.Equal(t, tt.code, code)
			assert.False(t, env.Success)
			if tt.message != "" {
				assert.Equal(t, tt.message, env.Message)
			}
		})
	}

	t.Run("CapacityIsBadRequest", func(t *testing.T) {
		body := bookingBody()
		delete(body, "selectedSeats")
		body["numberOfSeats"] = 60
		code, env := call(t, http.MethodPost, base, body)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "Only 50 seats available", env.Message)
	})

	t.Run("SeatConflict", func(t *testing.T) {
		code, _ := call(t, http.MethodPost, base, bookingBody())
		require.Equal(t, http.StatusCreated, code)
		code, env := call(t, http.MethodPost, base, bookingBody())
		assert.Equal(t, http.StatusConflict, code)
		assert.False(t, env.Success)
	})
}

func TestHTTP_Restaurant(t *testing.T) {
	ts := newTestHTTPServer(t, config.APIConfig{}, false)
	base := ts.URL + "/api/v1/restaurant"

	code, env := call(t, http.MethodGet, base+"/timeslots", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, env.TimeSlots, 12)

	code, env = call(t, http.MethodPut, base+"/", map[string]any{"slotDuration": 120})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Restaurant settings updated successfully", env.Message)

	_, env = call(t, http.MethodGet, base+"/timeslots", nil)
	assert.Equal(t, []string{"10:00-12:00", "12:00-14:00", "14:00-16:00", "16:00-18:00", "18:00-20:00", "20:00-22:00"}, env.TimeSlots)

	code, _ = call(t, http.MethodPut, base+"/", map[string]any{"totalSeats": 0})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHTTP_Maintenance(t *testing.T) {
	ts := newTestHTTPServer(t, config.APIConfig{}, false)
	base := ts.URL + "/api/v1/maintenance"

	code, env := call(t, http.MethodPost, base+"/", map[string]any{"seatId": "1-T1-S1", "markedBy": "m@example.com"})
	require.Equal(t, http.StatusCreated, code, env.Message)

	code, env = call(t, http.MethodPost, base+"/", map[string]any{"seatId": "1-T1-S1", "markedBy": "m@example.com"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Seat is already under maintenance", env.Message)

	_, env = call(t, http.MethodGet, base+"/", nil)
	assert.Equal(t, []string{"1-T1-S1"}, env.Seats)

	code, env = call(t, http.MethodPost, ts.URL+"/api/v1/bookings", bookingBody())
	assert.Equal(t, http.StatusConflict, code)

	code, env = call(t, http.MethodPost, base+"/bulk", map[string]any{"seatIds": []string{"1-T1-S1"}})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(1), env.Removed)

	code, _ = call(t, http.MethodDelete, base+"/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestHTTP_SlotLocks(t *testing.T) {
	ts := newTestHTTPServer(t, config.APIConfig{}, false)
	base := ts.URL + "/api/v1/slots"
	lock := map[string]any{"bookingDate": "2026-01-22", "timeSlot": "18:00-19:00", "userToken": "tab-1"}

	code, env := call(t, http.MethodPost, base+"/lock", lock)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Slot locked for 5 minutes", env.Message)

	other := map[string]any{"bookingDate": "2026-01-22", "timeSlot": "18:00-19:00", "userToken": "tab-2"}
	code, env = call(t, http.MethodPost, base+"/lock", other)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Slot temporarily locked by another user", env.Message)

	code, _ = call(t, http.MethodPost, base+"/release", lock)
	assert.Equal(t, http.StatusOK, code)

	code, _ = call(t, http.MethodPost, base+"/lock", other)
	assert.Equal(t, http.StatusOK, code)
}

func TestHTTP_Export(t *testing.T) {
	ts := newTestHTTPServer(t, config.APIConfig{}, false)

	code, _ := call(t, http.MethodPost, ts.URL+"/api/v1/bookings", bookingBody())
	require.Equal(t, http.StatusCreated, code)

	resp, err := http.Get(ts.URL + "/api/v1/bookings/export?from=2026-01-20&to=2026-01-25")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "bookings_2026-01-20_to_2026-01-25.xlsx")

	f, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer f.Close()
	name, err := f.GetCellValue("Bookings", "D2")
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", name)

	code, env := call(t, http.MethodGet, ts.URL+"/api/v1/bookings/export?from=2026-01-25&to=2026-01-20", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Success)
}

func validServiceInput() service.BookingInput {
	return service.BookingInput{
		CustomerName:  "Asha Rao",
		CustomerEmail: "asha@example.com",
		CustomerPhone: "9876543210",
		BookingDate:   "2026-01-22",
		TimeSlot:      "18:00-19:00",
		NumberOfSeats: 2,
		SelectedSeats: []string{"1-T1-S1", "1-T1-S2"},
	}
}

func TestHTTP_ProductionHidesInternalErrors(t *testing.T) {
	logger := zerolog.Nop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "closed.db"), &logger)
	require.NoError(t, err)
	restaurants := service.NewRestaurantService(db, models.DefaultRestaurant(), &logger)
	bookings := service.NewBookingService(db, restaurants, nil, nil, time.UTC, 30, &logger)
	require.NoError(t, db.Close())

	cfg := config.APIConfig{}
	srv := NewHTTPServer(&cfg, Services{Restaurants: restaurants, Bookings: bookings}, nil, true, &logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	code, env := call(t, http.MethodGet, ts.URL+"/api/v1/bookings", nil)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, internalErrorMessage, env.Message)

	// Client errors keep their message.
	code, env = call(t, http.MethodGet, ts.URL+"/api/v1/bookings/12345", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid booking ID", env.Message)
}
