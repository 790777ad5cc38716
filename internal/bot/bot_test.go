package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"seatbooking/internal/domain"
	"seatbooking/internal/models"
	"seatbooking/internal/scheduler"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	managerID  int64 = 42
	bookingID        = "0b7c6a58-8a3e-4f7e-9a51-6c1d2f3e4a5b"
	strangerID int64 = 7
)

type mockTelegram struct {
	mu      sync.Mutex
	updates chan tgbotapi.Update
	sent    []tgbotapi.Chattable
	stopped bool
}

func (m *mockTelegram) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return m.updates
}

func (m *mockTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, c)
	return tgbotapi.Message{}, nil
}

func (m *mockTelegram) StopReceivingUpdates() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
}

func (m *mockTelegram) texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, c := range m.sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, msg.Text)
		}
	}
	return out
}

func (m *mockTelegram) last() string {
	texts := m.texts()
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

type mockBookings struct {
	dates    []string
	listErr  error
	panicked bool
}

func sampleBooking(status models.Status) *models.Booking {
	return &models.Booking{
		ID:            bookingID,
		CustomerName:  "Asha",
		CustomerPhone: "9876543210",
		BookingDate:   "2026-01-21",
		TimeSlot:      "19:00-20:00",
		NumberOfSeats: 2,
		SelectedSeats: []string{"1-T1-S1", "1-T1-S2"},
		Status:        status,
	}
}

func (m *mockBookings) ListByDate(_ context.Context, date string) ([]*models.Booking, error) {
	if m.panicked {
		panic("boom")
	}
	m.dates = append(m.dates, date)
	if m.listErr != nil {
		return nil, m.listErr
	}
	late := sampleBooking(models.StatusCancelled)
	late.TimeSlot = "20:00-21:00"
	return []*models.Booking{late, sampleBooking(models.StatusConfirmed)}, nil
}

func (m *mockBookings) CheckAvailability(_ context.Context, date, slot string) (*models.Availability, error) {
	return &models.Availability{Date: date, TimeSlot: slot, AvailableSeats: 45, TotalSeats: 50, BookedSeats: 5}, nil
}

func (m *mockBookings) apply(id string, status models.Status, arrival models.ArrivalState) (*models.Booking, error) {
	if id != bookingID {
		if len(id) != len(bookingID) {
			return nil, domain.InvalidIDf("Invalid booking ID")
		}
		return nil, domain.NotFoundf("Booking not found")
	}
	b := sampleBooking(status)
	b.Arrival = arrival
	return b, nil
}

func (m *mockBookings) Cancel(_ context.Context, id string) (*models.Booking, error) {
	return m.apply(id, models.StatusCancelled, models.ArrivalUnknown)
}

func (m *mockBookings) ArrivalYes(_ context.Context, id string) (*models.Booking, error) {
	return m.apply(id, models.StatusConfirmed, models.ArrivalArrived)
}

func (m *mockBookings) ArrivalNo(_ context.Context, id string) (*models.Booking, error) {
	return m.apply(id, models.StatusCancelled, models.ArrivalNoShow)
}

func (m *mockBookings) Complete(_ context.Context, id string) (*models.Booking, error) {
	return m.apply(id, models.StatusCompleted, models.ArrivalArrived)
}

type mockSweeper struct {
	result scheduler.Result
}

func (m *mockSweeper) RunOnce(context.Context) (scheduler.Result, error) {
	return m.result, nil
}

type mockExporter struct {
	from, to string
}

func (m *mockExporter) SaveFile(_ context.Context, from, to string) (string, error) {
	if from > to {
		return "", domain.Validationf("from must not be after to")
	}
	m.from, m.to = from, to
	return "/tmp/exports/bookings.xlsx", nil
}

type fixture struct {
	bot      *Bot
	tg       *mockTelegram
	bookings *mockBookings
	exporter *mockExporter
}

func newFixture(t *testing.T, deps Deps) *fixture {
	t.Helper()
	logger := zerolog.Nop()
	tg := &mockTelegram{updates: make(chan tgbotapi.Update, 1)}
	f := &fixture{tg: tg, bookings: &mockBookings{}, exporter: &mockExporter{}}
	if deps.Bookings == nil {
		deps.Bookings = f.bookings
	}
	ist := time.FixedZone("IST", 5*3600+1800)
	f.bot = NewBot(tg, deps, []int64{managerID}, ist, &logger)
	f.bot.SetClock(func() time.Time { return time.Date(2026, 1, 20, 20, 0, 0, 0, time.UTC) })
	return f
}

func command(from int64, text string) tgbotapi.Update {
	n := strings.IndexByte(text, ' ')
	if n < 0 {
		n = len(text)
	}
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: from},
		Chat:     &tgbotapi.Chat{ID: from},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: n}},
	}}
}

func (f *fixture) send(text string) string {
	f.bot.processUpdate(context.Background(), command(managerID, text))
	return f.tg.last()
}

func TestAccessDenied(t *testing.T) {
	f := newFixture(t, Deps{})

	f.bot.processUpdate(context.Background(), command(strangerID, "/today"))

	assert.Equal(t, []string{accessDeniedText}, f.tg.texts())
	assert.Empty(t, f.bookings.dates)
}

func TestHelpAndUnknown(t *testing.T) {
	f := newFixture(t, Deps{})

	assert.Equal(t, helpText, f.send("/help"))
	assert.Equal(t, helpText, f.send("/start"))
	assert.Equal(t, unknownCommandText, f.send("/frobnicate"))

	f.bot.processUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: managerID},
		Chat: &tgbotapi.Chat{ID: managerID},
		Text: "hello",
	}})
	assert.Equal(t, unknownCommandText, f.tg.last())
}

func TestBookingList(t *testing.T) {
	f := newFixture(t, Deps{})

	t.Run("TodayUsesVenueDate", func(t *testing.T) {
		text := f.send("/today")
		// 20:00 UTC is already the next day in IST.
		assert.Equal(t, "2026-01-21", f.bookings.dates[len(f.bookings.dates)-1])
		assert.True(t, strings.HasPrefix(text, "📅 2026-01-21"))
		assert.Less(t, strings.Index(text, "19:00-20:00"), strings.Index(text, "20:00-21:00"))
		assert.Contains(t, text, "Active: 1 booking(s), 2 seat(s)")
	})

	t.Run("ByDate", func(t *testing.T) {
		f.send("/bookings 2026-02-01")
		assert.Equal(t, "2026-02-01", f.bookings.dates[len(f.bookings.dates)-1])

		assert.Equal(t, "Usage: /bookings YYYY-MM-DD", f.send("/bookings"))
	})

	t.Run("Empty", func(t *testing.T) {
		assert.Equal(t, "📅 2026-01-21\n\nNo bookings.", formatBookingList("2026-01-21", nil))
	})

	t.Run("ClientErrorIsShown", func(t *testing.T) {
		f.bookings.listErr = domain.Validationf("Invalid date format")
		defer func() { f.bookings.listErr = nil }()
		assert.Equal(t, "⚠️ Invalid date format", f.send("/bookings 01/02/2026"))
	})

	t.Run("InternalErrorIsHidden", func(t *testing.T) {
		f.bookings.listErr = errors.New("disk I/O error")
		defer func() { f.bookings.listErr = nil }()
		assert.Equal(t, internalErrorText, f.send("/today"))
	})
}

func TestAvailability(t *testing.T) {
	f := newFixture(t, Deps{})

	assert.Equal(t, "🪑 2026-01-21 19:00-20:00\nAvailable: 45 of 50\nBooked: 5", f.send("/availability 2026-01-21 19:00-20:00"))
	assert.Equal(t, "Usage: /availability YYYY-MM-DD HH:MM-HH:MM", f.send("/availability 2026-01-21"))
}

func TestTransitions(t *testing.T) {
	f := newFixture(t, Deps{})

	cases := map[string]string{
		"/arrived":  "✅ Arrival confirmed",
		"/noshow":   "🚫 Marked as no-show",
		"/complete": "🏁 Booking completed",
		"/cancel":   "❌ Booking cancelled",
	}
	for cmd, want := range cases {
		t.Run(cmd, func(t *testing.T) {
			text := f.send(cmd + " " + bookingID)
			assert.True(t, strings.HasPrefix(text, want), text)
			assert.Contains(t, text, "ID: "+bookingID)

			assert.Equal(t, "Usage: "+cmd+" <booking id>", f.send(cmd))
			assert.Equal(t, "⚠️ Invalid booking ID", f.send(cmd+" 12345"))
			assert.Equal(t, "⚠️ Booking not found", f.send(cmd+" 0b7c6a58-8a3e-4f7e-9a51-000000000000"))
		})
	}

	text := f.send("/noshow " + bookingID)
	assert.Contains(t, text, "Status: cancelled, arrival: no_show")
}

func TestSweepCommand(t *testing.T) {
	t.Run("Unavailable", func(t *testing.T) {
		f := newFixture(t, Deps{})
		assert.Equal(t, "Sweep is not available.", f.send("/sweep"))
	})

	t.Run("Result", func(t *testing.T) {
		f := newFixture(t, Deps{Sweeper: &mockSweeper{result: scheduler.Result{Scanned: 4, Reminders: 2, AutoCancelled: 1}}})
		text := f.send("/sweep")
		assert.Contains(t, text, "Scanned: 4")
		assert.Contains(t, text, "Reminders: 2")
		assert.Contains(t, text, "Auto-cancelled: 1")
	})

	t.Run("Skipped", func(t *testing.T) {
		f := newFixture(t, Deps{Sweeper: &mockSweeper{result: scheduler.Result{Skipped: true}}})
		assert.Equal(t, "⏳ A sweep is already running.", f.send("/sweep"))
	})
}

func TestExportCommand(t *testing.T) {
	exporter := &mockExporter{}
	f := newFixture(t, Deps{Exporter: exporter})

	f.bot.processUpdate(context.Background(), command(managerID, "/export 2026-01-01 2026-01-31"))
	assert.Equal(t, "2026-01-01", exporter.from)
	assert.Equal(t, "2026-01-31", exporter.to)

	f.tg.mu.Lock()
	doc, ok := f.tg.sent[len(f.tg.sent)-1].(tgbotapi.DocumentConfig)
	f.tg.mu.Unlock()
	require.True(t, ok)
	assert.Equal(t, "Bookings 2026-01-01 to 2026-01-31", doc.Caption)
	assert.Equal(t, tgbotapi.FilePath("/tmp/exports/bookings.xlsx"), doc.File)

	assert.Equal(t, "⚠️ from must not be after to", f.send("/export 2026-02-01 2026-01-01"))
	assert.Equal(t, "Usage: /export YYYY-MM-DD YYYY-MM-DD", f.send("/export 2026-02-01"))

	none := newFixture(t, Deps{})
	assert.Equal(t, "Export is not available.", none.send("/export 2026-01-01 2026-01-31"))
}

func TestPanicIsRecovered(t *testing.T) {
	f := newFixture(t, Deps{})
	f.bookings.panicked = true

	assert.Equal(t, internalErrorText, f.send("/today"))
}

func TestStartAndStop(t *testing.T) {
	f := newFixture(t, Deps{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = f.bot.Run(ctx)
	}()

	f.tg.updates <- command(managerID, "/help")
	require.Eventually(t, func() bool { return f.tg.last() == helpText }, time.Second, 10*time.Millisecond)

	f.bot.Stop()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("console did not stop")
	}

	f.tg.mu.Lock()
	defer f.tg.mu.Unlock()
	assert.True(t, f.tg.stopped)
}
