package bot

import (
	"context"
	"time"

	"seatbooking/internal/metrics"
	"seatbooking/internal/models"
	"seatbooking/internal/scheduler"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const updateTimeout = 30 * time.Second

// TelegramAPI is the part of *tgbotapi.BotAPI the console needs.
type TelegramAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	StopReceivingUpdates()
}

type BookingManager interface {
	ListByDate(ctx context.Context, date string) ([]*models.Booking, error)
	CheckAvailability(ctx context.Context, date, slot string) (*models.Availability, error)
	Cancel(ctx context.Context, id string) (*models.Booking, error)
	ArrivalYes(ctx context.Context, id string) (*models.Booking, error)
	ArrivalNo(ctx context.Context, id string) (*models.Booking, error)
	Complete(ctx context.Context, id string) (*models.Booking, error)
}

type SweepRunner interface {
	RunOnce(ctx context.Context) (scheduler.Result, error)
}

type ExportWriter interface {
	SaveFile(ctx context.Context, from, to string) (string, error)
}

// Deps are the services behind the console commands. Sweeper and Exporter
// are optional.
type Deps struct {
	Bookings BookingManager
	Sweeper  SweepRunner
	Exporter ExportWriter
}

// Bot is the manager console: a command-driven Telegram chat for looking up
// bookings and moving them through their lifecycle. Only configured manager
// chats are served.
type Bot struct {
	tg       TelegramAPI
	bookings BookingManager
	sweeper  SweepRunner
	exporter ExportWriter
	managers map[int64]struct{}
	loc      *time.Location
	now      func() time.Time
	logger   *zerolog.Logger
}

func NewBot(tg TelegramAPI, deps Deps, managers []int64, loc *time.Location, logger *zerolog.Logger) *Bot {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if loc == nil {
		loc = time.UTC
	}
	ids := make(map[int64]struct{}, len(managers))
	for _, id := range managers {
		ids[id] = struct{}{}
	}
	return &Bot{
		tg:       tg,
		bookings: deps.Bookings,
		sweeper:  deps.Sweeper,
		exporter: deps.Exporter,
		managers: ids,
		loc:      loc,
		now:      time.Now,
		logger:   logger,
	}
}

func (b *Bot) SetClock(now func() time.Time) {
	b.now = now
}

// Start polls for updates until ctx is done or the update channel closes.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.tg.GetUpdatesChan(u)
	b.logger.Info().Int("managers", len(b.managers)).Msg("manager console started")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("manager console stopping")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}

// Run adapts Start for an errgroup.
func (b *Bot) Run(ctx context.Context) error {
	b.Start(ctx)
	return nil
}

// Stop stops receiving Telegram updates (best-effort).
func (b *Bot) Stop() {
	if b == nil || b.tg == nil {
		return
	}
	b.tg.StopReceivingUpdates()
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	start := time.Now()
	defer metrics.ObserveBotUpdate(start)

	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}

	updateCtx, cancel := context.WithTimeout(ctx, updateTimeout)
	defer cancel()

	l := b.logger.With().
		Str("request_id", uuid.NewString()).
		Int64("user_id", msg.From.ID).
		Logger()
	updateCtx = l.WithContext(updateCtx)

	b.withRecovery(msg.Chat.ID, func() {
		if !b.isManager(msg.From.ID) {
			l.Warn().Msg("console access denied")
			b.reply(msg.Chat.ID, accessDeniedText)
			return
		}
		b.handleMessage(updateCtx, msg)
	})
}

func (b *Bot) isManager(userID int64) bool {
	_, ok := b.managers[userID]
	return ok
}

func (b *Bot) withRecovery(chatID int64, handler func()) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().Interface("panic", r).Msg("recovered from panic in update handler")
			b.reply(chatID, internalErrorText)
		}
	}()
	handler()
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.tg.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("telegram send failed")
	}
}
