package notify

import (
	"context"
	"fmt"

	"seatbooking/internal/domain"
	"seatbooking/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// TelegramAlerter pushes operational alerts (auto-cancels, no-shows) to
// manager chats.
type TelegramAlerter struct {
	bot      domain.TelegramSender
	managers []int64
	logger   *zerolog.Logger
}

// NewTelegramBot logs in with the bot token.
func NewTelegramBot(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return bot, nil
}

func NewTelegramAlerter(bot domain.TelegramSender, managers []int64, logger *zerolog.Logger) *TelegramAlerter {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &TelegramAlerter{bot: bot, managers: managers, logger: logger}
}

// AlertManagers sends text to every manager. It returns the first error but
// still tries the remaining chats.
func (a *TelegramAlerter) AlertManagers(ctx context.Context, text string) error {
	var firstErr error
	for _, chatID := range a.managers {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(chatID, text)
		if _, err := a.bot.Send(msg); err != nil {
			a.logger.Error().Err(err).Int64("chat_id", chatID).Msg("manager alert failed")
			if firstErr == nil {
				firstErr = domain.External(err, "telegram alert")
			}
		}
	}
	return firstErr
}

// AutoCancelText describes an auto-cancelled booking for managers.
func AutoCancelText(b *models.Booking) string {
	return fmt.Sprintf("Booking auto-cancelled (no arrival)\n%s %s\n%s, %d seat(s)\nPhone: %s\nID: %s",
		b.BookingDate, b.TimeSlot, b.CustomerName, b.NumberOfSeats, b.CustomerPhone, b.ID)
}

// NoShowText describes a customer declining through the reminder link.
func NoShowText(b *models.Booking) string {
	return fmt.Sprintf("Customer declined booking\n%s %s\n%s, %d seat(s)\nID: %s",
		b.BookingDate, b.TimeSlot, b.CustomerName, b.NumberOfSeats, b.ID)
}
