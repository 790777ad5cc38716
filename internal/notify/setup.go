package notify

import (
	"seatbooking/internal/config"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// FromConfig builds the customer dispatcher for the enabled channels and,
// when configured, the Telegram manager alerter together with the logged-in
// bot client. A failed Telegram login disables alerts rather than failing
// startup.
func FromConfig(cfg config.NotificationConfig, logger *zerolog.Logger) (*Dispatcher, *TelegramAlerter, *tgbotapi.BotAPI) {
	renderer := NewRenderer(cfg.FrontendURL)

	var channels []Channel
	if cfg.Email.Enabled {
		channels = append(channels, NewEmailChannel(cfg.Email, renderer))
	}
	if cfg.SMS.Enabled {
		channels = append(channels, NewSMSChannel(cfg.SMS, renderer))
	}
	dispatcher := NewDispatcher(logger, channels...)

	if !cfg.Telegram.Enabled {
		return dispatcher, nil, nil
	}
	bot, err := NewTelegramBot(cfg.Telegram.BotToken)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram login failed, manager alerts disabled")
		return dispatcher, nil, nil
	}
	return dispatcher, NewTelegramAlerter(bot, cfg.Telegram.Managers, logger), bot
}
