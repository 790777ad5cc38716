package bot

import (
	"context"

	"seatbooking/internal/domain"

	"github.com/rs/zerolog"
)

const (
	accessDeniedText   = "⛔ This console is for restaurant managers only."
	unknownCommandText = "Unknown command. Send /help for the list."
	internalErrorText  = "❌ Something went wrong. Please check the service logs."
)

// errorMessage turns a service error into chat text. Client-side errors keep
// their message; anything else is hidden behind a generic reply.
func errorMessage(err error) string {
	switch domain.KindOf(err) {
	case domain.KindValidation, domain.KindCapacity, domain.KindConflict,
		domain.KindNotFound, domain.KindInvalidID:
		return "⚠️ " + err.Error()
	}
	return internalErrorText
}

func (b *Bot) replyError(ctx context.Context, chatID int64, err error) {
	msg := errorMessage(err)
	if msg == internalErrorText {
		zerolog.Ctx(ctx).Error().Err(err).Msg("console command failed")
	}
	b.reply(chatID, msg)
}
