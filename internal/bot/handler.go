package bot

import (
	"context"
	"fmt"
	"strings"

	"seatbooking/internal/metrics"
	"seatbooking/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const helpText = `Manager commands:
/today - bookings for today
/bookings YYYY-MM-DD - bookings for a date
/availability YYYY-MM-DD HH:MM-HH:MM - free seats in a slot
/arrived <id> - confirm arrival
/noshow <id> - mark as no-show (cancels)
/complete <id> - mark as completed
/cancel <id> - cancel
/sweep - run the reminder and auto-cancel sweep now
/export YYYY-MM-DD YYYY-MM-DD - bookings workbook`

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if !msg.IsCommand() {
		b.reply(chatID, unknownCommandText)
		return
	}

	command := msg.Command()
	args := strings.Fields(msg.CommandArguments())
	metrics.IncBotCommand(command)
	zerolog.Ctx(ctx).Debug().Str("command", command).Strs("args", args).Msg("console command")

	switch command {
	case "start", "help":
		b.reply(chatID, helpText)
	case "today":
		b.listBookings(ctx, chatID, b.now().In(b.loc).Format(models.DateLayout))
	case "bookings":
		if len(args) != 1 {
			b.reply(chatID, "Usage: /bookings YYYY-MM-DD")
			return
		}
		b.listBookings(ctx, chatID, args[0])
	case "availability":
		b.availability(ctx, chatID, args)
	case "arrived":
		b.transition(ctx, chatID, command, args, b.bookings.ArrivalYes, "✅ Arrival confirmed")
	case "noshow":
		b.transition(ctx, chatID, command, args, b.bookings.ArrivalNo, "🚫 Marked as no-show")
	case "complete":
		b.transition(ctx, chatID, command, args, b.bookings.Complete, "🏁 Booking completed")
	case "cancel":
		b.transition(ctx, chatID, command, args, b.bookings.Cancel, "❌ Booking cancelled")
	case "sweep":
		b.sweep(ctx, chatID)
	case "export":
		b.export(ctx, chatID, args)
	default:
		b.reply(chatID, unknownCommandText)
	}
}

func (b *Bot) listBookings(ctx context.Context, chatID int64, date string) {
	list, err := b.bookings.ListByDate(ctx, date)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.reply(chatID, formatBookingList(date, list))
}

func (b *Bot) availability(ctx context.Context, chatID int64, args []string) {
	if len(args) != 2 {
		b.reply(chatID, "Usage: /availability YYYY-MM-DD HH:MM-HH:MM")
		return
	}
	av, err := b.bookings.CheckAvailability(ctx, args[0], args[1])
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.reply(chatID, formatAvailability(av))
}

func (b *Bot) transition(
	ctx context.Context,
	chatID int64,
	command string,
	args []string,
	apply func(context.Context, string) (*models.Booking, error),
	done string,
) {
	if len(args) != 1 {
		b.reply(chatID, fmt.Sprintf("Usage: /%s <booking id>", command))
		return
	}
	booking, err := apply(ctx, args[0])
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.reply(chatID, done+"\n\n"+formatBooking(booking))
}

func (b *Bot) sweep(ctx context.Context, chatID int64) {
	if b.sweeper == nil {
		b.reply(chatID, "Sweep is not available.")
		return
	}
	res, err := b.sweeper.RunOnce(ctx)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.reply(chatID, formatSweep(res))
}

func (b *Bot) export(ctx context.Context, chatID int64, args []string) {
	if b.exporter == nil {
		b.reply(chatID, "Export is not available.")
		return
	}
	if len(args) != 2 {
		b.reply(chatID, "Usage: /export YYYY-MM-DD YYYY-MM-DD")
		return
	}
	path, err := b.exporter.SaveFile(ctx, args[0], args[1])
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	doc.Caption = fmt.Sprintf("Bookings %s to %s", args[0], args[1])
	if _, err := b.tg.Send(doc); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("path", path).Msg("send export failed")
		b.reply(chatID, "Export saved but could not be sent: "+path)
	}
}
