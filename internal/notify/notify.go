package notify

import (
	"context"

	"seatbooking/internal/domain"
	"seatbooking/internal/metrics"
	"seatbooking/internal/models"

	"github.com/rs/zerolog"
)

// Channel delivers one message through one provider.
type Channel interface {
	Name() models.Channel
	Send(ctx context.Context, kind models.NotificationKind, b *models.Booking) error
}

// Dispatcher fans a notification out to the channels a booking asked for.
// A send counts as delivered when at least one channel accepted it.
type Dispatcher struct {
	channels map[models.Channel]Channel
	logger   *zerolog.Logger
}

func NewDispatcher(logger *zerolog.Logger, channels ...Channel) *Dispatcher {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	d := &Dispatcher{channels: make(map[models.Channel]Channel), logger: logger}
	for _, ch := range channels {
		if ch != nil {
			d.channels[ch.Name()] = ch
		}
	}
	return d
}

func (d *Dispatcher) SendConfirmation(ctx context.Context, b *models.Booking) bool {
	return d.dispatch(ctx, models.NotifyConfirmation, b)
}

func (d *Dispatcher) SendReminder(ctx context.Context, b *models.Booking) bool {
	return d.dispatch(ctx, models.NotifyReminder, b)
}

func (d *Dispatcher) SendTimeAlert(ctx context.Context, b *models.Booking) bool {
	return d.dispatch(ctx, models.NotifyTimeAlert, b)
}

func (d *Dispatcher) SendCancellation(ctx context.Context, b *models.Booking) bool {
	return d.dispatch(ctx, models.NotifyCancellation, b)
}

func (d *Dispatcher) dispatch(ctx context.Context, kind models.NotificationKind, b *models.Booking) bool {
	pref := b.NotificationPreference
	if !pref.Valid() {
		pref = models.PreferenceBoth
	}

	sent := false
	for _, name := range pref.Channels() {
		ch, ok := d.channels[name]
		if !ok {
			continue
		}
		err := ch.Send(ctx, kind, b)
		metrics.ObserveNotification(string(kind), string(name), err == nil)
		if err != nil {
			err = domain.External(err, string(name)+" "+string(kind))
			d.logger.Warn().Err(err).
				Str("booking_id", b.ID).
				Str("channel", string(name)).
				Str("kind", string(kind)).
				Msg("notification failed")
			continue
		}
		d.logger.Info().
			Str("booking_id", b.ID).
			Str("channel", string(name)).
			Str("kind", string(kind)).
			Msg("notification sent")
		sent = true
	}
	return sent
}
