package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"seatbooking/internal/config"
	"seatbooking/internal/domain"
	"seatbooking/internal/events"
	"seatbooking/internal/metrics"
	"seatbooking/internal/models"
	"seatbooking/internal/notify"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("seatbooking/internal/scheduler")

// Result summarizes one sweep run.
type Result struct {
	Scanned       int  `json:"scanned"`
	Reminders     int  `json:"reminders"`
	TimeAlerts    int  `json:"timeAlerts"`
	AutoCancelled int  `json:"autoCancelled"`
	Failed        int  `json:"failed"`
	Skipped       bool `json:"skipped"`
}

// Sweeper drives the time-based booking transitions: reminders, time
// alerts and auto-cancel of no-shows. Runs never overlap; a tick that fires
// while the previous run is still going is dropped.
type Sweeper struct {
	repo      domain.BookingRepository
	notifier  domain.Notifier
	alerter   domain.ManagerAlerter
	eventBus  domain.EventPublisher
	interval  time.Duration
	lookback  time.Duration
	lookahead time.Duration
	now       func() time.Time
	logger    *zerolog.Logger

	running atomic.Bool
	runs    sync.WaitGroup
	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewSweeper(
	repo domain.BookingRepository,
	notifier domain.Notifier,
	eventBus domain.EventPublisher,
	cfg config.SchedulerConfig,
	logger *zerolog.Logger,
) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 24 * time.Hour
	}
	if cfg.Lookahead <= 0 {
		cfg.Lookahead = 30 * time.Minute
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Sweeper{
		repo:      repo,
		notifier:  notifier,
		eventBus:  eventBus,
		interval:  cfg.Interval,
		lookback:  cfg.Lookback,
		lookahead: cfg.Lookahead,
		now:       time.Now,
		logger:    logger,
	}
}

func (s *Sweeper) SetAlerter(a domain.ManagerAlerter) {
	s.alerter = a
}

func (s *Sweeper) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Start launches the ticker loop in the background. Calling Start on a
// running sweeper does nothing.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		s.loop(ctx)
	}(s.done)
	s.logger.Info().Dur("interval", s.interval).Msg("sweep scheduler started")
}

// Stop cancels the loop and waits for an in-flight run to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.runs.Wait()
	s.logger.Info().Msg("sweep scheduler stopped")
}

// Run blocks until ctx is done, sweeping every interval.
func (s *Sweeper) Run(ctx context.Context) error {
	s.loop(ctx)
	s.runs.Wait()
	return nil
}

func (s *Sweeper) loop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Each run gets its own goroutine so a slow run shows up as
			// skipped ticks instead of a drifting ticker.
			s.runs.Add(1)
			go func() {
				defer s.runs.Done()
				if _, err := s.RunOnce(ctx); err != nil {
					s.logger.Error().Err(err).Msg("sweep failed")
				}
			}()
		}
	}
}

// RunOnce performs a single sweep. If another run is in progress it returns
// immediately with Result.Skipped set.
func (s *Sweeper) RunOnce(ctx context.Context) (Result, error) {
	started := time.Now()
	if !s.running.CompareAndSwap(false, true) {
		metrics.ObserveSweep(started, true, nil)
		s.logger.Warn().Msg("previous sweep still running, skipping tick")
		return Result{Skipped: true}, nil
	}
	defer s.running.Store(false)

	ctx, span := tracer.Start(ctx, "Sweeper.RunOnce")
	defer span.End()

	res, err := s.sweep(ctx)
	metrics.ObserveSweep(started, false, err)
	span.SetAttributes(
		attribute.Int("sweep.scanned", res.Scanned),
		attribute.Int("sweep.reminders", res.Reminders),
		attribute.Int("sweep.time_alerts", res.TimeAlerts),
		attribute.Int("sweep.auto_cancelled", res.AutoCancelled),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sweep failed")
		return res, err
	}

	if res.Reminders+res.TimeAlerts+res.AutoCancelled+res.Failed > 0 {
		s.logger.Info().
			Int("scanned", res.Scanned).
			Int("reminders", res.Reminders).
			Int("time_alerts", res.TimeAlerts).
			Int("auto_cancelled", res.AutoCancelled).
			Int("failed", res.Failed).
			Dur("took", time.Since(started)).
			Msg("sweep finished")
	}
	return res, nil
}

func (s *Sweeper) sweep(ctx context.Context) (Result, error) {
	var res Result
	now := s.now()
	candidates, err := s.repo.ListConfirmedBetween(ctx, now.Add(-s.lookback), now.Add(s.lookahead))
	if err != nil {
		return res, domain.Persistence(err, "failed to list bookings for sweep")
	}
	res.Scanned = len(candidates)

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if Plan(c, now) == ActionNone {
			continue
		}

		// Re-read so a change made since the listing (arrival, cancel,
		// another sweep) is respected.
		b, err := s.repo.GetBooking(ctx, c.ID)
		if err != nil {
			if domain.KindOf(err) != domain.KindNotFound {
				s.logger.Error().Err(err).Str("booking_id", c.ID).Msg("sweep: reload booking error")
				res.Failed++
			}
			continue
		}

		switch Plan(b, now) {
		case ActionReminder:
			if s.notifyOnce(ctx, b, models.NotifyReminder) {
				res.Reminders++
			}
		case ActionTimeAlert:
			if s.notifyOnce(ctx, b, models.NotifyTimeAlert) {
				res.TimeAlerts++
			}
		case ActionAutoCancel:
			ok, err := s.autoCancel(ctx, b)
			if err != nil {
				res.Failed++
			} else if ok {
				res.AutoCancelled++
			}
		}
	}
	return res, nil
}

// notifyOnce sends the message and records the sent flag. The flag is only
// written when a channel accepted the message, so a failed send is retried
// on the next tick while the window is still open.
func (s *Sweeper) notifyOnce(ctx context.Context, b *models.Booking, kind models.NotificationKind) bool {
	var sent bool
	switch kind {
	case models.NotifyReminder:
		sent = s.notifier.SendReminder(ctx, b)
	case models.NotifyTimeAlert:
		sent = s.notifier.SendTimeAlert(ctx, b)
	}
	if !sent {
		s.logger.Warn().Str("booking_id", b.ID).Str("kind", string(kind)).Msg("sweep: notification not delivered")
		return false
	}

	flipped, err := s.repo.MarkNotified(ctx, b.ID, kind)
	if err != nil {
		s.logger.Error().Err(err).Str("booking_id", b.ID).Str("kind", string(kind)).Msg("sweep: mark notified error")
		return false
	}
	if !flipped {
		return false
	}

	metrics.IncSweepTransition(string(kind))
	eventType := events.EventReminderSent
	if kind == models.NotifyTimeAlert {
		eventType = events.EventTimeAlertSent
		b.TimeAlertSent = true
	} else {
		b.ReminderSent = true
	}
	s.publish(ctx, eventType, b)
	return true
}

func (s *Sweeper) autoCancel(ctx context.Context, b *models.Booking) (bool, error) {
	cancelled, changed, err := s.repo.ApplyTransition(ctx, b.ID, models.EventAutoCancel)
	if err != nil {
		if domain.KindOf(err) == domain.KindConflict {
			// Arrival was confirmed or the booking was closed in the meantime.
			s.logger.Debug().Err(err).Str("booking_id", b.ID).Msg("sweep: auto-cancel no longer applies")
			return false, nil
		}
		s.logger.Error().Err(err).Str("booking_id", b.ID).Msg("sweep: auto-cancel error")
		return false, err
	}
	if !changed {
		return false, nil
	}

	metrics.IncSweepTransition(string(ActionAutoCancel))
	s.logger.Info().
		Str("booking_id", cancelled.ID).
		Str("date", cancelled.BookingDate).
		Str("slot", cancelled.TimeSlot).
		Msg("booking auto-cancelled")

	if !s.notifier.SendCancellation(ctx, cancelled) {
		s.logger.Warn().Str("booking_id", cancelled.ID).Msg("sweep: cancellation notice not delivered")
	}
	if s.alerter != nil {
		if err := s.alerter.AlertManagers(ctx, notify.AutoCancelText(cancelled)); err != nil {
			s.logger.Warn().Err(err).Str("booking_id", cancelled.ID).Msg("sweep: manager alert failed")
		}
	}
	s.publish(ctx, events.EventBookingAutoCancelled, cancelled)
	return true, nil
}

func (s *Sweeper) publish(ctx context.Context, eventType string, b *models.Booking) {
	if err := events.PublishBooking(ctx, s.eventBus, eventType, b, "scheduler", s.now()); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("booking_id", b.ID).Msg("publish event error")
	}
}
