package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "seatbooking"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_created_total",
			Help:      "Bookings persisted.",
		},
	)

	bookingRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_rejections_total",
			Help:      "Booking create/update requests rejected, by error kind.",
		},
		[]string{"reason"},
	)

	lockConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_lock_conflicts_total",
			Help:      "Slot lock requests refused because the slot was already held.",
		},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification attempts by kind, channel and outcome.",
		},
		[]string{"kind", "channel", "outcome"},
	)

	sweepRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_runs_total",
			Help:      "Lifecycle sweep runs by outcome.",
		},
		[]string{"outcome"},
	)

	sweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Wall time of a lifecycle sweep run.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	sweepTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_transitions_total",
			Help:      "Reminders, time alerts and auto-cancels applied by the sweep.",
		},
		[]string{"transition"},
	)

	botCommands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telegram_commands_total",
			Help:      "Manager console commands by name.",
		},
		[]string{"command"},
	)

	botUpdateDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "telegram_update_processing_seconds",
			Help:      "Time spent processing a Telegram update.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			bookingsCreated,
			bookingRejections,
			lockConflicts,
			notifications,
			sweepRuns,
			sweepDuration,
			sweepTransitions,
			botCommands,
			botUpdateDuration,
		)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncBookingCreated() {
	bookingsCreated.Inc()
}

func IncBookingRejected(reason string) {
	bookingRejections.WithLabelValues(reason).Inc()
}

func IncLockConflict() {
	lockConflicts.Inc()
}

func ObserveNotification(kind, channel string, ok bool) {
	outcome := "failed"
	if ok {
		outcome = "sent"
	}
	notifications.WithLabelValues(kind, channel, outcome).Inc()
}

// ObserveSweep records one sweep run. skipped marks a tick dropped because
// the previous run was still in progress.
func ObserveSweep(started time.Time, skipped bool, err error) {
	switch {
	case skipped:
		sweepRuns.WithLabelValues("skipped").Inc()
		return
	case err != nil:
		sweepRuns.WithLabelValues("error").Inc()
	default:
		sweepRuns.WithLabelValues("ok").Inc()
	}
	sweepDuration.Observe(time.Since(started).Seconds())
}

func IncSweepTransition(transition string) {
	sweepTransitions.WithLabelValues(transition).Inc()
}

func IncBotCommand(command string) {
	botCommands.WithLabelValues(command).Inc()
}

func ObserveBotUpdate(started time.Time) {
	botUpdateDuration.Observe(time.Since(started).Seconds())
}
