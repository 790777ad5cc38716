package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncHTTP("test_endpoint")
		IncBookingCreated()
		IncBookingRejected("capacity")
		IncLockConflict()
		ObserveSweep(time.Now(), false, nil)
		ObserveSweep(time.Now(), false, errors.New("boom"))
		ObserveSweep(time.Now(), true, nil)
		IncSweepTransition("reminder")
	})
}

func TestObserveNotification(t *testing.T) {
	before := testutil.ToFloat64(notifications.WithLabelValues("reminder", "sms", "sent"))
	ObserveNotification("reminder", "sms", true)
	ObserveNotification("reminder", "sms", false)

	assert.Equal(t, before+1, testutil.ToFloat64(notifications.WithLabelValues("reminder", "sms", "sent")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(notifications.WithLabelValues("reminder", "sms", "failed")), 1.0)
}
