package observability

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestTrackUptime(t *testing.T) {
	// Separate namespace; DefaultMetrics already owns the default one.
	m := NewMetrics("uptime_test")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.TrackUptime(ctx, time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for testutil.ToFloat64(m.UptimeSeconds) == 0 {
		select {
		case <-deadline:
			t.Fatal("uptime counter never incremented")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("uptime tracking did not stop on cancellation")
	}
}
