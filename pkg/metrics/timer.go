package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Timer captures a start instant for latency observations. The zero value is
// not useful; obtain one from StartTimer.
type Timer struct {
	start time.Time
}

// StartTimer begins timing now.
func StartTimer() Timer {
	return Timer{start: time.Now()}
}

// Elapsed returns the time since the timer started.
func (t Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// Observe records the elapsed seconds into the histogram.
func (t Timer) Observe(h prometheus.Histogram) {
	h.Observe(t.Elapsed().Seconds())
}

// ObserveLabeled records the elapsed seconds into the labeled histogram.
func (t Timer) ObserveLabeled(h *prometheus.HistogramVec, labels ...string) {
	h.WithLabelValues(labels...).Observe(t.Elapsed().Seconds())
}
