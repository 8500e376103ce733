package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestAssistantMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAssistantMetrics(reg)

	m.ObserveTurn("typed", "ok", 120*time.Millisecond)
	m.ObserveTurn("voice", "ok", time.Second)
	m.ObserveTurn("typed", "network_error", time.Second)
	m.ObserveRecording("too_short")
	m.ObserveTranscription("empty")
	m.ObserveModalOpen("suggestion")
	m.ObserveBooking("created")
	m.ObserveBooking("created")

	if got := testutil.ToFloat64(m.turnsTotal.WithLabelValues("typed", "ok")); got != 1 {
		t.Fatalf("typed ok turns = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.turnsTotal); got != 3 {
		t.Fatalf("turn series = %d, want 3", got)
	}
	if got := testutil.ToFloat64(m.bookingsTotal.WithLabelValues("created")); got != 2 {
		t.Fatalf("created bookings = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.recordingsTotal.WithLabelValues("too_short")); got != 1 {
		t.Fatalf("too_short recordings = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.turnLatency); got != 2 {
		t.Fatalf("latency series = %d, want 2", got)
	}
}

func TestAssistantMetricsDefaultRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	prev := prometheus.DefaultRegisterer
	prometheus.DefaultRegisterer = reg
	defer func() { prometheus.DefaultRegisterer = prev }()

	m := NewAssistantMetrics(nil)
	m.ObserveModalOpen("manual")
	if got := testutil.ToFloat64(m.suggestionsTotal.WithLabelValues("manual")); got != 1 {
		t.Fatalf("manual openings = %v, want 1", got)
	}
}

func TestAssistantMetricsNilSafe(t *testing.T) {
	var m *AssistantMetrics
	m.ObserveTurn("typed", "ok", time.Millisecond)
	m.ObserveRecording("ok")
	m.ObserveTranscription("ok")
	m.ObserveModalOpen("doctors")
	m.ObserveBooking("created")
}
