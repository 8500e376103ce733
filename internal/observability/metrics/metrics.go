package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AssistantMetrics exposes counters/histograms for the booking assistant.
type AssistantMetrics struct {
	turnsTotal          *prometheus.CounterVec
	turnLatency         *prometheus.HistogramVec
	recordingsTotal     *prometheus.CounterVec
	transcriptionsTotal *prometheus.CounterVec
	suggestionsTotal    *prometheus.CounterVec
	bookingsTotal       *prometheus.CounterVec
}

func NewAssistantMetrics(reg prometheus.Registerer) *AssistantMetrics {
	m := &AssistantMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assistant",
			Subsystem: "conversation",
			Name:      "turns_total",
			Help:      "Total conversational turns by source and outcome",
		}, []string{"source", "outcome"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "assistant",
			Subsystem: "conversation",
			Name:      "turn_latency_seconds",
			Help:      "Latency of the backend converse call",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		recordingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assistant",
			Subsystem: "voice",
			Name:      "recordings_total",
			Help:      "Total hold-to-record gestures by outcome",
		}, []string{"outcome"}),
		transcriptionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assistant",
			Subsystem: "voice",
			Name:      "transcriptions_total",
			Help:      "Total transcription requests by outcome",
		}, []string{"outcome"}),
		suggestionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assistant",
			Subsystem: "booking",
			Name:      "suggestions_total",
			Help:      "Total booking modal openings by trigger",
		}, []string{"trigger"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "assistant",
			Subsystem: "booking",
			Name:      "submissions_total",
			Help:      "Total booking submissions by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.turnLatency, m.recordingsTotal, m.transcriptionsTotal, m.suggestionsTotal, m.bookingsTotal)
	return m
}

// ObserveTurn records one turn. source is "typed" or "voice"; outcome is
// "ok", "error" or "network_error".
func (m *AssistantMetrics) ObserveTurn(source, outcome string, latency time.Duration) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(source, outcome).Inc()
	m.turnLatency.WithLabelValues(outcome).Observe(latency.Seconds())
}

func (m *AssistantMetrics) ObserveRecording(outcome string) {
	if m == nil {
		return
	}
	m.recordingsTotal.WithLabelValues(outcome).Inc()
}

func (m *AssistantMetrics) ObserveTranscription(outcome string) {
	if m == nil {
		return
	}
	m.transcriptionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveModalOpen records what opened the booking modal: "doctors",
// "patient_info", "suggestion", "manual" or "book_now".
func (m *AssistantMetrics) ObserveModalOpen(trigger string) {
	if m == nil {
		return
	}
	m.suggestionsTotal.WithLabelValues(trigger).Inc()
}

func (m *AssistantMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}
