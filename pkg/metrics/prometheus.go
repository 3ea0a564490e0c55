package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	signalsTotal      *prometheus.CounterVec
	predictorOutcomes *prometheus.CounterVec
	regimeGauge       *prometheus.GaugeVec
	vetoesTotal       *prometheus.CounterVec
	missedTicks       *prometheus.CounterVec
	messagesSent      *prometheus.CounterVec
	errorsTotal       *prometheus.CounterVec
	lastPrice         *prometheus.GaugeVec
	latency           *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		signalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalforge_signals_total",
				Help: "Trade signals decided, by symbol and direction",
			},
			[]string{"symbol", "direction"},
		),
		predictorOutcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalforge_predictor_outcomes_total",
				Help: "Predictor calls by model and outcome",
			},
			[]string{"model", "outcome"},
		),
		regimeGauge: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "signalforge_regime",
				Help: "Committed regime per symbol, 1 for the active label",
			},
			[]string{"symbol", "regime"},
		),
		vetoesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalforge_risk_adjustments_total",
				Help: "Risk gate adjustments and vetoes by rule",
			},
			[]string{"rule"},
		),
		missedTicks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalforge_missed_ticks_total",
				Help: "Cycles that blew the deadline, by symbol",
			},
			[]string{"symbol"},
		),
		messagesSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalforge_messages_sent_total",
				Help: "Total number of messages sent to backend",
			},
			[]string{"backend", "symbol"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalforge_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "signalforge_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signalforge_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordSignal records one decided trade signal.
func (r *Recorder) RecordSignal(symbol, direction string) {
	r.signalsTotal.WithLabelValues(symbol, direction).Inc()
}

// RecordPredictorOutcome records one predictor call result.
func (r *Recorder) RecordPredictorOutcome(model, outcome string) {
	r.predictorOutcomes.WithLabelValues(model, outcome).Inc()
}

// RecordRegime marks the active regime for a symbol.
func (r *Recorder) RecordRegime(symbol, regime string) {
	r.regimeGauge.WithLabelValues(symbol, regime).Set(1)
}

// RecordVeto records a risk gate adjustment by rule.
func (r *Recorder) RecordVeto(rule string) {
	r.vetoesTotal.WithLabelValues(rule).Inc()
}

// RecordMissedTick records a blown cycle deadline.
func (r *Recorder) RecordMissedTick(symbol string) {
	r.missedTicks.WithLabelValues(symbol).Inc()
}

// RecordMessageSent records a message sent to a backend.
func (r *Recorder) RecordMessageSent(backend, symbol string) {
	r.messagesSent.WithLabelValues(backend, symbol).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
