package usecase

import (
	"context"
	"encoding/json"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	pkgkafka "SignalForge/pkg/kafka"
)

// KafkaSnapshotHandler consumes snapshot messages from Kafka and drives the
// same pipeline as the live stream. Deployments without a direct feed run
// entirely off this topic.
type KafkaSnapshotHandler struct {
	topic   string
	proc    *SnapshotProcessor
	metrics domrepo.Metrics
}

func NewKafkaSnapshotHandler(topic string, proc *SnapshotProcessor, metrics domrepo.Metrics) *KafkaSnapshotHandler {
	return &KafkaSnapshotHandler{topic: topic, proc: proc, metrics: metrics}
}

func (h *KafkaSnapshotHandler) Topic() string { return h.topic }

// incoming message schema: {symbol, t, bid, ask, last, v, o, h, l, c}
func (h *KafkaSnapshotHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Symbol string  `json:"symbol"`
		T      int64   `json:"t"`
		Bid    float64 `json:"bid"`
		Ask    float64 `json:"ask"`
		Last   float64 `json:"last"`
		V      float64 `json:"v"`
		O      float64 `json:"o"`
		H      float64 `json:"h"`
		L      float64 `json:"l"`
		C      float64 `json:"c"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	var ts time.Time
	if m.T > 1e11 { // ms
		ts = time.UnixMilli(m.T).UTC()
	} else {
		ts = time.Unix(m.T, 0).UTC()
	}
	// E2E latency from event time to now (approx)
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(ts).Seconds())

	return h.proc.Process(ctx, &models.MarketSnapshot{
		Symbol:    m.Symbol,
		Timestamp: ts,
		Bid:       m.Bid,
		Ask:       m.Ask,
		Last:      m.Last,
		Volume:    m.V,
		Open:      m.O,
		High:      m.H,
		Low:       m.L,
		Close:     m.C,
	})
}

var _ pkgkafka.MessageHandler = (*KafkaSnapshotHandler)(nil)
