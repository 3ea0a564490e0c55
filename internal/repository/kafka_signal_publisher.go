package repository

import (
	"context"

	"SignalForge/internal/domain/models"
	"SignalForge/internal/domain/repository"
	pkgkafka "SignalForge/pkg/kafka"
)

// KafkaSignalPublisher implements SignalPublisher for Kafka. Every decided
// signal, holds included, lands on the audit topic keyed by symbol so
// consumers see per-instrument order.
type KafkaSignalPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaSignalPublisher creates the Kafka signal publisher.
func NewKafkaSignalPublisher(producer *pkgkafka.Producer, topic string) repository.SignalPublisher {
	return &KafkaSignalPublisher{producer: producer, topic: topic}
}

func (p *KafkaSignalPublisher) Publish(ctx context.Context, s *models.TradeSignal) error {
	return p.producer.Publish(ctx, p.topic, []byte(s.Symbol), s)
}

func (p *KafkaSignalPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
