package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// RetrainPublisher announces retrain decisions.
type RetrainPublisher interface {
	PublishRetrainRequested(ctx context.Context, event RetrainRequested) error
	Close() error
}

type kafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher writes events to topic on the given brokers.
func NewKafkaPublisher(brokers []string, topic string) RetrainPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}
	return &kafkaPublisher{writer: writer}
}

func (p *kafkaPublisher) PublishRetrainRequested(ctx context.Context, event RetrainRequested) error {
	msg, err := encode(event.Key(), event)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	log.Info().
		Str("key", event.Key()).
		Str("run_id", event.RunID).
		Int("new_invoices", event.NewInvoiceCount).
		Msg("Published retrain request")
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

func encode(key string, event any) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
	}, nil
}

type noopPublisher struct{}

// NewNoopPublisher drops every event.
func NewNoopPublisher() RetrainPublisher {
	return noopPublisher{}
}

func (noopPublisher) PublishRetrainRequested(context.Context, RetrainRequested) error { return nil }
func (noopPublisher) Close() error                                                { return nil }
