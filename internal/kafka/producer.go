package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/phuslu/log"
	"github.com/segmentio/kafka-go"

	"github.com/trogers1052/portfolio-commander/internal/models"
)

// Producer handles publishing events to Kafka
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}
}

// PublishSignalUpdated publishes a recomputed holding signal
func (p *Producer) PublishSignalUpdated(ctx context.Context, signal *models.HoldingSignal) error {
	event := models.SignalEvent{
		EventType: "SIGNAL_UPDATED",
		Symbol:    signal.Symbol,
		Signal:    signal,
		Timestamp: time.Now(),
	}
	return p.publish(ctx, signal.Symbol, event)
}

// PublishRefreshCompleted publishes the totals of a completed refresh cycle
func (p *Producer) PublishRefreshCompleted(ctx context.Context, userID string, totals *models.PortfolioTotals, holdings int) error {
	event := models.RefreshEvent{
		EventType: "REFRESH_COMPLETED",
		UserID:    userID,
		Totals:    totals,
		Holdings:  holdings,
		Timestamp: time.Now(),
	}
	return p.publish(ctx, userID, event)
}

func (p *Producer) publish(ctx context.Context, key string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	log.Debug().Str("topic", p.topic).Str("key", key).Msg("event published")
	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
