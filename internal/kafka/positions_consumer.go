package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/phuslu/log"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/trogers1052/portfolio-commander/internal/models"
)

// PositionRepository defines the position store operations the consumer needs
type PositionRepository interface {
	ReplaceAllPositions(userID string, positions []*models.Position) error
}

// NameResolver resolves a symbol to its company name. Optional; when absent
// the symbol itself is used for entries arriving without a name.
type NameResolver interface {
	GetTickerName(ctx context.Context, symbol string) (string, error)
}

// messageReader abstracts the kafka reader for testing
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
	Config() kafka.ReaderConfig
}

// PositionsConsumer ingests full position snapshots from the broker sync
// topic. Each snapshot replaces the stored list for its user wholesale; the
// next refresh cycle picks the new list up automatically.
type PositionsConsumer struct {
	reader messageReader
	repo   PositionRepository
	names  NameResolver
}

// NewPositionsConsumer creates a new Kafka consumer for position snapshots
func NewPositionsConsumer(brokers []string, topic, groupID string, repo PositionRepository, names NameResolver) *PositionsConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return &PositionsConsumer{
		reader: reader,
		repo:   repo,
		names:  names,
	}
}

// Start begins consuming messages from Kafka
func (c *PositionsConsumer) Start(ctx context.Context) error {
	log.Info().Str("topic", c.reader.Config().Topic).Msg("starting positions consumer")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("positions consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil // Context cancelled, normal shutdown
				}
				log.Error().Err(err).Msg("error reading message")
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				log.Error().Err(err).Msg("error processing message")
				// Continue processing other messages
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *PositionsConsumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event models.PositionsSyncEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal positions event: %w", err)
	}

	if event.EventType != "POSITIONS_SYNC" {
		log.Debug().Str("event_type", event.EventType).Msg("ignoring event type")
		return nil
	}

	if event.UserID == "" {
		return fmt.Errorf("positions event missing user id")
	}

	positions := make([]*models.Position, 0, len(event.Positions))
	for _, entry := range event.Positions {
		pos, err := c.convertEntry(ctx, event.UserID, entry)
		if err != nil {
			return fmt.Errorf("invalid position %s: %w", entry.Symbol, err)
		}
		positions = append(positions, pos)
	}

	// The snapshot is authoritative: the stored list is replaced wholesale so
	// positions closed at the broker disappear here too.
	if err := c.repo.ReplaceAllPositions(event.UserID, positions); err != nil {
		return fmt.Errorf("failed to replace positions: %w", err)
	}

	log.Info().
		Str("user_id", event.UserID).
		Int("positions", len(positions)).
		Msg("applied positions snapshot")

	return nil
}

// convertEntry maps one snapshot entry to a validated Position
func (c *PositionsConsumer) convertEntry(ctx context.Context, userID string, entry models.PositionSync) (*models.Position, error) {
	shares, err := decimal.NewFromString(entry.Shares)
	if err != nil {
		return nil, fmt.Errorf("invalid shares %q: %w", entry.Shares, err)
	}

	avgPrice, err := decimal.NewFromString(entry.AvgPrice)
	if err != nil {
		return nil, fmt.Errorf("invalid avg price %q: %w", entry.AvgPrice, err)
	}

	name := entry.Name
	if name == "" || name == models.NormalizeSymbol(entry.Symbol) {
		name = c.resolveName(ctx, entry.Symbol)
	}

	return models.NewPosition(userID, entry.Symbol, shares, avgPrice, name)
}

// resolveName looks up the company name, falling back to the symbol when
// the lookup fails or returns nothing.
func (c *PositionsConsumer) resolveName(ctx context.Context, symbol string) string {
	symbol = models.NormalizeSymbol(symbol)
	if c.names == nil {
		return symbol
	}

	name, err := c.names.GetTickerName(ctx, symbol)
	if err != nil || name == "" {
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("name lookup failed")
		}
		return symbol
	}
	return name
}

// Close closes the Kafka consumer
func (c *PositionsConsumer) Close() error {
	return c.reader.Close()
}
