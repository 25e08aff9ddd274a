package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"github.com/tracemed-ai/platform/pkg/common/config"
	"github.com/tracemed-ai/platform/pkg/common/logger"
	"github.com/tracemed-ai/platform/pkg/common/models"
)

type Consumer struct {
	reader *kafka.Reader
}

type EnvelopeHandler func(ctx context.Context, envelope models.Envelope) error

func NewConsumer(topic string, groupID string) *Consumer {
	cfg := config.Load()
	if groupID == "" {
		groupID = cfg.KafkaGroupID
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})

	return &Consumer{reader: reader}
}

func (c *Consumer) Consume(ctx context.Context, handler EnvelopeHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			message, err := c.reader.FetchMessage(ctx)
			if err != nil {
				logger.Log.WithError(err).Error("Failed to fetch message")
				continue
			}

			var envelope models.Envelope
			if err := json.Unmarshal(message.Value, &envelope); err != nil {
				logger.Log.WithError(err).Error("Failed to unmarshal envelope")
				c.reader.CommitMessages(ctx, message)
				continue
			}

			if err := handler(ctx, envelope); err != nil {
				logger.Log.WithError(err).WithFields(map[string]interface{}{
					"envelope_id": envelope.ID,
				}).Error("Failed to process envelope")
				// Don't commit on error, will retry
				continue
			}

			if err := c.reader.CommitMessages(ctx, message); err != nil {
				logger.Log.WithError(err).Error("Failed to commit message")
			}
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
