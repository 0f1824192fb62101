package outbox

import (
	"context"
	"fmt"

	"github.com/vaidashi/storefront-api/internal/models"
	"github.com/vaidashi/storefront-api/pkg/logger"
)

// Publisher sends a keyed message to a topic
type Publisher interface {
	SendMessage(ctx context.Context, topic string, key string, value []byte) error
}

// KafkaHandler publishes outbox messages to Kafka
type KafkaHandler struct {
	logger    logger.Logger
	publisher Publisher
	topic     string
}

// NewKafkaHandler creates a new KafkaHandler
func NewKafkaHandler(publisher Publisher, topic string, logger logger.Logger) *KafkaHandler {
	return &KafkaHandler{
		publisher: publisher,
		topic:     topic,
		logger:    logger,
	}
}

// HandleMessage publishes the message payload keyed by order ID, so all
// events of one order land on the same partition
func (h *KafkaHandler) HandleMessage(ctx context.Context, message *models.OutboxMessage) error {
	h.logger.Debug("Publishing message to Kafka",
		"topic", h.topic,
		"messageID", message.ID,
		"aggregateID", message.AggregateID,
		"eventType", message.EventType)

	if err := h.publisher.SendMessage(ctx, h.topic, message.AggregateID, message.Payload); err != nil {
		return fmt.Errorf("failed to publish message to Kafka: %w", err)
	}

	return nil
}
