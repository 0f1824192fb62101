package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vaidashi/storefront-api/internal/models"
	"github.com/vaidashi/storefront-api/pkg/logger"
)

// LoggingHandler logs outbox messages instead of publishing them. It is used
// when no Kafka brokers are configured.
type LoggingHandler struct {
	logger logger.Logger
}

// NewLoggingHandler creates a new LoggingHandler
func NewLoggingHandler(logger logger.Logger) *LoggingHandler {
	return &LoggingHandler{
		logger: logger,
	}
}

// HandleMessage handles the outbox message by logging it
func (h *LoggingHandler) HandleMessage(ctx context.Context, message *models.OutboxMessage) error {
	var event models.OutboxMessageEvent

	if err := json.Unmarshal(message.Payload, &event); err != nil {
		return fmt.Errorf("failed to unmarshal outbox message: %w", err)
	}

	h.logger.Info("Order event",
		"messageID", message.ID,
		"eventType", event.EventType,
		"orderID", event.AggregateID,
		"eventID", event.EventID,
		"occurredAt", event.OccurredAt)

	return nil
}
