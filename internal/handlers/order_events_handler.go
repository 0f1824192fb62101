package handlers

import (
	"context"
	"encoding/json"

	"github.com/Shopify/sarama"
	"github.com/vaidashi/storefront-api/internal/models"
	"github.com/vaidashi/storefront-api/pkg/logger"
)

// OrderEventsHandler turns order events from Kafka into customer notifications
type OrderEventsHandler struct {
	logger logger.Logger
}

// NewOrderEventsHandler creates a new OrderEventsHandler
func NewOrderEventsHandler(logger logger.Logger) *OrderEventsHandler {
	return &OrderEventsHandler{
		logger: logger,
	}
}

// HandleMessage decodes the event envelope and dispatches on its type.
// Unknown event types are logged and acknowledged.
func (h *OrderEventsHandler) HandleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var event models.OutboxMessageEvent

	if err := json.Unmarshal(msg.Value, &event); err != nil {
		// a payload that never decodes would block the partition; drop it
		h.logger.Error("Dropping undecodable order event", "error", err, "offset", msg.Offset)
		return nil
	}

	switch event.EventType {
	case models.EventOrderCreated:
		return h.handleOrderCreated(event)
	case models.EventOrderStatusChanged:
		return h.handleOrderStatusChanged(event)
	case models.EventOrderDeleted:
		h.logger.Info("Notify: order cancelled", "orderID", event.AggregateID, "eventID", event.EventID)
		return nil
	default:
		h.logger.Warn("Unknown event type", "eventType", event.EventType, "eventID", event.EventID)
		return nil
	}
}

func (h *OrderEventsHandler) handleOrderCreated(event models.OutboxMessageEvent) error {
	var order models.Order
	if err := json.Unmarshal(event.Data, &order); err != nil {
		h.dropUndecodable(event, err)
		return nil
	}

	h.logger.Info("Notify: order received",
		"orderID", order.ID,
		"customer", order.CustomerName,
		"email", order.CustomerEmail,
		"quantity", order.Quantity,
		"total", order.TotalPrice.String())

	return nil
}

func (h *OrderEventsHandler) handleOrderStatusChanged(event models.OutboxMessageEvent) error {
	var change models.OrderStatusChange
	if err := json.Unmarshal(event.Data, &change); err != nil {
		h.dropUndecodable(event, err)
		return nil
	}

	h.logger.Info("Notify: order status changed",
		"orderID", change.OrderID,
		"email", change.CustomerEmail,
		"oldStatus", change.OldStatus,
		"newStatus", change.NewStatus)

	return nil
}

// dropUndecodable logs an event whose data can never be decoded; redelivery
// would not help, so it is acknowledged like an undecodable envelope
func (h *OrderEventsHandler) dropUndecodable(event models.OutboxMessageEvent, err error) {
	h.logger.Error("Dropping undecodable order event data",
		"error", err,
		"eventType", event.EventType,
		"eventID", event.EventID,
		"orderID", event.AggregateID)
}
