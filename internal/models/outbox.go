package models

import (
	"encoding/json"
	"strconv"
	"time"
)

// OutboxStatus represents the status of an outbox message
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusProcessing OutboxStatus = "processing"
	OutboxStatusCompleted  OutboxStatus = "completed"
	OutboxStatusFailed     OutboxStatus = "failed"
)

// Event types written to the outbox
const (
	EventOrderCreated       = "order_created"
	EventOrderStatusChanged = "order_status_changed"
	EventOrderDeleted       = "order_deleted"
)

const aggregateOrder = "order"

// OutboxMessage represents a message to be published from the outbox table
type OutboxMessage struct {
	ID                 int64        `db:"id" json:"id"`
	AggregateType      string       `db:"aggregate_type" json:"aggregate_type"`
	AggregateID        string       `db:"aggregate_id" json:"aggregate_id"`
	EventType          string       `db:"event_type" json:"event_type"`
	Payload            []byte       `db:"payload" json:"payload"`
	CreatedAt          time.Time    `db:"created_at" json:"created_at"`
	ProcessedAt        *time.Time   `db:"processed_at" json:"processed_at,omitempty"`
	ProcessingAttempts int          `db:"processing_attempts" json:"processing_attempts"`
	LastError          *string      `db:"last_error" json:"last_error,omitempty"`
	Status             OutboxStatus `db:"status" json:"status"`
}

// OutboxMessageEvent is the envelope published for every outbox message
type OutboxMessageEvent struct {
	EventType   string          `json:"event_type"`
	EventID     string          `json:"event_id"`
	AggregateID string          `json:"aggregate_id"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Data        json.RawMessage `json:"data"`
}

// OrderStatusChange is the data of an order_status_changed event
type OrderStatusChange struct {
	OrderID       int64       `json:"order_id"`
	OldStatus     OrderStatus `json:"old_status"`
	NewStatus     OrderStatus `json:"new_status"`
	CustomerEmail string      `json:"customer_email,omitempty"`
}

// OrderDeletion is the data of an order_deleted event
type OrderDeletion struct {
	OrderID int64 `json:"order_id"`
}

func newOrderEvent(eventType string, orderID int64, data interface{}) (*OutboxMessage, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	aggregateID := strconv.FormatInt(orderID, 10)
	now := GetCurrentTime()

	payload, err := json.Marshal(OutboxMessageEvent{
		EventType:   eventType,
		EventID:     GenerateID("evt"),
		AggregateID: aggregateID,
		OccurredAt:  now,
		Data:        raw,
	})
	if err != nil {
		return nil, err
	}

	return &OutboxMessage{
		AggregateType: aggregateOrder,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     now,
		Status:        OutboxStatusPending,
	}, nil
}

// NewOrderCreatedEvent creates a new order created event
func NewOrderCreatedEvent(order *Order) (*OutboxMessage, error) {
	return newOrderEvent(EventOrderCreated, order.ID, order)
}

// NewOrderStatusChangedEvent creates a new event for order status change
func NewOrderStatusChangedEvent(order *Order, oldStatus OrderStatus) (*OutboxMessage, error) {
	return newOrderEvent(EventOrderStatusChanged, order.ID, OrderStatusChange{
		OrderID:       order.ID,
		OldStatus:     oldStatus,
		NewStatus:     order.Status,
		CustomerEmail: order.CustomerEmail,
	})
}

// NewOrderDeletedEvent creates a new order deleted event
func NewOrderDeletedEvent(orderID int64) (*OutboxMessage, error) {
	return newOrderEvent(EventOrderDeleted, orderID, OrderDeletion{OrderID: orderID})
}
