package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyUnitPrice(t *testing.T) {
	order := NewOrder(1, 3)
	order.ApplyUnitPrice(decimal.NewFromInt(10))

	assert.True(t, order.TotalPrice.Equal(decimal.NewFromInt(30)), "got %s", order.TotalPrice)
	assert.Equal(t, OrderStatusPending, order.Status)
	assert.False(t, order.OrderDate.IsZero())
}

func TestApplyUnitPriceKeepsCents(t *testing.T) {
	order := NewOrder(1, 3)
	order.ApplyUnitPrice(decimal.RequireFromString("19.99"))

	assert.Equal(t, "59.97", order.TotalPrice.StringFixed(2))
}

func TestStatusIndex(t *testing.T) {
	assert.Equal(t, 0, OrderStatusPending.Index())
	assert.Equal(t, 5, OrderStatusDelivered.Index())
	assert.Equal(t, -1, OrderStatus("Lost").Index())
	assert.False(t, OrderStatus("Lost").IsKnown())
	assert.True(t, OrderStatusPacking.IsKnown())
}

func TestStatusSteps(t *testing.T) {
	steps := StatusSteps(OrderStatusConfirmed)
	require.Len(t, steps, len(OrderStatuses))

	for i, step := range steps {
		assert.Equal(t, i <= 2, step.Reached, step.Status)
		assert.Equal(t, i == 2, step.Current, step.Status)
	}

	for _, step := range StatusSteps("Lost") {
		assert.False(t, step.Reached)
		assert.False(t, step.Current)
	}
}

func TestProductPatch(t *testing.T) {
	desc := "old"
	product := &Product{Name: "Mug", Description: &desc, Price: decimal.NewFromInt(10), StockQuantity: 5}

	price := decimal.NewFromInt(12)
	img := "1700000000000_mug.png"
	patch := &ProductPatch{Price: &price}
	patch.Images[1] = &img
	require.False(t, patch.IsEmpty())

	patch.Apply(product)

	assert.Equal(t, "Mug", product.Name)
	assert.Equal(t, "old", *product.Description)
	assert.True(t, product.Price.Equal(price))
	assert.Equal(t, 5, product.StockQuantity)
	assert.Nil(t, product.Image1URL)
	assert.Equal(t, []string{img}, product.Images())

	assert.True(t, (&ProductPatch{}).IsEmpty())
}

func TestOrderStatusChangedEvent(t *testing.T) {
	order := &Order{ID: 7, Status: OrderStatusConfirmed, CustomerEmail: "a@b.c"}

	msg, err := NewOrderStatusChangedEvent(order, OrderStatusPending)
	require.NoError(t, err)
	assert.Equal(t, "7", msg.AggregateID)
	assert.Equal(t, EventOrderStatusChanged, msg.EventType)
	assert.Equal(t, OutboxStatusPending, msg.Status)

	var event OutboxMessageEvent
	require.NoError(t, json.Unmarshal(msg.Payload, &event))
	assert.Equal(t, EventOrderStatusChanged, event.EventType)
	assert.NotEmpty(t, event.EventID)

	var change OrderStatusChange
	require.NoError(t, json.Unmarshal(event.Data, &change))
	assert.Equal(t, OrderStatusPending, change.OldStatus)
	assert.Equal(t, OrderStatusConfirmed, change.NewStatus)
}
