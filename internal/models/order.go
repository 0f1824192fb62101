package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order represents a customer purchase of a single product
type Order struct {
	ID            int64           `db:"order_id" json:"order_id"`
	ProductID     int64           `db:"product_id" json:"product_id"`
	CustomerName  string          `db:"customer_name" json:"customer_name"`
	CustomerEmail string          `db:"customer_email" json:"customer_email"`
	PhoneNumber   string          `db:"phone_number" json:"phone_number"`
	Quantity      int             `db:"quantity" json:"quantity"`
	TotalPrice    decimal.Decimal `db:"total_price" json:"total_price"`
	PaymentMethod string          `db:"payment_method" json:"payment_method"`
	State         string          `db:"state" json:"state"`
	District      string          `db:"district" json:"district"`
	Status        OrderStatus     `db:"status" json:"status"`
	OrderDate     time.Time       `db:"order_date" json:"order_date"`
}

// NewOrder creates a pending order for quantity units of productID
func NewOrder(productID int64, quantity int) *Order {
	return &Order{
		ProductID: productID,
		Quantity:  quantity,
		Status:    OrderStatusPending,
		OrderDate: GetCurrentTime(),
	}
}

// ApplyUnitPrice sets the total from the product's unit price
func (o *Order) ApplyUnitPrice(unitPrice decimal.Decimal) {
	o.TotalPrice = unitPrice.Mul(decimal.NewFromInt(int64(o.Quantity)))
}

// OrderTracking is the customer-facing progress view of an order
type OrderTracking struct {
	OrderID int64        `json:"order_id"`
	Status  OrderStatus  `json:"status"`
	Steps   []StatusStep `json:"steps"`
}

// NewOrderTracking builds the tracking view for order
func NewOrderTracking(order *Order) *OrderTracking {
	return &OrderTracking{
		OrderID: order.ID,
		Status:  order.Status,
		Steps:   StatusSteps(order.Status),
	}
}
