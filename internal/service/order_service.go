package service

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/vaidashi/storefront-api/internal/models"
	"github.com/vaidashi/storefront-api/internal/repository"
	apperrors "github.com/vaidashi/storefront-api/pkg/errors"
	"github.com/vaidashi/storefront-api/pkg/logger"
)

// OrderStore is the persistence the order service depends on
type OrderStore interface {
	PlaceOrder(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	GetAll(ctx context.Context) ([]*models.Order, error)
	UpdateStatus(ctx context.Context, id int64, status models.OrderStatus) (*models.Order, models.OrderStatus, error)
	Delete(ctx context.Context, id int64) error
}

// TrackingCache holds rendered tracking views
type TrackingCache interface {
	Get(ctx context.Context, orderID int64) (*models.OrderTracking, error)
	Set(ctx context.Context, tracking *models.OrderTracking) error
	Invalidate(ctx context.Context, orderID int64) error
}

// CreateOrderInput is what a customer submits at checkout
type CreateOrderInput struct {
	ProductID     int64
	CustomerName  string
	CustomerEmail string
	PhoneNumber   string
	State         string
	District      string
	PaymentMethod string
	Quantity      int
	// Status defaults to Pending when empty
	Status string
}

// OrderService handles order-related operations
type OrderService struct {
	orders       OrderStore
	tracking     TrackingCache
	strictStatus bool
	logger       logger.Logger
}

// NewOrderService creates a new OrderService. When strictStatus is set,
// status updates must name one of models.OrderStatuses.
func NewOrderService(orders OrderStore, tracking TrackingCache, strictStatus bool, logger logger.Logger) *OrderService {
	return &OrderService{
		orders:       orders,
		tracking:     tracking,
		strictStatus: strictStatus,
		logger:       logger,
	}
}

// CreateOrder validates the checkout, reserves stock and stores the order
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	if in.ProductID <= 0 {
		return nil, apperrors.NewInvalidInputError("Product ID is required")
	}
	if in.Quantity <= 0 || in.Quantity > math.MaxInt32 {
		return nil, apperrors.NewInvalidInputError("Quantity must be a positive integer")
	}

	order := models.NewOrder(in.ProductID, in.Quantity)
	if status := strings.TrimSpace(in.Status); status != "" {
		order.Status = models.OrderStatus(status)
		if err := s.checkStatus(order.Status); err != nil {
			return nil, err
		}
	}
	order.CustomerName = in.CustomerName
	order.CustomerEmail = in.CustomerEmail
	order.PhoneNumber = in.PhoneNumber
	order.State = in.State
	order.District = in.District
	order.PaymentMethod = in.PaymentMethod

	if err := s.orders.PlaceOrder(ctx, order); err != nil {
		var stockErr *repository.StockError
		switch {
		case errors.As(err, &stockErr):
			return nil, apperrors.NewInsufficientStockError(stockErr.Available, stockErr.Requested)
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperrors.NewNotFoundError("Product not found")
		default:
			return nil, apperrors.NewInternalError("Failed to create order", err)
		}
	}

	s.logger.Info("Order created",
		"orderID", order.ID,
		"productID", order.ProductID,
		"quantity", order.Quantity,
		"total", order.TotalPrice.String())

	return order, nil
}

// GetOrder retrieves an order by ID
func (s *OrderService) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, orderError(err, "Failed to fetch order")
	}
	return order, nil
}

// ListOrders retrieves every order
func (s *OrderService) ListOrders(ctx context.Context) ([]*models.Order, error) {
	orders, err := s.orders.GetAll(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to fetch orders", err)
	}
	return orders, nil
}

// UpdateOrderStatus overwrites the order's status. Any non-empty value is
// accepted unless strict mode is on; there is no ordering between statuses.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id int64, status string) (*models.Order, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return nil, apperrors.NewInvalidInputError("Status is required")
	}

	newStatus := models.OrderStatus(status)
	if err := s.checkStatus(newStatus); err != nil {
		return nil, err
	}

	order, oldStatus, err := s.orders.UpdateStatus(ctx, id, newStatus)
	if err != nil {
		return nil, orderError(err, "Failed to update order status")
	}

	s.invalidateTracking(ctx, id)

	s.logger.Info("Order status updated",
		"orderID", id,
		"oldStatus", oldStatus,
		"newStatus", newStatus)

	return order, nil
}

// DeleteOrder removes an order
func (s *OrderService) DeleteOrder(ctx context.Context, id int64) error {
	if err := s.orders.Delete(ctx, id); err != nil {
		return orderError(err, "Failed to delete order")
	}

	s.invalidateTracking(ctx, id)
	s.logger.Info("Order deleted", "orderID", id)
	return nil
}

// GetTracking returns the progress view for an order, served from the cache
// when possible
func (s *OrderService) GetTracking(ctx context.Context, id int64) (*models.OrderTracking, error) {
	cached, err := s.tracking.Get(ctx, id)
	if err != nil {
		s.logger.Warn("Tracking cache read failed", "error", err, "orderID", id)
	}
	if cached != nil {
		return cached, nil
	}

	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	tracking := models.NewOrderTracking(order)
	if err := s.tracking.Set(ctx, tracking); err != nil {
		s.logger.Warn("Tracking cache write failed", "error", err, "orderID", id)
	}

	return tracking, nil
}

func (s *OrderService) invalidateTracking(ctx context.Context, id int64) {
	if err := s.tracking.Invalidate(ctx, id); err != nil {
		s.logger.Warn("Tracking cache invalidation failed", "error", err, "orderID", id)
	}
}

func orderError(err error, message string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFoundError("Order not found")
	}
	return apperrors.NewInternalError(message, err)
}

// checkStatus rejects unknown statuses in strict mode
func (s *OrderService) checkStatus(status models.OrderStatus) error {
	if s.strictStatus && !status.IsKnown() {
		return apperrors.NewInvalidInputError("Unknown order status").
			WithContext("allowed", models.OrderStatuses)
	}
	return nil
}
