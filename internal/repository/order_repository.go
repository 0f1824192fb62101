package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/vaidashi/storefront-api/internal/database"
	"github.com/vaidashi/storefront-api/internal/models"
	"github.com/vaidashi/storefront-api/pkg/logger"
)

const orderColumns = `order_id, product_id, customer_name, customer_email, phone_number,
	quantity, total_price, payment_method, state, district, status, order_date`

// OrderRepository handles database operations for orders
type OrderRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewOrderRepository creates a new OrderRepository
func NewOrderRepository(db *database.Database, logger logger.Logger) *OrderRepository {
	return &OrderRepository{
		db:     db,
		logger: logger,
	}
}

// PlaceOrder reserves stock, prices and inserts order, and records an
// order_created event, all in one transaction. On success order carries its
// new ID and total price. A product that does not exist yields ErrNotFound;
// one without enough stock yields a *StockError. Either way nothing is written.
func (r *OrderRepository) PlaceOrder(ctx context.Context, order *models.Order) error {
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		unitPrice, err := reserveStock(ctx, tx, order.ProductID, order.Quantity)
		if err != nil {
			return err
		}

		order.ApplyUnitPrice(unitPrice)

		query := `
			INSERT INTO orders (
				product_id, customer_name, customer_email, phone_number, quantity,
				total_price, payment_method, state, district, status, order_date
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
			) RETURNING order_id
		`

		err = tx.QueryRowxContext(
			ctx,
			query,
			order.ProductID,
			order.CustomerName,
			order.CustomerEmail,
			order.PhoneNumber,
			order.Quantity,
			order.TotalPrice,
			order.PaymentMethod,
			order.State,
			order.District,
			order.Status,
			order.OrderDate,
		).Scan(&order.ID)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDatabase, err)
		}

		event, err := models.NewOrderCreatedEvent(order)
		if err != nil {
			return fmt.Errorf("failed to build order event: %w", err)
		}

		return insertOutboxMessage(ctx, tx, event)
	})

	if err != nil {
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrInsufficientStock) {
			r.logger.Error("Failed to place order", "error", err, "productID", order.ProductID)
		}
		return err
	}

	return nil
}

// reserveStock decrements the product's stock only when enough is left and
// returns its unit price
func reserveStock(ctx context.Context, tx *sqlx.Tx, productID int64, quantity int) (decimal.Decimal, error) {
	query := `
		UPDATE products
		SET stock_quantity = stock_quantity - $1
		WHERE product_id = $2 AND stock_quantity >= $1
		RETURNING price
	`

	var price decimal.Decimal
	err := tx.GetContext(ctx, &price, query, quantity, productID)
	if err == nil {
		return price, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	var available int
	err = tx.GetContext(ctx, &available, `SELECT stock_quantity FROM products WHERE product_id = $1`, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, ErrNotFound
		}
		return decimal.Zero, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return decimal.Zero, &StockError{ProductID: productID, Available: available, Requested: quantity}
}

// GetByID retrieves an order by its ID
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_id = $1`

	var order models.Order
	err := r.db.DB.GetContext(ctx, &order, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get order by ID", "error", err, "orderID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &order, nil
}

// GetAll retrieves every order in insertion order
func (r *OrderRepository) GetAll(ctx context.Context) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY order_id ASC`

	orders := []*models.Order{}
	err := r.db.DB.SelectContext(ctx, &orders, query)

	if err != nil {
		r.logger.Error("Failed to get all orders", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return orders, nil
}

// UpdateStatus overwrites the order's status and records the change in the
// outbox. It returns the updated order and the status it replaced.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status models.OrderStatus) (*models.Order, models.OrderStatus, error) {
	var (
		order     models.Order
		oldStatus models.OrderStatus
	)

	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `SELECT ` + orderColumns + ` FROM orders WHERE order_id = $1 FOR UPDATE`
		if err := tx.GetContext(ctx, &order, query, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("%w: %v", ErrDatabase, err)
		}

		if _, err := tx.ExecContext(ctx, `UPDATE orders SET status = $1 WHERE order_id = $2`, status, id); err != nil {
			return fmt.Errorf("%w: %v", ErrDatabase, err)
		}

		oldStatus = order.Status
		order.Status = status

		event, err := models.NewOrderStatusChangedEvent(&order, oldStatus)
		if err != nil {
			return fmt.Errorf("failed to build order event: %w", err)
		}

		return insertOutboxMessage(ctx, tx, event)
	})

	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			r.logger.Error("Failed to update order status", "error", err, "orderID", id)
		}
		return nil, "", err
	}

	return &order, oldStatus, nil
}

// Delete deletes an order by its ID and records an order_deleted event
func (r *OrderRepository) Delete(ctx context.Context, id int64) error {
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE order_id = $1`, id)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDatabase, err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDatabase, err)
		}

		if rowsAffected == 0 {
			return ErrNotFound
		}

		event, err := models.NewOrderDeletedEvent(id)
		if err != nil {
			return fmt.Errorf("failed to build order event: %w", err)
		}

		return insertOutboxMessage(ctx, tx, event)
	})

	if err != nil && !errors.Is(err, ErrNotFound) {
		r.logger.Error("Failed to delete order", "error", err, "orderID", id)
	}

	return err
}
