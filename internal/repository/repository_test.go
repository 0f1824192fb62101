package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/vaidashi/storefront-api/internal/database"
	"github.com/vaidashi/storefront-api/internal/models"
	"github.com/vaidashi/storefront-api/pkg/logger"
)

var orderRowColumns = []string{
	"order_id", "product_id", "customer_name", "customer_email", "phone_number",
	"quantity", "total_price", "payment_method", "state", "district", "status", "order_date",
}

var productRowColumns = []string{
	"product_id", "product_name", "description", "price", "stock_quantity",
	"image1_url", "image2_url", "image3_url",
}

type RepositoryTestSuite struct {
	suite.Suite
	mock     sqlmock.Sqlmock
	db       *database.Database
	orders   *OrderRepository
	products *ProductRepository
	outbox   *OutboxRepository
	stats    *StatsRepository
	ctx      context.Context
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func (s *RepositoryTestSuite) SetupTest() {
	conn, mock, err := sqlmock.New()
	require.NoError(s.T(), err)

	log := logger.Nop()
	s.mock = mock
	s.db = database.Wrap(sqlx.NewDb(conn, "postgres"), log)
	s.orders = NewOrderRepository(s.db, log)
	s.products = NewProductRepository(s.db, log)
	s.outbox = NewOutboxRepository(s.db, log)
	s.stats = NewStatsRepository(s.db, log)
	s.ctx = context.Background()
}

func (s *RepositoryTestSuite) TearDownTest() {
	require.NoError(s.T(), s.mock.ExpectationsWereMet())
	s.db.Close()
}

func q(query string) string {
	return regexp.QuoteMeta(query)
}

func (s *RepositoryTestSuite) newOrder(quantity int) *models.Order {
	order := models.NewOrder(1, quantity)
	order.CustomerName = "Ana"
	order.CustomerEmail = "ana@example.com"
	order.PhoneNumber = "555-0100"
	order.PaymentMethod = "cash"
	order.State = "Bagmati"
	order.District = "Lalitpur"
	return order
}

func (s *RepositoryTestSuite) TestPlaceOrderPricesAndReservesStock() {
	order := s.newOrder(3)

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(q("UPDATE products")).
		WithArgs(3, int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"price"}).AddRow("10.00"))
	s.mock.ExpectQuery(q("INSERT INTO orders")).
		WithArgs(int64(1), "Ana", "ana@example.com", "555-0100", 3,
			sqlmock.AnyArg(), "cash", "Bagmati", "Lalitpur", "Pending", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"order_id"}).AddRow(42))
	s.mock.ExpectQuery(q("INSERT INTO outbox_messages")).
		WithArgs("order", "42", models.EventOrderCreated, sqlmock.AnyArg(), sqlmock.AnyArg(), "pending").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	s.mock.ExpectCommit()

	require.NoError(s.T(), s.orders.PlaceOrder(s.ctx, order))
	s.Equal(int64(42), order.ID)
	s.True(order.TotalPrice.Equal(decimal.NewFromInt(30)), "total %s", order.TotalPrice)
	s.Equal(models.OrderStatusPending, order.Status)
}

func (s *RepositoryTestSuite) TestPlaceOrderInsufficientStock() {
	order := s.newOrder(10)

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(q("UPDATE products")).
		WithArgs(10, int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"price"}))
	s.mock.ExpectQuery(q("SELECT stock_quantity FROM products")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"stock_quantity"}).AddRow(5))
	s.mock.ExpectRollback()

	err := s.orders.PlaceOrder(s.ctx, order)
	require.ErrorIs(s.T(), err, ErrInsufficientStock)

	var stockErr *StockError
	require.True(s.T(), errors.As(err, &stockErr))
	s.Equal(5, stockErr.Available)
	s.Equal(10, stockErr.Requested)
	s.Zero(order.ID)
}

func (s *RepositoryTestSuite) TestPlaceOrderUnknownProduct() {
	order := s.newOrder(1)

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(q("UPDATE products")).
		WillReturnRows(sqlmock.NewRows([]string{"price"}))
	s.mock.ExpectQuery(q("SELECT stock_quantity FROM products")).
		WillReturnRows(sqlmock.NewRows([]string{"stock_quantity"}))
	s.mock.ExpectRollback()

	require.ErrorIs(s.T(), s.orders.PlaceOrder(s.ctx, order), ErrNotFound)
}

func (s *RepositoryTestSuite) TestPlaceOrderRollsBackWhenOutboxFails() {
	order := s.newOrder(1)

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(q("UPDATE products")).
		WillReturnRows(sqlmock.NewRows([]string{"price"}).AddRow("10"))
	s.mock.ExpectQuery(q("INSERT INTO orders")).
		WillReturnRows(sqlmock.NewRows([]string{"order_id"}).AddRow(1))
	s.mock.ExpectQuery(q("INSERT INTO outbox_messages")).
		WillReturnError(errors.New("connection reset"))
	s.mock.ExpectRollback()

	err := s.orders.PlaceOrder(s.ctx, order)
	require.ErrorIs(s.T(), err, ErrDatabase)
	s.Contains(err.Error(), "connection reset")
}

func (s *RepositoryTestSuite) orderRow(id int64, status models.OrderStatus) *sqlmock.Rows {
	return sqlmock.NewRows(orderRowColumns).AddRow(
		id, int64(1), "Ana", "ana@example.com", "555-0100",
		3, "30.00", "cash", "Bagmati", "Lalitpur", string(status), time.Now(),
	)
}

func (s *RepositoryTestSuite) TestUpdateStatusWritesEvent() {
	s.mock.ExpectBegin()
	s.mock.ExpectQuery(q("FROM orders WHERE order_id = $1 FOR UPDATE")).
		WithArgs(int64(7)).
		WillReturnRows(s.orderRow(7, models.OrderStatusPending))
	s.mock.ExpectExec(q("UPDATE orders SET status = $1 WHERE order_id = $2")).
		WithArgs("Confirmed", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectQuery(q("INSERT INTO outbox_messages")).
		WithArgs("order", "7", models.EventOrderStatusChanged, sqlmock.AnyArg(), sqlmock.AnyArg(), "pending").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	s.mock.ExpectCommit()

	order, old, err := s.orders.UpdateStatus(s.ctx, 7, models.OrderStatusConfirmed)
	require.NoError(s.T(), err)
	s.Equal(models.OrderStatusPending, old)
	s.Equal(models.OrderStatusConfirmed, order.Status)
}

func (s *RepositoryTestSuite) TestUpdateStatusUnknownOrder() {
	s.mock.ExpectBegin()
	s.mock.ExpectQuery(q("FOR UPDATE")).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows(orderRowColumns))
	s.mock.ExpectRollback()

	_, _, err := s.orders.UpdateStatus(s.ctx, 99, models.OrderStatusConfirmed)
	require.ErrorIs(s.T(), err, ErrNotFound)
}

func (s *RepositoryTestSuite) TestDeleteMissingOrder() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(q("DELETE FROM orders WHERE order_id = $1")).
		WithArgs(int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectRollback()

	require.ErrorIs(s.T(), s.orders.Delete(s.ctx, 99), ErrNotFound)
}

func (s *RepositoryTestSuite) TestDeleteOrderWritesEvent() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(q("DELETE FROM orders")).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectQuery(q("INSERT INTO outbox_messages")).
		WithArgs("order", "5", models.EventOrderDeleted, sqlmock.AnyArg(), sqlmock.AnyArg(), "pending").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	s.mock.ExpectCommit()

	require.NoError(s.T(), s.orders.Delete(s.ctx, 5))
}

func (s *RepositoryTestSuite) TestGetAllOrdersEmpty() {
	s.mock.ExpectQuery(q("FROM orders ORDER BY order_id ASC")).
		WillReturnRows(sqlmock.NewRows(orderRowColumns))

	orders, err := s.orders.GetAll(s.ctx)
	require.NoError(s.T(), err)
	s.NotNil(orders)
	s.Empty(orders)
}

func (s *RepositoryTestSuite) TestGetOrderByID() {
	s.mock.ExpectQuery(q("FROM orders WHERE order_id = $1")).
		WithArgs(int64(7)).
		WillReturnRows(s.orderRow(7, models.OrderStatusPacking))

	order, err := s.orders.GetByID(s.ctx, 7)
	require.NoError(s.T(), err)
	s.Equal(models.OrderStatusPacking, order.Status)
	s.Equal("30", order.TotalPrice.String())
}

func (s *RepositoryTestSuite) TestPartialProductUpdate() {
	price := decimal.NewFromInt(12)
	patch := &models.ProductPatch{Price: &price}

	s.mock.ExpectQuery(q("UPDATE products SET")).
		WithArgs(nil, nil, "12", nil, nil, nil, nil, int64(3)).
		WillReturnRows(sqlmock.NewRows(productRowColumns).
			AddRow(int64(3), "Mug", "Stoneware", "12.00", 5, "a.png", nil, nil))

	product, err := s.products.Update(s.ctx, 3, patch)
	require.NoError(s.T(), err)
	s.Equal("Mug", product.Name)
	s.Equal("Stoneware", *product.Description)
	s.Equal(5, product.StockQuantity)
	s.True(product.Price.Equal(price))
	s.Equal([]string{"a.png"}, product.Images())
}

func (s *RepositoryTestSuite) TestUpdateMissingProduct() {
	name := "Cup"
	s.mock.ExpectQuery(q("UPDATE products SET")).
		WillReturnRows(sqlmock.NewRows(productRowColumns))

	_, err := s.products.Update(s.ctx, 404, &models.ProductPatch{Name: &name})
	require.ErrorIs(s.T(), err, ErrNotFound)
}

func (s *RepositoryTestSuite) TestCreateProduct() {
	product := &models.Product{Name: "Mug", Price: decimal.NewFromInt(10), StockQuantity: 5}

	s.mock.ExpectQuery(q("INSERT INTO products")).
		WithArgs("Mug", nil, "10", 5, nil, nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"product_id"}).AddRow(1))

	require.NoError(s.T(), s.products.Create(s.ctx, product))
	s.Equal(int64(1), product.ID)
}

func (s *RepositoryTestSuite) TestDeleteMissingProduct() {
	s.mock.ExpectExec(q("DELETE FROM products WHERE product_id = $1")).
		WithArgs(int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.ErrorIs(s.T(), s.products.Delete(s.ctx, 8), ErrNotFound)
}

func (s *RepositoryTestSuite) TestMarkAsProcessingClaimsOnce() {
	s.mock.ExpectExec(q("UPDATE outbox_messages")).
		WithArgs("processing", int64(1), "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec(q("UPDATE outbox_messages")).
		WithArgs("processing", int64(1), "pending").
		WillReturnResult(sqlmock.NewResult(0, 0))

	claimed, err := s.outbox.MarkAsProcessing(s.ctx, 1)
	require.NoError(s.T(), err)
	s.True(claimed)

	claimed, err = s.outbox.MarkAsProcessing(s.ctx, 1)
	require.NoError(s.T(), err)
	s.False(claimed)
}

func (s *RepositoryTestSuite) TestStatsTotals() {
	s.mock.ExpectQuery(q("SUM(total_price)")).
		WillReturnRows(sqlmock.NewRows([]string{"total_products", "total_orders", "total_revenue"}).
			AddRow(4, 2, "75.50"))

	stats, err := s.stats.Totals(s.ctx)
	require.NoError(s.T(), err)
	s.Equal(4, stats.TotalProducts)
	s.Equal(2, stats.TotalOrders)
	s.Equal("75.5", stats.TotalRevenue.String())
}
