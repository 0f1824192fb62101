package api

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
	"github.com/vaidashi/storefront-api/internal/models"
	"github.com/vaidashi/storefront-api/internal/service"
)

type mockOrderService struct {
	mock.Mock
}

func (m *mockOrderService) CreateOrder(ctx context.Context, in service.CreateOrderInput) (*models.Order, error) {
	args := m.Called(ctx, in)
	order, _ := args.Get(0).(*models.Order)
	return order, args.Error(1)
}

func (m *mockOrderService) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	args := m.Called(ctx, id)
	order, _ := args.Get(0).(*models.Order)
	return order, args.Error(1)
}

func (m *mockOrderService) ListOrders(ctx context.Context) ([]*models.Order, error) {
	args := m.Called(ctx)
	orders, _ := args.Get(0).([]*models.Order)
	return orders, args.Error(1)
}

func (m *mockOrderService) UpdateOrderStatus(ctx context.Context, id int64, status string) (*models.Order, error) {
	args := m.Called(ctx, id, status)
	order, _ := args.Get(0).(*models.Order)
	return order, args.Error(1)
}

func (m *mockOrderService) DeleteOrder(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockOrderService) GetTracking(ctx context.Context, id int64) (*models.OrderTracking, error) {
	args := m.Called(ctx, id)
	tracking, _ := args.Get(0).(*models.OrderTracking)
	return tracking, args.Error(1)
}

type mockProductService struct {
	mock.Mock
}

func (m *mockProductService) CreateProduct(ctx context.Context, form service.ProductForm) (*models.Product, error) {
	args := m.Called(ctx, form)
	product, _ := args.Get(0).(*models.Product)
	return product, args.Error(1)
}

func (m *mockProductService) UpdateProduct(ctx context.Context, id int64, form service.ProductForm) (*models.Product, error) {
	args := m.Called(ctx, id, form)
	product, _ := args.Get(0).(*models.Product)
	return product, args.Error(1)
}

func (m *mockProductService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	args := m.Called(ctx, id)
	product, _ := args.Get(0).(*models.Product)
	return product, args.Error(1)
}

func (m *mockProductService) ListProducts(ctx context.Context) ([]*models.Product, error) {
	args := m.Called(ctx)
	products, _ := args.Get(0).([]*models.Product)
	return products, args.Error(1)
}

func (m *mockProductService) DeleteProduct(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockProductService) Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	args := m.Called(ctx, name, contentType, r)
	return args.String(0), args.Error(1)
}

func (m *mockProductService) ImageURL(ref string) string {
	return "http://localhost:8080/uploads/" + ref
}

type mockStatsService struct {
	mock.Mock
}

func (m *mockStatsService) Dashboard(ctx context.Context) (*models.DashboardStats, error) {
	args := m.Called(ctx)
	stats, _ := args.Get(0).(*models.DashboardStats)
	return stats, args.Error(1)
}

type stubHealth struct {
	err error
}

func (h stubHealth) Ping(context.Context) error {
	return h.err
}
