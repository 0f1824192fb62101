package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/vaidashi/storefront-api/internal/models"
	"github.com/vaidashi/storefront-api/internal/repository"
)

// memoryStore keeps products and orders in maps and mimics the repository's
// transactional semantics for order placement
type memoryStore struct {
	mu       sync.Mutex
	products map[int64]*models.Product
	orders   map[int64]*models.Order
	nextID   int64
	failWith error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		products: map[int64]*models.Product{},
		orders:   map[int64]*models.Order{},
	}
}

func (m *memoryStore) addProduct(id int64, price int64, stock int) {
	m.products[id] = &models.Product{ID: id, Name: "Mug", Price: decimal.NewFromInt(price), StockQuantity: stock}
}

func (m *memoryStore) stock(id int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].StockQuantity
}

func (m *memoryStore) PlaceOrder(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return m.failWith
	}

	product, ok := m.products[order.ProductID]
	if !ok {
		return repository.ErrNotFound
	}
	if product.StockQuantity < order.Quantity {
		return &repository.StockError{ProductID: product.ID, Available: product.StockQuantity, Requested: order.Quantity}
	}

	product.StockQuantity -= order.Quantity
	order.ApplyUnitPrice(product.Price)
	m.nextID++
	order.ID = m.nextID
	stored := *order
	m.orders[order.ID] = &stored
	return nil
}

func (m *memoryStore) GetByID(_ context.Context, id int64) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *order
	return &copied, nil
}

func (m *memoryStore) GetAll(_ context.Context) ([]*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	orders := []*models.Order{}
	for _, o := range m.orders {
		copied := *o
		orders = append(orders, &copied)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	return orders, nil
}

func (m *memoryStore) UpdateStatus(_ context.Context, id int64, status models.OrderStatus) (*models.Order, models.OrderStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[id]
	if !ok {
		return nil, "", repository.ErrNotFound
	}
	old := order.Status
	order.Status = status
	copied := *order
	return &copied, old, nil
}

func (m *memoryStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.orders[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.orders, id)
	return nil
}

type mockTrackingCache struct {
	mock.Mock
}

func (m *mockTrackingCache) Get(ctx context.Context, orderID int64) (*models.OrderTracking, error) {
	args := m.Called(ctx, orderID)
	tracking, _ := args.Get(0).(*models.OrderTracking)
	return tracking, args.Error(1)
}

func (m *mockTrackingCache) Set(ctx context.Context, tracking *models.OrderTracking) error {
	return m.Called(ctx, tracking).Error(0)
}

func (m *mockTrackingCache) Invalidate(ctx context.Context, orderID int64) error {
	return m.Called(ctx, orderID).Error(0)
}

type mockProductStore struct {
	mock.Mock
}

func (m *mockProductStore) Create(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	if args.Error(0) == nil {
		product.ID = 1
	}
	return args.Error(0)
}

func (m *mockProductStore) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	args := m.Called(ctx, id)
	product, _ := args.Get(0).(*models.Product)
	return product, args.Error(1)
}

func (m *mockProductStore) GetAll(ctx context.Context) ([]*models.Product, error) {
	args := m.Called(ctx)
	products, _ := args.Get(0).([]*models.Product)
	return products, args.Error(1)
}

func (m *mockProductStore) Update(ctx context.Context, id int64, patch *models.ProductPatch) (*models.Product, error) {
	args := m.Called(ctx, id, patch)
	product, _ := args.Get(0).(*models.Product)
	return product, args.Error(1)
}

func (m *mockProductStore) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

// memoryImages records saved files under predictable references
type memoryImages struct {
	files map[string][]byte
	err   error
}

func newMemoryImages() *memoryImages {
	return &memoryImages{files: map[string][]byte{}}
}

func (m *memoryImages) Save(_ context.Context, name, _ string, r io.Reader) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	ref := "ref_" + name
	m.files[ref] = buf.Bytes()
	return ref, nil
}

func (m *memoryImages) URL(ref string) string {
	return "/uploads/" + ref
}

var errStoreDown = errors.New("connection refused")
