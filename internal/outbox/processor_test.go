package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vaidashi/storefront-api/internal/models"
	"github.com/vaidashi/storefront-api/pkg/circuitbreaker"
	"github.com/vaidashi/storefront-api/pkg/logger"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetPendingMessages(ctx context.Context, limit int) ([]*models.OutboxMessage, error) {
	args := m.Called(ctx, limit)
	msgs, _ := args.Get(0).([]*models.OutboxMessage)
	return msgs, args.Error(1)
}

func (m *mockStore) MarkAsProcessing(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) MarkAsCompleted(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStore) MarkAsFailed(ctx context.Context, id int64, errorMessage string) error {
	return m.Called(ctx, id, errorMessage).Error(0)
}

func (m *mockStore) MarkForRetry(ctx context.Context, id int64, errorMessage string) error {
	return m.Called(ctx, id, errorMessage).Error(0)
}

func (m *mockStore) RequeueStale(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type handlerFunc func(ctx context.Context, message *models.OutboxMessage) error

func (f handlerFunc) HandleMessage(ctx context.Context, message *models.OutboxMessage) error {
	return f(ctx, message)
}

func newTestProcessor(store Store, maxAttempts int) *Processor {
	return NewProcessor(store, ProcessorConfig{
		PollingInterval: time.Second,
		BatchSize:       10,
		MaxAttempts:     maxAttempts,
	}, logger.Nop())
}

func orderCreatedMessage(t *testing.T, id int64, attempts int) *models.OutboxMessage {
	msg, err := models.NewOrderCreatedEvent(&models.Order{ID: 42, Status: models.OrderStatusPending})
	require.NoError(t, err)
	msg.ID = id
	msg.ProcessingAttempts = attempts
	return msg
}

func TestProcessBatchCompletesHandledMessages(t *testing.T) {
	store := new(mockStore)
	p := newTestProcessor(store, 3)

	var handled []int64
	p.RegisterHandler(models.EventOrderCreated, handlerFunc(func(_ context.Context, m *models.OutboxMessage) error {
		handled = append(handled, m.ID)
		return nil
	}))

	store.On("GetPendingMessages", mock.Anything, 10).Return([]*models.OutboxMessage{
		orderCreatedMessage(t, 1, 0),
		orderCreatedMessage(t, 2, 0),
	}, nil)
	store.On("MarkAsProcessing", mock.Anything, mock.Anything).Return(true, nil)
	store.On("MarkAsCompleted", mock.Anything, int64(1)).Return(nil)
	store.On("MarkAsCompleted", mock.Anything, int64(2)).Return(nil)

	require.NoError(t, p.processBatch(context.Background()))
	assert.Equal(t, []int64{1, 2}, handled)
	store.AssertExpectations(t)
}

func TestProcessMessageRequeuesBeforeMaxAttempts(t *testing.T) {
	store := new(mockStore)
	p := newTestProcessor(store, 3)
	p.RegisterHandler(models.EventOrderCreated, handlerFunc(func(context.Context, *models.OutboxMessage) error {
		return errors.New("broker unavailable")
	}))

	store.On("MarkAsProcessing", mock.Anything, int64(1)).Return(true, nil)
	store.On("MarkForRetry", mock.Anything, int64(1), "broker unavailable").Return(nil)

	require.NoError(t, p.processMessage(context.Background(), orderCreatedMessage(t, 1, 1)))
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "MarkAsFailed", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessMessageFailsAtMaxAttempts(t *testing.T) {
	store := new(mockStore)
	p := newTestProcessor(store, 3)
	p.RegisterHandler(models.EventOrderCreated, handlerFunc(func(context.Context, *models.OutboxMessage) error {
		return errors.New("broker unavailable")
	}))

	store.On("MarkAsProcessing", mock.Anything, int64(1)).Return(true, nil)
	store.On("MarkAsFailed", mock.Anything, int64(1), "max attempts reached: broker unavailable").Return(nil)

	err := p.processMessage(context.Background(), orderCreatedMessage(t, 1, 2))
	require.Error(t, err)
	store.AssertExpectations(t)
}

func TestProcessMessageWithoutHandler(t *testing.T) {
	store := new(mockStore)
	p := newTestProcessor(store, 3)

	store.On("MarkAsProcessing", mock.Anything, int64(1)).Return(true, nil)
	store.On("MarkAsFailed", mock.Anything, int64(1), mock.AnythingOfType("string")).Return(nil)

	assert.Error(t, p.processMessage(context.Background(), orderCreatedMessage(t, 1, 0)))
	store.AssertExpectations(t)
}

func TestProcessMessageSkipsClaimedElsewhere(t *testing.T) {
	store := new(mockStore)
	p := newTestProcessor(store, 3)
	p.RegisterHandler(models.EventOrderCreated, handlerFunc(func(context.Context, *models.OutboxMessage) error {
		t.Fatal("handler must not run")
		return nil
	}))

	store.On("MarkAsProcessing", mock.Anything, int64(1)).Return(false, nil)

	require.NoError(t, p.processMessage(context.Background(), orderCreatedMessage(t, 1, 0)))
	store.AssertExpectations(t)
}

func TestStartRequeuesStaleAndStops(t *testing.T) {
	store := new(mockStore)
	p := newTestProcessor(store, 3)

	store.On("RequeueStale", mock.Anything).Return(int64(2), nil).Once()
	store.On("GetPendingMessages", mock.Anything, 10).Return([]*models.OutboxMessage{}, nil).Maybe()

	p.Start()
	p.Start()
	p.Stop()
	p.Stop()

	store.AssertExpectations(t)
}

type recordingPublisher struct {
	topic, key string
	value      []byte
	err        error
}

func (r *recordingPublisher) SendMessage(_ context.Context, topic, key string, value []byte) error {
	r.topic, r.key, r.value = topic, key, value
	return r.err
}

func TestKafkaHandlerKeysByOrder(t *testing.T) {
	pub := &recordingPublisher{}
	h := NewKafkaHandler(pub, "storefront.orders", logger.Nop())
	msg := orderCreatedMessage(t, 1, 0)

	require.NoError(t, h.HandleMessage(context.Background(), msg))
	assert.Equal(t, "storefront.orders", pub.topic)
	assert.Equal(t, "42", pub.key)
	assert.Equal(t, msg.Payload, pub.value)

	pub.err = errors.New("leader not available")
	assert.ErrorContains(t, h.HandleMessage(context.Background(), msg), "leader not available")
}

func TestLoggingHandlerRejectsBadPayload(t *testing.T) {
	h := NewLoggingHandler(logger.Nop())

	assert.NoError(t, h.HandleMessage(context.Background(), orderCreatedMessage(t, 1, 0)))
	assert.Error(t, h.HandleMessage(context.Background(), &models.OutboxMessage{Payload: []byte("{")}))
}

func TestOpenBreakerPausesDelivery(t *testing.T) {
	store := new(mockStore)
	breaker := circuitbreaker.New(circuitbreaker.Config{FailureThreshold: 2, ResetTimeout: time.Hour})
	p := NewProcessor(store, ProcessorConfig{
		PollingInterval: time.Second,
		BatchSize:       10,
		MaxAttempts:     5,
		Breaker:         breaker,
	}, logger.Nop())

	calls := 0
	p.RegisterHandler(models.EventOrderCreated, handlerFunc(func(context.Context, *models.OutboxMessage) error {
		calls++
		return errors.New("broker unavailable")
	}))

	store.On("GetPendingMessages", mock.Anything, 10).Return([]*models.OutboxMessage{
		orderCreatedMessage(t, 1, 0),
		orderCreatedMessage(t, 2, 0),
		orderCreatedMessage(t, 3, 0),
	}, nil)
	store.On("MarkAsProcessing", mock.Anything, mock.Anything).Return(true, nil)
	store.On("MarkForRetry", mock.Anything, mock.Anything, "broker unavailable").Return(nil)

	require.NoError(t, p.processBatch(context.Background()))

	assert.Equal(t, 2, calls)
	assert.Equal(t, circuitbreaker.StateOpen, breaker.State())
	store.AssertNotCalled(t, "MarkAsProcessing", mock.Anything, int64(3))
}
