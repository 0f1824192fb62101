package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vaidashi/storefront-api/internal/models"
	"github.com/vaidashi/storefront-api/pkg/circuitbreaker"
	"github.com/vaidashi/storefront-api/pkg/logger"
)

// MessageHandler defines the interface for handling outbox messages
type MessageHandler interface {
	HandleMessage(ctx context.Context, message *models.OutboxMessage) error
}

// Store is the outbox table as seen by the relay
type Store interface {
	GetPendingMessages(ctx context.Context, limit int) ([]*models.OutboxMessage, error)
	MarkAsProcessing(ctx context.Context, id int64) (bool, error)
	MarkAsCompleted(ctx context.Context, id int64) error
	MarkAsFailed(ctx context.Context, id int64, errorMessage string) error
	MarkForRetry(ctx context.Context, id int64, errorMessage string) error
	RequeueStale(ctx context.Context) (int64, error)
}

// Processor relays pending outbox messages to their handlers
type Processor struct {
	store           Store
	handlers        map[string]MessageHandler
	pollingInterval time.Duration
	batchSize       int
	maxAttempts     int
	breaker         *circuitbreaker.CircuitBreaker
	logger          logger.Logger
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	running         bool
	mu              sync.Mutex
}

// ProcessorConfig holds the configuration for the Processor
type ProcessorConfig struct {
	PollingInterval time.Duration
	BatchSize       int
	MaxAttempts     int
	// Breaker, when set, pauses delivery while handlers keep failing so
	// queued messages do not use up their attempts
	Breaker *circuitbreaker.CircuitBreaker
}

// NewProcessor creates a new Processor
func NewProcessor(store Store, config ProcessorConfig, logger logger.Logger) *Processor {
	ctx, cancel := context.WithCancel(context.Background())

	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}

	return &Processor{
		store:           store,
		handlers:        make(map[string]MessageHandler),
		pollingInterval: config.PollingInterval,
		batchSize:       config.BatchSize,
		maxAttempts:     config.MaxAttempts,
		breaker:         config.Breaker,
		logger:          logger,
		ctx:             ctx,
		cancel:          cancel,
	}
}

// RegisterHandler registers a message handler for a specific event type
func (p *Processor) RegisterHandler(eventType string, handler MessageHandler) {
	p.handlers[eventType] = handler
}

// Start starts the outbox processor
func (p *Processor) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}

	if n, err := p.store.RequeueStale(p.ctx); err != nil {
		p.logger.Warn("Failed to requeue stale outbox messages", "error", err)
	} else if n > 0 {
		p.logger.Info("Requeued stale outbox messages", "count", n)
	}

	p.running = true
	p.wg.Add(1)

	go func() {
		defer p.wg.Done()
		p.processOutbox()
	}()

	p.logger.Info("Outbox processor started",
		"pollingInterval", p.pollingInterval,
		"batchSize", p.batchSize,
		"maxAttempts", p.maxAttempts)
}

// Stop stops the outbox processor and waits for the current batch
func (p *Processor) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	p.cancel()
	p.wg.Wait()
	p.running = false

	p.logger.Info("Outbox processor stopped")
}

// processOutbox processes outbox messages in a loop
func (p *Processor) processOutbox() {
	ticker := time.NewTicker(p.pollingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			if err := p.processBatch(p.ctx); err != nil {
				p.logger.Error("Failed to process outbox batch", "error", err)
			}
		}
	}
}

// processBatch processes a batch of outbox messages
func (p *Processor) processBatch(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, p.pollingInterval)
	defer cancel()

	messages, err := p.store.GetPendingMessages(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending messages: %w", err)
	}

	if len(messages) == 0 {
		p.logger.Debug("No pending messages to process")
		return nil
	}

	p.logger.Info("Processing batch of outbox messages", "count", len(messages))

	for _, msg := range messages {
		if p.breaker != nil && !p.breaker.Allow() {
			p.logger.Warn("Outbox delivery paused, circuit open", "breaker", p.breaker.Metrics())
			return nil
		}

		if err := p.processMessage(ctx, msg); err != nil {
			p.logger.Error("Failed to process message",
				"error", err,
				"messageID", msg.ID,
				"aggregateID", msg.AggregateID,
				"eventType", msg.EventType)
		}
	}

	return nil
}

// processMessage processes a single outbox message
func (p *Processor) processMessage(ctx context.Context, msg *models.OutboxMessage) error {
	claimed, err := p.store.MarkAsProcessing(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("failed to mark message as processing: %w", err)
	}
	if !claimed {
		return nil
	}

	attempt := msg.ProcessingAttempts + 1

	handler, exists := p.handlers[msg.EventType]
	if !exists {
		errorMsg := fmt.Sprintf("no handler registered for event type: %s", msg.EventType)
		if err := p.store.MarkAsFailed(ctx, msg.ID, errorMsg); err != nil {
			p.logger.Error("Failed to mark message as failed", "error", err, "messageID", msg.ID)
		}
		return fmt.Errorf("%s", errorMsg)
	}

	err = handler.HandleMessage(ctx, msg)
	p.recordOutcome(err)

	if err != nil {
		if attempt >= p.maxAttempts {
			errorMsg := fmt.Sprintf("max attempts reached: %s", err.Error())
			if markErr := p.store.MarkAsFailed(ctx, msg.ID, errorMsg); markErr != nil {
				p.logger.Error("Failed to mark message as failed", "error", markErr, "messageID", msg.ID)
			}
			return fmt.Errorf("message failed after %d attempts: %w", attempt, err)
		}

		// back to pending; the next poll redelivers it
		if markErr := p.store.MarkForRetry(ctx, msg.ID, err.Error()); markErr != nil {
			p.logger.Error("Failed to requeue message", "error", markErr, "messageID", msg.ID)
		}

		p.logger.Warn("Message processing failed, will redeliver",
			"error", err,
			"messageID", msg.ID,
			"attempt", attempt)
		return nil
	}

	if err := p.store.MarkAsCompleted(ctx, msg.ID); err != nil {
		return fmt.Errorf("failed to mark message as completed: %w", err)
	}

	p.logger.Info("Successfully processed message",
		"messageID", msg.ID,
		"aggregateID", msg.AggregateID,
		"eventType", msg.EventType)

	return nil
}

func (p *Processor) recordOutcome(err error) {
	if p.breaker == nil {
		return
	}
	if err != nil {
		p.breaker.Failure()
		return
	}
	p.breaker.Success()
}
