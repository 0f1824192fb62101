package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/vaidashi/storefront-api/internal/cache"
	"github.com/vaidashi/storefront-api/internal/config"
	"github.com/vaidashi/storefront-api/internal/database"
	"github.com/vaidashi/storefront-api/internal/models"
	"github.com/vaidashi/storefront-api/internal/outbox"
	"github.com/vaidashi/storefront-api/internal/repository"
	"github.com/vaidashi/storefront-api/internal/service"
	"github.com/vaidashi/storefront-api/internal/storage"
	"github.com/vaidashi/storefront-api/pkg/circuitbreaker"
	"github.com/vaidashi/storefront-api/pkg/kafka"
	"github.com/vaidashi/storefront-api/pkg/logger"
	"github.com/vaidashi/storefront-api/pkg/middleware"
)

// OrderService is what the order endpoints need
type OrderService interface {
	CreateOrder(ctx context.Context, in service.CreateOrderInput) (*models.Order, error)
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	ListOrders(ctx context.Context) ([]*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status string) (*models.Order, error)
	DeleteOrder(ctx context.Context, id int64) error
	GetTracking(ctx context.Context, id int64) (*models.OrderTracking, error)
}

// ProductService is what the product and upload endpoints need
type ProductService interface {
	CreateProduct(ctx context.Context, form service.ProductForm) (*models.Product, error)
	UpdateProduct(ctx context.Context, id int64, form service.ProductForm) (*models.Product, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	ListProducts(ctx context.Context) ([]*models.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error)
	ImageURL(ref string) string
}

// StatsService is what the dashboard endpoint needs
type StatsService interface {
	Dashboard(ctx context.Context) (*models.DashboardStats, error)
}

// HealthChecker reports whether a backing store is reachable
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Services groups the handlers' dependencies
type Services struct {
	Orders   OrderService
	Products ProductService
	Stats    StatsService
	Health   HealthChecker
	// UploadDir is served under /uploads/ when set
	UploadDir string
}

type Server struct {
	config      *config.Config
	logger      logger.Logger
	router      *mux.Router
	httpServer  *http.Server
	services    Services
	rateLimiter *middleware.RateLimiterMiddleware

	db              *database.Database
	redis           *redis.Client
	kafkaProducer   *kafka.Producer
	outboxProcessor *outbox.Processor
}

// New connects to the backing services and builds a ready-to-start server
func New(ctx context.Context, cfg *config.Config, logger logger.Logger) (*Server, error) {
	db, err := database.New(cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := db.RunMigrations(ctx); err != nil {
		db.Close()
		return nil, err
	}

	var tracking service.TrackingCache = cache.NopTrackingCache{}
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logger.Warn("Tracking cache disabled", "error", err, "addr", cfg.Redis.Addr)
		} else {
			tracking = cache.NewTrackingCache(rdb)
		}
	}

	cleanup := func() {
		if rdb != nil {
			rdb.Close()
		}
		db.Close()
	}

	images, err := storage.New(ctx, cfg.Storage, logger)
	if err != nil {
		cleanup()
		return nil, err
	}

	// Initialize repositories
	orderRepo := repository.NewOrderRepository(db, logger)
	productRepo := repository.NewProductRepository(db, logger)
	outboxRepo := repository.NewOutboxRepository(db, logger)
	statsRepo := repository.NewStatsRepository(db, logger)

	// Register the outbox handler: Kafka when brokers are configured, logs otherwise
	processor := outbox.NewProcessor(outboxRepo, outbox.ProcessorConfig{
		PollingInterval: cfg.Outbox.PollingInterval,
		BatchSize:       cfg.Outbox.BatchSize,
		MaxAttempts:     cfg.Outbox.MaxAttempts,
		Breaker: circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: cfg.Outbox.BreakerThreshold,
			ResetTimeout:     cfg.Outbox.BreakerReset,
			HalfOpenMaxCalls: 1,
		}),
	}, logger)

	var producer *kafka.Producer
	var eventHandler outbox.MessageHandler = outbox.NewLoggingHandler(logger)
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafka.NewProducer(cfg.Kafka.Brokers, logger)
		if err != nil {
			cleanup()
			return nil, err
		}
		eventHandler = outbox.NewKafkaHandler(producer, cfg.Kafka.OrdersTopic, logger)
	}

	for _, eventType := range []string{models.EventOrderCreated, models.EventOrderStatusChanged, models.EventOrderDeleted} {
		processor.RegisterHandler(eventType, eventHandler)
	}

	services := Services{
		Orders:   service.NewOrderService(orderRepo, tracking, cfg.StrictOrderStatus, logger),
		Products: service.NewProductService(productRepo, images, logger),
		Stats:    service.NewStatsService(statsRepo, logger),
		Health:   db,
	}
	if local, ok := images.(*storage.LocalStore); ok {
		services.UploadDir = local.Dir()
	}

	server := NewServer(cfg, logger, services)
	server.db = db
	server.redis = rdb
	server.kafkaProducer = producer
	server.outboxProcessor = processor

	return server, nil
}

// NewServer creates an API server around already built services
func NewServer(cfg *config.Config, logger logger.Logger, services Services) *Server {
	s := &Server{
		config:   cfg,
		logger:   logger,
		router:   mux.NewRouter(),
		services: services,
	}

	if cfg.RateLimit.Burst > 0 && cfg.RateLimit.PerSecond > 0 {
		s.rateLimiter = middleware.NewRateLimiterMiddleware(&middleware.RateLimiterConfig{
			IPMaxTokens:  cfg.RateLimit.Burst,
			IPRefillRate: cfg.RateLimit.PerSecond,
		}, logger)
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the router wrapped in CORS and panic recovery
func (s *Server) Handler() http.Handler {
	cors := handlers.CORS(
		handlers.AllowedOrigins(s.config.CORSOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{s.logger}),
		handlers.PrintRecoveryStack(s.config.IsDevelopment()),
	)

	return recovery(cors(s.router))
}

// Start runs the outbox relay and serves HTTP until Shutdown
func (s *Server) Start() error {
	if s.outboxProcessor != nil {
		s.outboxProcessor.Start()
	}

	s.logger.Info("Server is starting", "port", s.config.Port)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains HTTP traffic, then stops background work and closes connections
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)

	if s.outboxProcessor != nil {
		s.outboxProcessor.Stop()
	}

	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}

	if s.kafkaProducer != nil {
		if cerr := s.kafkaProducer.Close(); cerr != nil {
			s.logger.Error("Error closing Kafka producer", "error", cerr)
		}
	}

	if s.redis != nil {
		if cerr := s.redis.Close(); cerr != nil {
			s.logger.Error("Error closing redis client", "error", cerr)
		}
	}

	if s.db != nil {
		if cerr := s.db.Close(); cerr != nil {
			s.logger.Error("Error closing database connection", "error", cerr)
		}
	}

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// setupRoutes configures all the routes for our API. Every route is served
// both at the root and under /api.
func (s *Server) setupRoutes() {
	s.router.Use(s.loggingMiddleware)

	s.registerRoutes(s.router)
	s.registerRoutes(s.router.PathPrefix("/api").Subrouter())

	if s.services.UploadDir != "" {
		s.router.PathPrefix("/uploads/").Handler(
			http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.services.UploadDir))),
		).Methods(http.MethodGet, http.MethodHead)
	}
}

func (s *Server) registerRoutes(r *mux.Router) {
	r.HandleFunc("/health", s.healthCheckHandler).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.statsHandler).Methods(http.MethodGet)

	r.HandleFunc("/orders", s.getOrdersHandler).Methods(http.MethodGet)
	r.Handle("/orders", s.limited(s.createOrderHandler)).Methods(http.MethodPost)
	r.HandleFunc("/orders/{id}", s.getOrderByIDHandler).Methods(http.MethodGet)
	r.HandleFunc("/orders/{id}", s.updateOrderStatusHandler).Methods(http.MethodPut)
	r.HandleFunc("/orders/{id}", s.deleteOrderHandler).Methods(http.MethodDelete)
	r.HandleFunc("/orders/{id}/tracking", s.getOrderTrackingHandler).Methods(http.MethodGet)

	r.HandleFunc("/products", s.getProductsHandler).Methods(http.MethodGet)
	r.HandleFunc("/products", s.createProductHandler).Methods(http.MethodPost)
	r.HandleFunc("/products/{id}", s.getProductByIDHandler).Methods(http.MethodGet)
	r.HandleFunc("/products/{id}", s.updateProductHandler).Methods(http.MethodPut)
	r.HandleFunc("/products/{id}", s.deleteProductHandler).Methods(http.MethodDelete)

	r.Handle("/upload", s.limited(s.uploadHandler)).Methods(http.MethodPost)
}

// limited applies the per-IP limiter to a public write endpoint
func (s *Server) limited(h http.HandlerFunc) http.Handler {
	if s.rateLimiter == nil {
		return h
	}
	return s.rateLimiter.Middleware(h)
}
