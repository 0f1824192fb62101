package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/vaidashi/storefront-api/internal/config"
	"github.com/vaidashi/storefront-api/internal/handlers"
	"github.com/vaidashi/storefront-api/pkg/kafka"
	"github.com/vaidashi/storefront-api/pkg/logger"
)

// notifier consumes order events and sends customer notifications
func main() {
	cfg, err := config.Load()

	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.NewLogger(cfg.LogLevel)
	if cfg.IsDevelopment() {
		l = logger.NewDevelopmentLogger(cfg.LogLevel)
	}

	if len(cfg.Kafka.Brokers) == 0 {
		l.Error("KAFKA_BROKERS is required for the notifier")
		os.Exit(1)
	}

	consumer, err := kafka.NewConsumer(&kafka.ConsumerConfig{
		Brokers:       cfg.Kafka.Brokers,
		Topics:        []string{cfg.Kafka.OrdersTopic},
		ConsumerGroup: cfg.Kafka.ConsumerGroup,
	}, l)

	if err != nil {
		l.Error("Failed to create Kafka consumer", "error", err)
		os.Exit(1)
	}

	consumer.RegisterHandler(cfg.Kafka.OrdersTopic, handlers.NewOrderEventsHandler(l))

	if err := consumer.Start(); err != nil {
		l.Error("Failed to start Kafka consumer", "error", err)
		os.Exit(1)
	}
	l.Info("Notifier started", "topic", cfg.Kafka.OrdersTopic, "group", cfg.Kafka.ConsumerGroup)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	l.Info("Shutting down notifier...")

	if err := consumer.Stop(); err != nil {
		l.Error("Error stopping consumer", "error", err)
	}
}
