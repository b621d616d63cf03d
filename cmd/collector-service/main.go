package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Wuchinator/visitor-dashboard/internal/config"
	"github.com/Wuchinator/visitor-dashboard/internal/visitor"
	"github.com/Wuchinator/visitor-dashboard/pkg/httpserver"
	"github.com/Wuchinator/visitor-dashboard/pkg/kafka"
	"github.com/Wuchinator/visitor-dashboard/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Error loading config: %v", err))
	}

	log, err := logger.NewLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		panic(fmt.Sprintf("Error initializing logger: %v", err))
	}
	defer log.Sync()

	log = logger.WithService(log, "collector-service")
	log.Info("Starting Collector Service",
		zap.String("environment", cfg.Environment),
		zap.String("http_port", cfg.CollectorPort),
		zap.String("topic", cfg.Kafka.Topic),
	)

	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:          cfg.Kafka.Brokers,
		Topic:            cfg.Kafka.Topic,
		Retries:          cfg.Kafka.ProducerRetries,
		Timeout:          cfg.Kafka.ProducerTimeout,
		RequiredAcks:     cfg.Kafka.RequiredAcks,
		Compression:      cfg.Kafka.CompressionType,
		IdempotentWrites: cfg.Kafka.IdempotentWrites,
		MaxMessageBytes:  cfg.Kafka.MaxMessageBytes,
	}, log)
	if err != nil {
		log.Fatal("Error initializing kafka", zap.Error(err))
	}
	defer producer.Close()

	visitorService := visitor.NewService(nil, producer, nil, log)
	visitorHandler := visitor.NewHandler(visitorService, logger.WithComponent(log, "http"))

	router := httpserver.NewEngine(httpserver.Config{
		Production:     cfg.IsProduction(),
		AllowedOrigins: cfg.AllowedOrigins,
	}, log)
	visitorHandler.RegisterRoutes(router.Group("/api/v1"))

	server := httpserver.NewServer(cfg.CollectorPort, router, log)
	server.Start()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Warn("Shutdown HTTP server timed out", zap.Error(err))
	}
	log.Info("Collector Service stopped")
}
