package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Wuchinator/visitor-dashboard/internal/config"
	"github.com/Wuchinator/visitor-dashboard/internal/visitor"
	"github.com/Wuchinator/visitor-dashboard/pkg/kafka"
	"github.com/Wuchinator/visitor-dashboard/pkg/logger"
	"github.com/Wuchinator/visitor-dashboard/pkg/postgres"
	"github.com/Wuchinator/visitor-dashboard/pkg/redis"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.NewLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer log.Sync()

	log = logger.WithService(log, "visitor-service")
	log.Info("Starting Visitor Service",
		zap.String("environment", cfg.Environment),
		zap.String("consumer_group", cfg.Kafka.ConsumerGroup),
	)

	db, err := postgres.New(postgres.Config{
		DSN:             cfg.Postgres.PostgresDSN(),
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
	}, log)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer db.Close()

	cache, err := redis.New(redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, log)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer cache.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	visitorRepo := visitor.NewRepository(db, log)
	if err := visitorRepo.EnsureSchema(ctx); err != nil {
		log.Fatal("Failed to prepare schema", zap.Error(err))
	}
	dedup := visitor.NewDeduplicator(cache, cfg.Redis.DedupTTL)
	visitorService := visitor.NewService(visitorRepo, nil, dedup, log)

	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:           cfg.Kafka.Brokers,
		Topics:            []string{cfg.Kafka.Topic},
		GroupID:           cfg.Kafka.ConsumerGroup,
		AutoCommit:        true,
		CommitInterval:    1 * time.Second,
		SessionTimeout:    cfg.Kafka.SessionTimeout,
		RebalanceStrategy: cfg.Kafka.RebalanceStrategy,
		MaxRetries:        cfg.Kafka.MaxRetries,
		RetryBackoff:      cfg.Kafka.RetryBackoff,
	}, visitorService.MessageHandler(), log)
	if err != nil {
		log.Fatal("Failed to create Kafka consumer", zap.Error(err))
	}

	go func() {
		if err := consumer.Start(ctx); err != nil {
			log.Error("Consumer error", zap.Error(err))
		}
	}()

	go func() {
		select {
		case <-consumer.Ready():
			log.Info("Kafka consumer is ready and consuming messages")
		case <-ctx.Done():
		}
	}()

	// Периодическая проверка соединений
	go func() {
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				checkCtx, checkCancel := context.WithTimeout(ctx, 5*time.Second)
				if err := db.HealthCheck(checkCtx); err != nil {
					log.Warn("PostgreSQL health check failed", zap.Error(err))
				}
				if err := cache.HealthCheck(checkCtx); err != nil {
					log.Warn("Redis health check failed", zap.Error(err))
				}
				checkCancel()
				log.Debug("Connection pool", zap.Any("stats", db.PoolStats()))
			case <-ctx.Done():
				return
			}
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down gracefully...")
	cancel()

	if err := consumer.Close(); err != nil {
		log.Warn("Failed to close Kafka consumer", zap.Error(err))
	}

	log.Info("Visitor Service stopped")
}
