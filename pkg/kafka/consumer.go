package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// ErrPoisonMessage marks a message that can never be processed. A handler
// wraps it so the consumer commits the offset and moves on; any other error
// leaves the offset uncommitted.
var ErrPoisonMessage = errors.New("poison message")

type MessageHandler func(ctx context.Context, key, value []byte) error

const (
	defaultMaxRetries   = 3
	defaultRetryBackoff = 500 * time.Millisecond
	maxRetryBackoff     = 10 * time.Second
)

type Consumer struct {
	group   sarama.ConsumerGroup
	topics  []string
	handler MessageHandler
	logger  *zap.Logger

	maxRetries   int
	retryBackoff time.Duration

	readyOnce sync.Once
	ready     chan struct{}
}

type ConsumerConfig struct {
	Brokers           []string
	Topics            []string
	GroupID           string
	AutoCommit        bool
	CommitInterval    time.Duration
	SessionTimeout    time.Duration
	RebalanceStrategy string

	// MaxRetries и RetryBackoff относятся к временным ошибкам handler'а
	MaxRetries   int
	RetryBackoff time.Duration
}

func NewConsumer(cfg ConsumerConfig, handler MessageHandler, logger *zap.Logger) (*Consumer, error) {
	// Создание consumer group
	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, consumerConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	logger.Info("Kafka consumer initialized",
		zap.Strings("brokers", cfg.Brokers),
		zap.Strings("topics", cfg.Topics),
		zap.String("group_id", cfg.GroupID),
		zap.String("rebalance_strategy", cfg.RebalanceStrategy),
	)

	return newConsumer(group, cfg, handler, logger), nil
}

func newConsumer(group sarama.ConsumerGroup, cfg ConsumerConfig, handler MessageHandler, logger *zap.Logger) *Consumer {
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	} else if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}

	return &Consumer{
		group:        group,
		topics:       cfg.Topics,
		handler:      handler,
		logger:       logger,
		maxRetries:   maxRetries,
		retryBackoff: backoff,
		ready:        make(chan struct{}),
	}
}

func consumerConfig(cfg ConsumerConfig) *sarama.Config {
	config := sarama.NewConfig()
	config.Version = sarama.V3_3_0_0
	config.Consumer.Return.Errors = true
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Consumer.Offsets.AutoCommit.Enable = cfg.AutoCommit
	if cfg.CommitInterval > 0 {
		config.Consumer.Offsets.AutoCommit.Interval = cfg.CommitInterval
	}
	if cfg.SessionTimeout > 0 {
		config.Consumer.Group.Session.Timeout = cfg.SessionTimeout
		config.Consumer.Group.Heartbeat.Interval = cfg.SessionTimeout / 3
	}
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{
		balanceStrategy(cfg.RebalanceStrategy),
	}
	return config
}

func balanceStrategy(name string) sarama.BalanceStrategy {
	switch name {
	case "sticky":
		// Sticky - сохраняет назначения при rebalance
		return sarama.NewBalanceStrategySticky()
	case "roundrobin":
		// RoundRobin - партиции распределяются равномерно
		return sarama.NewBalanceStrategyRoundRobin()
	default:
		// Range - партиции распределяются последовательно
		return sarama.NewBalanceStrategyRange()
	}
}

// Start consumes until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	go func() {
		for err := range c.group.Errors() {
			c.logger.Error("Consumer group error", zap.Error(err))
		}
	}()

	for {
		// Consume возвращается при rebalance и при выходе из ConsumeClaim,
		// новая session начинает с последнего закоммиченного offset
		if err := c.group.Consume(ctx, c.topics, c); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			c.logger.Error("Error from consumer", zap.Error(err))
		}
		if ctx.Err() != nil {
			c.logger.Info("Context cancelled, stopping consumer")
			return nil
		}
	}
}

// Ready is closed after the first partition assignment.
func (c *Consumer) Ready() <-chan struct{} {
	return c.ready
}

func (c *Consumer) Close() error {
	if err := c.group.Close(); err != nil {
		c.logger.Error("Failed to close consumer group", zap.Error(err))
		return err
	}
	c.logger.Info("Kafka consumer closed")
	return nil
}

// Setup вызывается при старте новой session (после rebalance)
func (c *Consumer) Setup(session sarama.ConsumerGroupSession) error {
	c.logger.Info("Consumer group rebalanced", zap.Any("claims", session.Claims()))
	c.readyOnce.Do(func() { close(c.ready) })
	return nil
}

func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim marks a message once it is processed or poisoned. When a
// transient failure outlives the retries it returns without marking, which
// ends the session; the message is redelivered from the committed offset.
func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				return nil
			}

			c.logger.Debug("Message received",
				zap.String("topic", message.Topic),
				zap.Int32("partition", message.Partition),
				zap.Int64("offset", message.Offset),
				zap.String("key", string(message.Key)),
			)

			if err := c.process(session.Context(), message); err != nil {
				c.logger.Warn("Leaving message uncommitted for redelivery",
					zap.Error(err),
					zap.String("topic", message.Topic),
					zap.Int32("partition", message.Partition),
					zap.Int64("offset", message.Offset),
				)
				return err
			}
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

// process returns nil when the message may be committed.
func (c *Consumer) process(ctx context.Context, message *sarama.ConsumerMessage) error {
	backoff := c.retryBackoff
	for attempt := 0; ; attempt++ {
		err := c.handler(ctx, message.Key, message.Value)
		if err == nil {
			return nil
		}

		if errors.Is(err, ErrPoisonMessage) {
			// Битое сообщение не исправится при повторе, пропускаем
			c.logger.Error("Skipping unprocessable message",
				zap.Error(err),
				zap.String("topic", message.Topic),
				zap.Int32("partition", message.Partition),
				zap.Int64("offset", message.Offset),
			)
			return nil
		}

		if attempt >= c.maxRetries {
			return fmt.Errorf("message at offset %d failed after %d attempts: %w", message.Offset, attempt+1, err)
		}

		c.logger.Warn("Retrying message",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Int64("offset", message.Offset),
		)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff = min(backoff*2, maxRetryBackoff)
	}
}
