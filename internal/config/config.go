package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment    string
	LogLevel       string
	CollectorPort  string
	DashboardPort  string
	GRPCHealthPort string
	ShutdownGrace  time.Duration
	AllowedOrigins []string
	Postgres       PostgresConfig
	Kafka          KafkaConfig
	Redis          RedisConfig
	Dashboard      DashboardConfig
}

type PostgresConfig struct {
	Host            string
	Port            string
	Database        string
	Username        string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	SSLMode         string
}

type KafkaConfig struct {
	Brokers           []string
	Topic             string
	ConsumerGroup     string
	ProducerRetries   int
	ProducerTimeout   time.Duration
	RequiredAcks      int
	CompressionType   string
	MaxMessageBytes   int
	IdempotentWrites  bool
	SessionTimeout    time.Duration
	RebalanceStrategy string
	MaxRetries        int
	RetryBackoff      time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	DedupTTL time.Duration
}

type DashboardConfig struct {
	Timezone      string
	RecentLimit   int
	FetchTimeout  time.Duration
	MaxCustomDays int
}

func Load() (*Config, error) {
	_ = godotenv.Load()
	cfg := &Config{
		Environment:    getEnv("ENVIRONMENT", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		CollectorPort:  getEnv("COLLECTOR_HTTP_PORT", "8081"),
		DashboardPort:  getEnv("DASHBOARD_HTTP_PORT", "8080"),
		GRPCHealthPort: getEnv("GRPC_HEALTH_PORT", "50052"),
		ShutdownGrace:  getEnvAsDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
	}

	cfg.Postgres = PostgresConfig{
		Host:            getEnv("POSTGRES_HOST", "localhost"),
		Port:            getEnv("POSTGRES_PORT", "5432"),
		Database:        getEnv("POSTGRES_DB", "analytics"),
		Username:        getEnv("POSTGRES_USER", "admin"),
		Password:        getEnv("POSTGRES_PASSWORD", "password"),
		MaxOpenConns:    getEnvAsInt("POSTGRES_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("POSTGRES_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("POSTGRES_CONN_MAX_LIFETIME", 5*time.Minute),
		SSLMode:         getEnv("POSTGRES_SSL_MODE", "disable"),
	}

	topic := getEnv("KAFKA_TOPIC_VISITS", "visitor-events")
	cfg.Kafka = KafkaConfig{
		Brokers:           getEnvAsList("KAFKA_BROKERS", []string{"localhost:9092"}),
		Topic:             topic,
		ConsumerGroup:     getEnv("KAFKA_CONSUMER_GROUP", topic+"-ingest"),
		ProducerRetries:   getEnvAsInt("KAFKA_PRODUCER_RETRIES", 3),
		ProducerTimeout:   getEnvAsDuration("KAFKA_PRODUCER_TIMEOUT", 10*time.Second),
		RequiredAcks:      getEnvAsInt("KAFKA_REQUIRED_ACKS", -1), // -1 = все ISR реплики
		CompressionType:   getEnv("KAFKA_COMPRESSION", "snappy"),
		IdempotentWrites:  getEnvAsBool("KAFKA_IDEMPOTENT", true),
		MaxMessageBytes:   getEnvAsInt("KAFKA_MAX_MESSAGE_BYTES", 1000000), // 1MB
		SessionTimeout:    getEnvAsDuration("KAFKA_SESSION_TIMEOUT", 10*time.Second),
		RebalanceStrategy: getEnv("KAFKA_REBALANCE_STRATEGY", "sticky"),
		MaxRetries:        getEnvAsInt("KAFKA_CONSUMER_MAX_RETRIES", 3),
		RetryBackoff:      getEnvAsDuration("KAFKA_CONSUMER_RETRY_BACKOFF", 500*time.Millisecond),
	}

	cfg.Redis = RedisConfig{
		Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvAsInt("REDIS_DB", 0),
		DedupTTL: getEnvAsDuration("REDIS_DEDUP_TTL", 24*time.Hour),
	}

	cfg.Dashboard = DashboardConfig{
		Timezone:      getEnv("DASHBOARD_TIMEZONE", "UTC"),
		RecentLimit:   getEnvAsInt("DASHBOARD_RECENT_LIMIT", 10),
		FetchTimeout:  getEnvAsDuration("DASHBOARD_FETCH_TIMEOUT", 10*time.Second),
		MaxCustomDays: getEnvAsInt("DASHBOARD_MAX_CUSTOM_DAYS", 366),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := c.Dashboard.Location(); err != nil {
		return err
	}
	if c.Dashboard.RecentLimit <= 0 {
		return fmt.Errorf("DASHBOARD_RECENT_LIMIT must be positive, got %d", c.Dashboard.RecentLimit)
	}
	if c.Dashboard.FetchTimeout <= 0 {
		return fmt.Errorf("DASHBOARD_FETCH_TIMEOUT must be positive, got %s", c.Dashboard.FetchTimeout)
	}
	if c.Dashboard.MaxCustomDays <= 0 {
		return fmt.Errorf("DASHBOARD_MAX_CUSTOM_DAYS must be positive, got %d", c.Dashboard.MaxCustomDays)
	}
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS must not be empty")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Location resolves the zone used for both range boundaries and day buckets.
func (d DashboardConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid DASHBOARD_TIMEZONE %q: %w", d.Timezone, err)
	}
	return loc, nil
}

func (c *PostgresConfig) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.Database, c.SSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
