package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type CacheTTLConfig struct {
	CustomerEntity time.Duration
	CustomerList   time.Duration
	ItemEntity     time.Duration
	ItemList       time.Duration
	OrderEntity    time.Duration
	OrderList      time.Duration
}

type Config struct {
	HTTPPort int

	DB DBConfig

	KafkaURL           string
	KafkaConsumerGroup string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	TTL CacheTTLConfig

	MigrationsPath string

	ConnectMaxRetries int
	ConnectBackoff    time.Duration
	ShutdownGrace     time.Duration
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}

	port, err := strconv.Atoi(getEnvOrDefault("HTTP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_PORT: %w", err)
	}
	cfg.HTTPPort = port

	cfg.DB.Host = getEnvOrDefault("DB_HOST", "localhost")
	cfg.DB.Port = getEnvOrDefault("DB_PORT", "5432")
	cfg.DB.User = getEnvOrDefault("DB_USER", "postgres")
	cfg.DB.Password = getEnvOrDefault("DB_PASSWORD", "postgres")
	cfg.DB.Name = getEnvOrDefault("DB_NAME", "ordercore_db")
	cfg.DB.SSLMode = getEnvOrDefault("DB_SSLMODE", "disable")

	cfg.KafkaURL = getEnvOrDefault("KAFKA_BROKER_URL", "localhost:9092")
	// Stable across restarts so offset resumption is broker-managed.
	cfg.KafkaConsumerGroup = getEnvOrDefault("KAFKA_CONSUMER_GROUP", "ordercore-group")

	cfg.RedisAddr = getEnvOrDefault("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnvOrDefault("REDIS_PASSWORD", "")
	redisDB, err := strconv.Atoi(getEnvOrDefault("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	cfg.RedisDB = redisDB

	// List TTLs are shorter than entity TTLs because list membership changes
	// more often than individual field values.
	if cfg.TTL.CustomerEntity, err = durationEnv("CACHE_TTL_CUSTOMER", time.Hour); err != nil {
		return nil, err
	}
	if cfg.TTL.CustomerList, err = durationEnv("CACHE_TTL_CUSTOMER_LIST", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.TTL.ItemEntity, err = durationEnv("CACHE_TTL_ITEM", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.TTL.ItemList, err = durationEnv("CACHE_TTL_ITEM_LIST", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.TTL.OrderEntity, err = durationEnv("CACHE_TTL_ORDER", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.TTL.OrderList, err = durationEnv("CACHE_TTL_ORDER_LIST", 5*time.Minute); err != nil {
		return nil, err
	}

	cfg.MigrationsPath = getEnvOrDefault("MIGRATIONS_PATH", "file://migrations")

	retries, err := strconv.Atoi(getEnvOrDefault("CONNECT_MAX_RETRIES", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid CONNECT_MAX_RETRIES: %w", err)
	}
	cfg.ConnectMaxRetries = retries

	if cfg.ConnectBackoff, err = durationEnv("CONNECT_BACKOFF", time.Second); err != nil {
		return nil, err
	}
	if cfg.ShutdownGrace, err = durationEnv("SHUTDOWN_GRACE", 30*time.Second); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func durationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func (c *Config) GetDBConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode)
}

func (c *Config) GetDBMigrationConnectionString() string {
	return fmt.Sprintf("%s:%s@%s:%s/%s?sslmode=%s",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name, c.DB.SSLMode)
}

func (c *Config) GetKafkaBrokers() []string {
	return []string{c.KafkaURL}
}
