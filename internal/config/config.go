package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port              int
	LogLevel          string
	Env               string
	StrictOrderStatus bool
	CORSOrigins       []string
	DB                DBConfig
	Redis             RedisConfig
	Kafka             KafkaConfig
	Outbox            OutboxConfig
	Storage           StorageConfig
	RateLimit         RateLimitConfig
}

// DBConfig holds the database configuration
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig holds the tracking cache configuration. An empty Addr disables the cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig holds the broker configuration. No brokers means events are only logged.
type KafkaConfig struct {
	Brokers       []string
	OrdersTopic   string
	ConsumerGroup string
}

type OutboxConfig struct {
	PollingInterval time.Duration
	BatchSize       int
	MaxAttempts     int

	// BreakerThreshold consecutive delivery failures pause the relay for BreakerReset
	BreakerThreshold int
	BreakerReset     time.Duration
}

// StorageConfig selects where uploaded images go
type StorageConfig struct {
	Driver        string // "local" or "s3"
	UploadDir     string
	PublicBaseURL string
	S3Bucket      string
	S3Region      string
	S3PublicURL   string
}

type RateLimitConfig struct {
	Burst     float64
	PerSecond float64
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("STRICT_ORDER_STATUS", false)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "storefront")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_ORDERS_TOPIC", "storefront.orders")
	v.SetDefault("KAFKA_CONSUMER_GROUP", "storefront-notifier")

	v.SetDefault("OUTBOX_POLL_INTERVAL", "5s")
	v.SetDefault("OUTBOX_BATCH_SIZE", 10)
	v.SetDefault("OUTBOX_MAX_ATTEMPTS", 5)
	v.SetDefault("OUTBOX_BREAKER_THRESHOLD", 5)
	v.SetDefault("OUTBOX_BREAKER_RESET", "30s")

	v.SetDefault("STORAGE_DRIVER", "local")
	v.SetDefault("UPLOAD_DIR", "./public/uploads")
	v.SetDefault("PUBLIC_BASE_URL", "")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_REGION", "")
	v.SetDefault("S3_PUBLIC_URL", "")

	v.SetDefault("RATE_LIMIT_BURST", 10)
	v.SetDefault("RATE_LIMIT_PER_SECOND", 0.5)
}

// Load reads the configuration from the environment (and an optional .env file)
func Load() (*Config, error) {
	// A missing .env is fine, the environment may already be populated.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	port, err := strconv.Atoi(v.GetString("PORT"))
	if err != nil {
		return nil, fmt.Errorf("invalid port: %w", err)
	}

	dbPort, err := strconv.Atoi(v.GetString("DB_PORT"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	pollInterval := v.GetDuration("OUTBOX_POLL_INTERVAL")
	if pollInterval <= 0 {
		return nil, fmt.Errorf("invalid OUTBOX_POLL_INTERVAL: %q", v.GetString("OUTBOX_POLL_INTERVAL"))
	}

	driver := strings.ToLower(v.GetString("STORAGE_DRIVER"))
	if driver != "local" && driver != "s3" {
		return nil, fmt.Errorf("invalid STORAGE_DRIVER: %q", driver)
	}
	if driver == "s3" && v.GetString("S3_BUCKET") == "" {
		return nil, fmt.Errorf("S3_BUCKET is required when STORAGE_DRIVER=s3")
	}

	return &Config{
		Port:              port,
		LogLevel:          v.GetString("LOG_LEVEL"),
		Env:               v.GetString("APP_ENV"),
		StrictOrderStatus: v.GetBool("STRICT_ORDER_STATUS"),
		CORSOrigins:       splitCSV(v.GetString("CORS_ALLOWED_ORIGINS")),
		DB: DBConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     dbPort,
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Kafka: KafkaConfig{
			Brokers:       splitCSV(v.GetString("KAFKA_BROKERS")),
			OrdersTopic:   v.GetString("KAFKA_ORDERS_TOPIC"),
			ConsumerGroup: v.GetString("KAFKA_CONSUMER_GROUP"),
		},
		Outbox: OutboxConfig{
			PollingInterval:  pollInterval,
			BatchSize:        v.GetInt("OUTBOX_BATCH_SIZE"),
			MaxAttempts:      v.GetInt("OUTBOX_MAX_ATTEMPTS"),
			BreakerThreshold: v.GetInt("OUTBOX_BREAKER_THRESHOLD"),
			BreakerReset:     v.GetDuration("OUTBOX_BREAKER_RESET"),
		},
		Storage: StorageConfig{
			Driver:        driver,
			UploadDir:     v.GetString("UPLOAD_DIR"),
			PublicBaseURL: strings.TrimSuffix(v.GetString("PUBLIC_BASE_URL"), "/"),
			S3Bucket:      v.GetString("S3_BUCKET"),
			S3Region:      v.GetString("S3_REGION"),
			S3PublicURL:   strings.TrimSuffix(v.GetString("S3_PUBLIC_URL"), "/"),
		},
		RateLimit: RateLimitConfig{
			Burst:     v.GetFloat64("RATE_LIMIT_BURST"),
			PerSecond: v.GetFloat64("RATE_LIMIT_PER_SECOND"),
		},
	}, nil
}

// IsDevelopment reports whether the service runs in the development environment
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// GetDBConnString returns the database connection string
func (c *Config) GetDBConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode)
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
