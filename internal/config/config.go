package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds the full application configuration.
type Config struct {
	OpsPort  int
	LogLevel string
	Env      string

	// Optional path to a JSON file with the externally-owned user list.
	UsersFile string

	Ledger LedgerConfig
	DB     DBConfig
	Kafka  KafkaConfig
	Relay  RelayConfig
}

// LedgerConfig holds the settings consumed by the order ledger. Every value
// has a hardcoded fallback: a missing setting must never fail order creation.
type LedgerConfig struct {
	OrderPrefix   string
	DefaultStatus string

	// Driver fee rule: orders destined for the home city earn the lower
	// in-town fee, everything else earns the default fee.
	HomeCity          string
	HomeCityDriverFee decimal.Decimal
	DefaultDriverFee  decimal.Decimal
}

// DBConfig holds the snapshot store configuration
type DBConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// KafkaConfig holds the event publication configuration
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

// RelayConfig holds the event relay tuning knobs
type RelayConfig struct {
	PollingInterval time.Duration
	BatchSize       int
	MaxAttempts     int
}

// getEnv retrieves the value of an environment variable or returns a default value if not set.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value, exists := os.LookupEnv(key)

	if !exists {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)

	if err != nil {
		return defaultValue
	}

	return parsed
}

// getEnvDecimal falls back to the default on missing or unparseable values.
func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	value, exists := os.LookupEnv(key)

	if !exists {
		return defaultValue
	}

	parsed, err := decimal.NewFromString(value)

	if err != nil {
		return defaultValue
	}

	return parsed
}

// Load reads the configuration from environment variables and returns a Config struct.
func Load() (*Config, error) {
	opsPort, err := strconv.Atoi(getEnv("OPS_PORT", "8090"))

	if err != nil {
		return nil, fmt.Errorf("invalid OPS_PORT: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))

	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	pollingInterval, err := time.ParseDuration(getEnv("RELAY_POLL_INTERVAL", "5s"))

	if err != nil {
		return nil, fmt.Errorf("invalid RELAY_POLL_INTERVAL: %w", err)
	}

	batchSize, err := strconv.Atoi(getEnv("RELAY_BATCH_SIZE", "50"))

	if err != nil {
		return nil, fmt.Errorf("invalid RELAY_BATCH_SIZE: %w", err)
	}

	maxAttempts, err := strconv.Atoi(getEnv("RELAY_MAX_ATTEMPTS", "3"))

	if err != nil {
		return nil, fmt.Errorf("invalid RELAY_MAX_ATTEMPTS: %w", err)
	}

	return &Config{
		OpsPort:   opsPort,
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		Env:       getEnv("APP_ENV", "development"),
		UsersFile: getEnv("USERS_FILE", ""),
		Ledger: LedgerConfig{
			OrderPrefix:       getEnv("ORDER_PREFIX", "ORD"),
			DefaultStatus:     getEnv("DEFAULT_ORDER_STATUS", "pending"),
			HomeCity:          getEnv("HOME_CITY", ""),
			HomeCityDriverFee: getEnvDecimal("HOME_CITY_DRIVER_FEE", decimal.NewFromInt(2)),
			DefaultDriverFee:  getEnvDecimal("DEFAULT_DRIVER_FEE", decimal.NewFromInt(3)),
		},
		DB: DBConfig{
			Enabled:  getEnvBool("DB_ENABLED", false),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "courierledger"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvBool("KAFKA_ENABLED", false),
			Brokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			Topic:   getEnv("KAFKA_TOPIC", "ledger-events"),
		},
		Relay: RelayConfig{
			PollingInterval: pollingInterval,
			BatchSize:       batchSize,
			MaxAttempts:     maxAttempts,
		},
	}, nil
}

// GetDBConnString returns the database connection string
func (c *Config) GetDBConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode)
}
