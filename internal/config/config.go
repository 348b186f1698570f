package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Polygon  PolygonConfig
	Refresh  RefreshConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds the market-data cache configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Brokers        []string
	SignalsTopic   string
	PositionsTopic string
	GroupID        string
}

// PolygonConfig holds market-data provider configuration
type PolygonConfig struct {
	BaseURL   string
	APIKey    string
	RateLimit int // requests per second
}

// RefreshConfig holds refresh-cycle configuration
type RefreshConfig struct {
	Interval time.Duration
	Workers  int
	UserID   string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "portfolio"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:        strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			SignalsTopic:   getEnv("KAFKA_SIGNALS_TOPIC", "portfolio-signals"),
			PositionsTopic: getEnv("KAFKA_POSITIONS_TOPIC", "portfolio-positions"),
			GroupID:        getEnv("KAFKA_GROUP_ID", "portfolio-commander"),
		},
		Polygon: PolygonConfig{
			BaseURL:   getEnv("POLYGON_BASE_URL", "https://api.polygon.io"),
			APIKey:    getEnv("POLYGON_API_KEY", ""),
			RateLimit: getEnvInt("POLYGON_RATE_LIMIT", 5),
		},
		Refresh: RefreshConfig{
			Interval: getEnvDuration("REFRESH_INTERVAL", 5*time.Minute),
			Workers:  getEnvInt("REFRESH_WORKERS", 4),
			UserID:   getEnv("PORTFOLIO_USER_ID", "default"),
		},
	}
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
