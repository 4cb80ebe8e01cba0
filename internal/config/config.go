package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/kugelpos/kugel-backend/internal/domain"
)

// Config holds all configuration for the application, read once at
// startup by each cmd/*/main.go entrypoint. Every recognized environment
// variable from spec §6 has a field here.
type Config struct {
	// Database
	DatabaseURL  string
	DBNamePrefix string

	// Auth
	SecretKey           string
	JWTAlgorithm        string
	TokenExpireMinutes  int

	// Server
	Port        string
	CORSOrigins []string
	Env         string

	// Master-data cache (C3)
	UseItemCache       bool
	ItemCacheTTLSeconds int

	// Master-data collaborator (C3's read-through fallback)
	MasterdataBaseURL  string
	MasterdataTransport string // "http" (default) or "grpc"

	// gRPC
	GRPCTarget  string
	GRPCTimeout time.Duration

	// Discount/tax rounding
	RoundMethodForDiscount domain.RoundMethod

	// Event pipeline
	RedisAddr           string
	RepublishInterval   time.Duration
	RepublishWindowHours int

	// TTL-index-equivalent delete sweep (expired snapshots, aged delivery status)
	ReaperInterval           time.Duration
	DeliveryStatusRetention  time.Duration

	// Alerting
	SlackWebhookURL    string
	AlertCooldownSeconds int
	PubsubNotifyAPIKey string

	// S3 / item images
	S3 S3Config

	// Debug
	Debug     bool
	DebugPort string
}

// S3Config holds object-storage configuration for item images.
type S3Config struct {
	Region          string
	Endpoint        string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:  getEnv("MONGODB_URI", getEnv("DATABASE_URL", "")),
		DBNamePrefix: getEnv("DB_NAME_PREFIX", "kugel"),

		SecretKey:          getEnv("SECRET_KEY", ""),
		JWTAlgorithm:       getEnv("ALGORITHM", "HS256"),
		TokenExpireMinutes: getEnvInt("TOKEN_EXPIRE_MINUTES", 60),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		Env:         getEnv("ENV", "development"),

		UseItemCache:        getEnv("USE_ITEM_CACHE", "true") == "true",
		ItemCacheTTLSeconds: getEnvInt("ITEM_CACHE_TTL_SECONDS", 300),

		MasterdataBaseURL:   getEnv("MASTERDATA_BASE_URL", "http://localhost:8001"),
		MasterdataTransport: getEnv("MASTERDATA_TRANSPORT", "http"),

		GRPCTarget:  getEnv("GRPC_TARGET", "localhost:9090"),
		GRPCTimeout: time.Duration(getEnvInt("GRPC_TIMEOUT", 5)) * time.Second,

		RoundMethodForDiscount: domain.RoundMethod(getEnv("ROUND_METHOD_FOR_DISCOUNT", string(domain.RoundHalfUp))),

		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RepublishInterval:    time.Duration(getEnvInt("REPUBLISH_INTERVAL_MINUTES", 5)) * time.Minute,
		RepublishWindowHours: getEnvInt("REPUBLISH_WINDOW_HOURS", 24),

		ReaperInterval:          time.Duration(getEnvInt("REAPER_INTERVAL_MINUTES", 60)) * time.Minute,
		DeliveryStatusRetention: time.Duration(getEnvInt("DELIVERY_STATUS_RETENTION_HOURS", 168)) * time.Hour,

		SlackWebhookURL:      getEnv("SLACK_WEBHOOK_URL", ""),
		AlertCooldownSeconds: getEnvInt("ALERT_COOLDOWN_SECONDS", 300),
		PubsubNotifyAPIKey:   getEnv("PUBSUB_NOTIFY_API_KEY", ""),

		S3: S3Config{
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			Bucket:          getEnv("S3_BUCKET", "kugel-item-images"),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		},

		Debug:     getEnv("DEBUG", "false") == "true",
		DebugPort: getEnv("DEBUG_PORT", "5678"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("MONGODB_URI (storage DSN) is required")
	}
	if c.SecretKey == "" {
		return fmt.Errorf("SECRET_KEY is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
