package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Log      LogConfig
	Metrics  MetricsConfig
	Mail     MailConfig
	AI       AIConfig
	Storage  StorageConfig
	Scan     ScanConfig
	Portal   PortalConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        string
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	SigningKey      string
	ExpirationHours int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// MetricsConfig holds metrics-related configuration
type MetricsConfig struct {
	Prefix string
}

// MailConfig holds the outbound mail provider configuration
type MailConfig struct {
	APIURL      string
	APIKey      string
	FromAddress string
	Timeout     time.Duration
}

// AIConfig holds the model provider configuration
type AIConfig struct {
	APIURL    string
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// StorageConfig holds object-storage signing configuration
type StorageConfig struct {
	BaseURL    string
	SigningKey string
	UploadTTL  time.Duration
}

// ScanConfig holds website scan configuration
type ScanConfig struct {
	FetchTimeout time.Duration
	MaxBodyBytes int64
}

// PortalConfig holds the externally-facing vendor portal configuration
type PortalConfig struct {
	Origin         string
	DeadlineDays   int
	HighRiskSource string
}

// Load loads the application configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8090"),
			Env:  getEnv("APP_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Name:            getEnv("DB_NAME", "compliance_db"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 1*time.Hour),
			LogLevel:        getEnv("DB_LOG_LEVEL", "info"),
		},
		JWT: JWTConfig{
			SigningKey:      getEnv("JWT_SIGNING_KEY", "complianceservicesecretkey"),
			ExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Metrics: MetricsConfig{
			Prefix: getEnv("METRICS_PREFIX", "compliance"),
		},
		Mail: MailConfig{
			APIURL:      getEnv("MAIL_API_URL", "https://api.resend.com/emails"),
			APIKey:      getEnv("MAIL_API_KEY", ""),
			FromAddress: getEnv("MAIL_FROM_ADDRESS", "compliance@example.com"),
			Timeout:     getEnvAsDuration("MAIL_TIMEOUT", 15*time.Second),
		},
		AI: AIConfig{
			APIURL:    getEnv("AI_API_URL", "https://api.anthropic.com/v1/messages"),
			APIKey:    getEnv("AI_API_KEY", ""),
			Model:     getEnv("AI_MODEL", "claude-3-5-sonnet-20241022"),
			MaxTokens: getEnvAsInt("AI_MAX_TOKENS", 4096),
			Timeout:   getEnvAsDuration("AI_TIMEOUT", 5*time.Minute),
		},
		Storage: StorageConfig{
			BaseURL:    getEnv("STORAGE_BASE_URL", "http://localhost:8090/storage"),
			SigningKey: getEnv("STORAGE_SIGNING_KEY", "storagesigningsecret"),
			UploadTTL:  getEnvAsDuration("STORAGE_UPLOAD_TTL", 10*time.Minute),
		},
		Scan: ScanConfig{
			FetchTimeout: getEnvAsDuration("SCAN_FETCH_TIMEOUT", 15*time.Second),
			MaxBodyBytes: int64(getEnvAsInt("SCAN_MAX_BODY_BYTES", 2*1024*1024)),
		},
		Portal: PortalConfig{
			Origin:         getEnv("PORTAL_ORIGIN", "http://localhost:5173"),
			DeadlineDays:   getEnvAsInt("PORTAL_DEADLINE_DAYS", 7),
			HighRiskSource: getEnv("HIGH_RISK_COUNTRIES", ""),
		},
	}, nil
}

// Helper functions to get environment variables with defaults
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
