package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all configuration for our application
type Config struct {
	// Server configuration
	Port           string `validate:"required,numeric"`
	GinMode        string `validate:"oneof=debug release test"`
	APIVersion     string `validate:"required"`
	APIPrefix      string `validate:"required,startswith=/"`
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// JWT configuration
	JWT JWTConfig

	// Rate limiting
	RateLimit RateLimitConfig

	// Booking windows and sweeps
	Booking BookingConfig

	// Payment provider
	Momo MomoConfig

	// Notification transport
	Kafka KafkaConfig

	// Logging
	LogLevel string `validate:"oneof=debug info warn warning error"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `validate:"required"`
	Port     string `validate:"required,numeric"`
	Name     string `validate:"required"`
	User     string `validate:"required"`
	Password string
	SSLMode  string `validate:"oneof=disable require verify-ca verify-full"`
	DSN      string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string `validate:"required"`
	Port     string `validate:"required,numeric"`
	Password string
	DB       int `validate:"gte=0,lte=15"`
	Addr     string

	// TTL values for different operations
	SeatHoldTTL time.Duration `validate:"gt=0"`
	SeatMapTTL  time.Duration `validate:"gt=0"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string `validate:"required,min=16"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled                 bool          `json:"enabled"`
	WindowDuration          time.Duration `json:"window_duration" validate:"gt=0"`
	DefaultRequests         int           `json:"default_requests" validate:"gt=0"`
	PublicRequests          int           `json:"public_requests" validate:"gt=0"`
	BookingRequests         int           `json:"booking_requests" validate:"gt=0"`
	BookingCriticalRequests int           `json:"booking_critical_requests" validate:"gt=0"`
	PaymentCallbackRequests int           `json:"payment_callback_requests" validate:"gt=0"`
	CheckInRequests         int           `json:"check_in_requests" validate:"gt=0"`
	AdminRequests           int           `json:"admin_requests" validate:"gt=0"`
	UserRequests            int           `json:"user_requests" validate:"gt=0"`
	HealthRequests          int           `json:"health_requests" validate:"gt=0"`
	WhitelistedIPs          []string      `json:"whitelisted_ips" validate:"dive,ip"`
}

// BookingConfig holds order windows, ticket grace period and sweep intervals
type BookingConfig struct {
	TicketOrderWindow   time.Duration `validate:"gt=0"`
	ProductOrderWindow  time.Duration `validate:"gt=0"`
	TicketGracePeriod   time.Duration `validate:"gte=0"`
	OrderSweepInterval  time.Duration `validate:"gt=0"`
	TicketSweepInterval time.Duration `validate:"gt=0"`
	SweepBatchSize      int           `validate:"gt=0"`
}

// MomoConfig holds payment provider credentials and endpoints
type MomoConfig struct {
	Endpoint    string        `validate:"required,url"`
	PartnerCode string        `validate:"required"`
	AccessKey   string        `validate:"required"`
	SecretKey   string        `validate:"required"`
	RedirectURL string        `validate:"required,url"`
	IpnURL      string        `validate:"required,url"`
	RequestType string        `validate:"required"`
	Lang        string        `validate:"oneof=vi en"`
	Timeout     time.Duration `validate:"gt=0"`
}

// KafkaConfig holds notification producer configuration
type KafkaConfig struct {
	Enabled bool
	Brokers []string `validate:"required_if=Enabled true,dive,hostname_port"`
	Topic   string   `validate:"required_if=Enabled true"`
}

// Load loads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		// Server configuration
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		APIVersion:     getEnv("API_VERSION", "v1"),
		APIPrefix:      getEnv("API_PREFIX", "/api"),
		ReadTimeout:    getDurationEnv("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:   getDurationEnv("WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:    getDurationEnv("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes: getIntEnv("MAX_HEADER_BYTES", 1<<20), // 1 MB

		// Database configuration
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "cineticket_db"),
			User:     getEnv("DB_USER", "cineticket_user"),
			Password: getEnv("DB_PASSWORD", "cineticket_password"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},

		// Redis configuration
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),

			SeatHoldTTL: getDurationEnv("REDIS_SEAT_HOLD_TTL", 10*time.Minute),
			SeatMapTTL:  getDurationEnv("REDIS_SEAT_MAP_TTL", 30*time.Second),
		},

		// JWT configuration
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "change-me-in-production-please"),
		},

		// Rate limiting
		RateLimit: RateLimitConfig{
			Enabled:                 getBoolEnv("RATE_LIMIT_ENABLED", true),
			WindowDuration:          getDurationEnv("RATE_LIMIT_WINDOW_DURATION", 60*time.Second),
			DefaultRequests:         getIntEnv("RATE_LIMIT_DEFAULT_REQUESTS", 60),
			PublicRequests:          getIntEnv("RATE_LIMIT_PUBLIC_REQUESTS", 100),
			BookingRequests:         getIntEnv("RATE_LIMIT_BOOKING_REQUESTS", 30),
			BookingCriticalRequests: getIntEnv("RATE_LIMIT_BOOKING_CRITICAL_REQUESTS", 10),
			PaymentCallbackRequests: getIntEnv("RATE_LIMIT_PAYMENT_CALLBACK_REQUESTS", 300),
			CheckInRequests:         getIntEnv("RATE_LIMIT_CHECK_IN_REQUESTS", 120),
			AdminRequests:           getIntEnv("RATE_LIMIT_ADMIN_REQUESTS", 200),
			UserRequests:            getIntEnv("RATE_LIMIT_USER_REQUESTS", 60),
			HealthRequests:          getIntEnv("RATE_LIMIT_HEALTH_REQUESTS", 600),
			WhitelistedIPs:          getStringSliceEnv("RATE_LIMIT_WHITELISTED_IPS", []string{}),
		},

		// Booking windows
		Booking: BookingConfig{
			TicketOrderWindow:   getDurationEnv("ORDER_TICKET_WINDOW", 15*time.Minute),
			ProductOrderWindow:  getDurationEnv("ORDER_PRODUCT_WINDOW", 30*time.Minute),
			TicketGracePeriod:   getDurationEnv("TICKET_GRACE_PERIOD", 30*time.Minute),
			OrderSweepInterval:  getDurationEnv("ORDER_SWEEP_INTERVAL", 1*time.Minute),
			TicketSweepInterval: getDurationEnv("TICKET_SWEEP_INTERVAL", 5*time.Minute),
			SweepBatchSize:      getIntEnv("SWEEP_BATCH_SIZE", 100),
		},

		// MoMo sandbox defaults
		Momo: MomoConfig{
			Endpoint:    getEnv("MOMO_ENDPOINT", "https://test-payment.momo.vn"),
			PartnerCode: getEnv("MOMO_PARTNER_CODE", "MOMO"),
			AccessKey:   getEnv("MOMO_ACCESS_KEY", "F8BBA842ECF85"),
			SecretKey:   getEnv("MOMO_SECRET_KEY", "K951B6PE1waDMi640xX08PD3vg6EkVlz"),
			RedirectURL: getEnv("MOMO_REDIRECT_URL", "http://localhost:8080/api/v1/payments/momo/return"),
			IpnURL:      getEnv("MOMO_IPN_URL", "http://localhost:8080/api/v1/payments/momo/ipn"),
			RequestType: getEnv("MOMO_REQUEST_TYPE", "captureWallet"),
			Lang:        getEnv("MOMO_LANG", "vi"),
			Timeout:     getDurationEnv("MOMO_TIMEOUT", 30*time.Second),
		},

		// Kafka
		Kafka: KafkaConfig{
			Enabled: getBoolEnv("KAFKA_ENABLED", false),
			Brokers: getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:   getEnv("KAFKA_NOTIFICATION_TOPIC", "cineticket-notifications"),
		},

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "debug"),
	}

	// Build composite values
	cfg.Database.DSN = buildDatabaseDSN(cfg.Database)
	cfg.Redis.Addr = cfg.Redis.Host + ":" + cfg.Redis.Port

	return cfg
}

// Validate checks the loaded configuration against its struct tags
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

var validate = validator.New()

// buildDatabaseDSN builds the database connection string
func buildDatabaseDSN(db DatabaseConfig) string {
	return "host=" + db.Host +
		" port=" + db.Port +
		" user=" + db.User +
		" password=" + db.Password +
		" dbname=" + db.Name +
		" sslmode=" + db.SSLMode
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

// getDurationEnv gets a duration environment variable with a fallback value
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return fallback
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

// getStringSliceEnv gets a comma-separated string environment variable as a slice
func getStringSliceEnv(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		var result []string
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GinMode == "debug"
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return ":" + c.Port
}

// GetAPIBasePath returns the API base path
func (c *Config) GetAPIBasePath() string {
	return c.APIPrefix + "/" + c.APIVersion
}
