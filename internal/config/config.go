package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"vehicle-checkpoint-backend/internal/domain"
	"vehicle-checkpoint-backend/internal/storage"
)

// Config represents the application configuration.
// Values come from the YAML file, then from a .env file, then from the process environment.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	GRPC       GRPCConfig       `yaml:"grpc"`
	Database   DatabaseConfig   `yaml:"database"`
	Storage    storage.Config   `yaml:"storage"`
	Estimator  EstimatorConfig  `yaml:"estimator"`
	Settlement SettlementConfig `yaml:"settlement"`
	Session    SessionConfig    `yaml:"session"`
	JWT        JWTConfig        `yaml:"jwt"`
	SendGrid   SendGridConfig   `yaml:"sendgrid"`
	RabbitMQ   RabbitMQConfig   `yaml:"rabbitmq"`
	Tracing    TracingConfig    `yaml:"tracing"`
	Log        LogConfig        `yaml:"log"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	Host         string        `yaml:"host" envconfig:"SERVER_HOST"`
	Port         int           `yaml:"port" envconfig:"SERVER_PORT"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT"`

	// MaxUploadBytes bounds a dashboard image request body.
	MaxUploadBytes int64 `yaml:"max_upload_bytes" envconfig:"SERVER_MAX_UPLOAD_BYTES"`
}

// GRPCConfig contains the operations gRPC port (health, reflection).
type GRPCConfig struct {
	Enabled bool `yaml:"enabled" envconfig:"GRPC_ENABLED"`
	Port    int  `yaml:"port" envconfig:"GRPC_PORT"`
}

const (
	DriverPostgres = "postgres"
	DriverDynamoDB = "dynamodb"
)

// DatabaseConfig selects and configures the check record store.
type DatabaseConfig struct {
	Driver       string       `yaml:"driver" envconfig:"DB_DRIVER"`
	Host         string       `yaml:"host" envconfig:"DB_HOST"`
	Port         int          `yaml:"port" envconfig:"DB_PORT"`
	User         string       `yaml:"user" envconfig:"DB_USER"`
	Password     string       `yaml:"password" envconfig:"DB_PASSWORD"`
	Database     string       `yaml:"database" envconfig:"DB_NAME"`
	SSLMode      string       `yaml:"ssl_mode" envconfig:"DB_SSL_MODE"`
	MaxOpenConns int          `yaml:"max_open_conns" envconfig:"DB_MAX_OPEN_CONNS"`
	Dynamo       DynamoConfig `yaml:"dynamodb"`
}

type DynamoConfig struct {
	Region            string `yaml:"region" envconfig:"DYNAMODB_REGION"`
	Endpoint          string `yaml:"endpoint" envconfig:"DYNAMODB_ENDPOINT"`
	AccessKeyID       string `yaml:"access_key_id" envconfig:"DYNAMODB_ACCESS_KEY_ID"`
	SecretAccessKey   string `yaml:"secret_access_key" envconfig:"DYNAMODB_SECRET_ACCESS_KEY"`
	BookingsTable     string `yaml:"bookings_table" envconfig:"DYNAMODB_BOOKINGS_TABLE"`
	FuelPricingTable  string `yaml:"fuel_pricing_table" envconfig:"DYNAMODB_FUEL_PRICING_TABLE"`
	FinesTable        string `yaml:"fines_table" envconfig:"DYNAMODB_FINES_TABLE"`
	CheckRecordsTable string `yaml:"check_records_table" envconfig:"DYNAMODB_CHECK_RECORDS_TABLE"`
	RecordIDIndex     string `yaml:"record_id_index" envconfig:"DYNAMODB_RECORD_ID_INDEX"`
}

// EstimatorConfig selects the dashboard reader. Type is "vision" or "none".
type EstimatorConfig struct {
	Type            string        `yaml:"type" envconfig:"ESTIMATOR_TYPE"`
	CredentialsFile string        `yaml:"credentials_file" envconfig:"ESTIMATOR_CREDENTIALS_FILE"`
	Timeout         time.Duration `yaml:"timeout" envconfig:"ESTIMATOR_TIMEOUT"`
}

// SettlementConfig holds settlement settings that are not part of a booking.
// Money amounts are decimal strings.
type SettlementConfig struct {
	MaxPlausibleKm        int    `yaml:"max_plausible_km" envconfig:"SETTLEMENT_MAX_PLAUSIBLE_KM"`
	DefaultFuelPricePerL  string `yaml:"default_fuel_price_per_liter" envconfig:"SETTLEMENT_DEFAULT_FUEL_PRICE"`
	DefaultFuelMissingFee string `yaml:"default_fuel_missing_fee" envconfig:"SETTLEMENT_DEFAULT_FUEL_MISSING_FEE"`
	ReviewDigestPageSize  int    `yaml:"review_digest_page_size" envconfig:"SETTLEMENT_REVIEW_DIGEST_PAGE_SIZE"`

	defaultFuelPricing domain.FuelPricing
}

type SessionConfig struct {
	TTL           time.Duration `yaml:"ttl" envconfig:"SESSION_TTL"`
	LocateTimeout time.Duration `yaml:"locate_timeout" envconfig:"SESSION_LOCATE_TIMEOUT"`
}

// JWTConfig contains settings for validating operator access tokens
type JWTConfig struct {
	Secret            string `yaml:"secret" envconfig:"JWT_SECRET"`
	AccessTokenExpiry int    `yaml:"access_token_expiry_minutes" envconfig:"JWT_ACCESS_TOKEN_EXPIRY_MINUTES"`
}

// SendGridConfig enables receipt and review digest emails when APIKey is set.
type SendGridConfig struct {
	APIKey    string `yaml:"api_key" envconfig:"SENDGRID_API_KEY"`
	FromEmail string `yaml:"from_email" envconfig:"SENDGRID_FROM_EMAIL"`
	FromName  string `yaml:"from_name" envconfig:"SENDGRID_FROM_NAME"`
	OpsEmail  string `yaml:"ops_email" envconfig:"SENDGRID_OPS_EMAIL"`
}

// RabbitMQConfig enables event publishing when URL is set.
type RabbitMQConfig struct {
	URL      string `yaml:"url" envconfig:"RABBIT_URL"`
	Exchange string `yaml:"exchange" envconfig:"RABBIT_EXCHANGE"`
}

type TracingConfig struct {
	Enabled     bool    `yaml:"enabled" envconfig:"OTEL_ENABLED"`
	Endpoint    string  `yaml:"endpoint" envconfig:"OTEL_ENDPOINT"`
	ServiceName string  `yaml:"service_name" envconfig:"OTEL_SERVICE_NAME"`
	Environment string  `yaml:"environment" envconfig:"OTEL_ENVIRONMENT"`
	SampleRatio float64 `yaml:"sample_ratio" envconfig:"OTEL_SAMPLE_RATIO"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL"`   // "debug", "info", "warn", "error"
	Format string `yaml:"format" envconfig:"LOG_FORMAT"` // "json" or "text"
}

// SchedulerConfig contains cron schedule settings (with seconds field).
type SchedulerConfig struct {
	SweepExpiredSessions string `yaml:"sweep_expired_sessions" envconfig:"SCHEDULE_SWEEP_EXPIRED_SESSIONS"`
	ReportPendingReviews string `yaml:"report_pending_reviews" envconfig:"SCHEDULE_REPORT_PENDING_REVIEWS"`
}

// Load reads configuration from a YAML file, then applies .env and environment overrides.
// A missing .env file is not an error.
func Load(configPath, envFile string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration and fills in defaults
func (c *Config) Validate() error {
	// Server
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 60 * time.Second
	}
	if c.Server.MaxUploadBytes == 0 {
		c.Server.MaxUploadBytes = 10 << 20
	}
	if c.GRPC.Enabled && (c.GRPC.Port <= 0 || c.GRPC.Port > 65535) {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPC.Port)
	}

	// Database
	if c.Database.Driver == "" {
		c.Database.Driver = DriverPostgres
	}
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	case DriverDynamoDB:
		if c.Database.Dynamo.Region == "" {
			return fmt.Errorf("dynamodb region is required")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	// Storage
	if c.Storage.Type == "" {
		c.Storage.Type = "local"
	}
	if c.Storage.Type != "local" {
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}
	if c.Storage.Dir == "" {
		return fmt.Errorf("storage directory is required")
	}
	if c.Storage.MaxImageBytes == 0 {
		c.Storage.MaxImageBytes = c.Server.MaxUploadBytes
	}

	// Estimator
	if c.Estimator.Type == "" {
		c.Estimator.Type = "none"
	}
	if c.Estimator.Type != "none" && c.Estimator.Type != "vision" {
		return fmt.Errorf("unsupported estimator type: %s", c.Estimator.Type)
	}
	if c.Estimator.Timeout == 0 {
		c.Estimator.Timeout = 8 * time.Second
	}

	// Settlement
	if c.Settlement.MaxPlausibleKm < 0 {
		return fmt.Errorf("max plausible km must not be negative")
	}
	if c.Settlement.MaxPlausibleKm == 0 {
		c.Settlement.MaxPlausibleKm = 5000
	}
	if c.Settlement.ReviewDigestPageSize <= 0 {
		c.Settlement.ReviewDigestPageSize = 100
	}
	price, err := parseMoney(c.Settlement.DefaultFuelPricePerL, "default fuel price")
	if err != nil {
		return err
	}
	fee, err := parseMoney(c.Settlement.DefaultFuelMissingFee, "default fuel missing fee")
	if err != nil {
		return err
	}
	c.Settlement.defaultFuelPricing = domain.FuelPricing{PricePerLiter: price, FixedMissingFee: fee}

	// Session
	if c.Session.TTL == 0 {
		c.Session.TTL = 30 * time.Minute
	}
	if c.Session.LocateTimeout == 0 {
		c.Session.LocateTimeout = 10 * time.Second
	}

	// JWT
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.AccessTokenExpiry == 0 {
		c.JWT.AccessTokenExpiry = 60
	}

	// SendGrid
	if c.SendGrid.APIKey != "" && c.SendGrid.FromEmail == "" {
		return fmt.Errorf("sendgrid from_email is required when an API key is set")
	}
	if c.SendGrid.FromName == "" {
		c.SendGrid.FromName = "Vehicle Checkpoint"
	}

	// RabbitMQ
	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "checkpoint.exchange"
	}

	// Tracing
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "vehicle-checkpoint"
	}
	if c.Tracing.SampleRatio == 0 {
		c.Tracing.SampleRatio = 1
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return fmt.Errorf("tracing endpoint is required when tracing is enabled")
	}

	// Log
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	// Scheduler defaults
	if c.Scheduler.SweepExpiredSessions == "" {
		c.Scheduler.SweepExpiredSessions = "0 */5 * * * *" // Every 5 minutes
	}
	if c.Scheduler.ReportPendingReviews == "" {
		c.Scheduler.ReportPendingReviews = "0 0 7 * * *" // Daily at 7 AM UTC
	}

	return nil
}

func parseMoney(s, name string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s must not be negative", name)
	}
	return d, nil
}

// DefaultFuelPricing is the fuel pricing for lessors without their own. Valid after Validate.
func (s SettlementConfig) DefaultFuelPricing() domain.FuelPricing {
	return s.defaultFuelPricing
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP listen address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetGRPCAddress returns the ops gRPC listen address
func (c *Config) GetGRPCAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.GRPC.Port)
}
