package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"signal-market/internal/fixedpoint"
)

// Config holds all application configuration
type Config struct {
	Environment string         `toml:"environment"`
	LogLevel    string         `toml:"log_level"`
	Database    DatabaseConfig `toml:"database"`
	Server      ServerConfig   `toml:"server"`
	App         AppConfig      `toml:"app"`
	Redis       RedisConfig    `toml:"redis"`
	S3          S3Config       `toml:"s3"`
	Jobs        JobsConfig     `toml:"jobs"`
	Faucet      FaucetConfig   `toml:"faucet"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver     string `toml:"driver"` // postgres or sqlite
	Host       string `toml:"host"`
	Port       string `toml:"port"`
	User       string `toml:"user"`
	Password   string `toml:"password"`
	DBName     string `toml:"name"`
	SSLMode    string `toml:"ssl_mode"`
	SQLitePath string `toml:"sqlite_path"`
	MaxConns   int    `toml:"max_conns"`
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port        string `toml:"port"`
	FrontendURL string `toml:"frontend_url"`
}

// AppConfig holds application-specific settings
type AppConfig struct {
	OwnerAddress    string `toml:"owner_address"`
	JWTSecret       string `toml:"jwt_secret"`
	AuthMessage     string `toml:"auth_message"`
	NonceTTLSeconds int    `toml:"nonce_ttl_seconds"` // lifetime of a login challenge
}

// RedisConfig enables the distributed writer lock when Addr is set.
type RedisConfig struct {
	Addr           string `toml:"addr"`
	Password       string `toml:"password"`
	DB             int    `toml:"db"`
	TLSEnabled     bool   `toml:"tls"`
	LockTTLSeconds int    `toml:"lock_ttl_seconds"`
}

// S3Config enables settlement report archiving when Bucket is set.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// JobsConfig holds background job intervals
type JobsConfig struct {
	SweepIntervalSec   int `toml:"sweep_interval_sec"`
	ArchiveIntervalSec int `toml:"archive_interval_sec"`
}

// FaucetConfig gates the test-funds faucet.
type FaucetConfig struct {
	Enabled   bool   `toml:"enabled"`
	MaxAmount string `toml:"max_amount"` // decimal token units, e.g. "1000"
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Environment: "development",
		LogLevel:    "info",
		Database: DatabaseConfig{
			Driver:     "postgres",
			Host:       "localhost",
			Port:       "5432",
			User:       "postgres",
			DBName:     "signal_market",
			SSLMode:    "disable",
			SQLitePath: "signal_market.db",
			MaxConns:   10,
		},
		Server: ServerConfig{
			Port: "8080",
		},
		App: AppConfig{
			AuthMessage:     "Sign this message to authenticate with signal-market",
			NonceTTLSeconds: 300,
		},
		Redis: RedisConfig{
			LockTTLSeconds: 10,
		},
		S3: S3Config{
			Region: "us-east-1",
		},
		Jobs: JobsConfig{
			SweepIntervalSec:   30,
			ArchiveIntervalSec: 300,
		},
		Faucet: FaucetConfig{
			MaxAmount: "1000",
		},
	}
}

// Load loads configuration from an optional TOML file (CONFIG_FILE), a .env
// file and environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	cfg, err := LoadRaw()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadRaw is Load without validation, for tools such as the migration CLI
// that only need the database settings.
func LoadRaw() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	cfg.Database.Driver = getEnv("DB_DRIVER", cfg.Database.Driver)
	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnv("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.DBName = getEnv("DB_NAME", cfg.Database.DBName)
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", cfg.Database.SSLMode)
	cfg.Database.SQLitePath = getEnv("SQLITE_PATH", cfg.Database.SQLitePath)
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", cfg.Database.MaxConns)

	cfg.Server.Port = getEnv("SERVER_PORT", cfg.Server.Port)
	cfg.Server.FrontendURL = getEnv("FRONTEND_URL", cfg.Server.FrontendURL)

	cfg.App.OwnerAddress = getEnv("OWNER_ADDRESS", cfg.App.OwnerAddress)
	cfg.App.AuthMessage = getEnv("AUTH_MESSAGE", cfg.App.AuthMessage)
	cfg.App.NonceTTLSeconds = getEnvInt("AUTH_NONCE_TTL_SECONDS", cfg.App.NonceTTLSeconds)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.DB = getEnvInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.TLSEnabled = getEnvBool("REDIS_TLS", cfg.Redis.TLSEnabled)
	cfg.Redis.LockTTLSeconds = getEnvInt("LOCK_TTL_SECONDS", cfg.Redis.LockTTLSeconds)

	cfg.S3.Endpoint = getEnv("S3_ENDPOINT", cfg.S3.Endpoint)
	cfg.S3.Region = getEnv("S3_REGION", cfg.S3.Region)
	cfg.S3.Bucket = getEnv("S3_BUCKET", cfg.S3.Bucket)
	cfg.S3.AccessKey = getEnv("S3_ACCESS_KEY", cfg.S3.AccessKey)
	cfg.S3.ForcePathStyle = getEnvBool("S3_FORCE_PATH_STYLE", cfg.S3.ForcePathStyle)

	cfg.Jobs.SweepIntervalSec = getEnvInt("SWEEP_INTERVAL_SEC", cfg.Jobs.SweepIntervalSec)
	cfg.Jobs.ArchiveIntervalSec = getEnvInt("ARCHIVE_INTERVAL_SEC", cfg.Jobs.ArchiveIntervalSec)

	cfg.Faucet.Enabled = getEnvBool("FAUCET_ENABLED", cfg.Faucet.Enabled)
	cfg.Faucet.MaxAmount = getEnv("FAUCET_MAX_AMOUNT", cfg.Faucet.MaxAmount)

	// Secrets may come from NAME or NAME_FILE.
	secrets := []struct {
		key string
		dst *string
	}{
		{"JWT_SECRET", &cfg.App.JWTSecret},
		{"DB_PASSWORD", &cfg.Database.Password},
		{"REDIS_PASSWORD", &cfg.Redis.Password},
		{"S3_SECRET_KEY", &cfg.S3.SecretKey},
	}
	for _, s := range secrets {
		value, err := getSecret(s.key, *s.dst)
		if err != nil {
			return err
		}
		*s.dst = value
	}
	return nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.App.OwnerAddress == "" {
		return fmt.Errorf("OWNER_ADDRESS is required")
	}
	if c.App.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Jobs.SweepIntervalSec <= 0 || c.Jobs.ArchiveIntervalSec <= 0 {
		return fmt.Errorf("job intervals must be positive")
	}
	if c.App.NonceTTLSeconds <= 0 {
		return fmt.Errorf("AUTH_NONCE_TTL_SECONDS must be positive")
	}
	if _, err := c.FaucetMax(); err != nil {
		return fmt.Errorf("FAUCET_MAX_AMOUNT: %w", err)
	}
	return nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

// FaucetMax returns the per-request faucet cap.
func (c *Config) FaucetMax() (fixedpoint.Amount, error) {
	return fixedpoint.Parse(c.Faucet.MaxAmount)
}

// NonceTTL returns how long a login challenge stays valid.
func (c *Config) NonceTTL() time.Duration {
	return time.Duration(c.App.NonceTTLSeconds) * time.Second
}

// LockTTL returns the distributed lock expiry.
func (c *Config) LockTTL() time.Duration {
	return time.Duration(c.Redis.LockTTLSeconds) * time.Second
}

// SweepInterval returns how often expired markets are closed.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Jobs.SweepIntervalSec) * time.Second
}

// ArchiveInterval returns how often settlement reports are archived.
func (c *Config) ArchiveInterval() time.Duration {
	return time.Duration(c.Jobs.ArchiveIntervalSec) * time.Second
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
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

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

// getSecret reads key from the file named by key_FILE (Docker secrets) or
// from key itself.
func getSecret(key, defaultValue string) (string, error) {
	if path := os.Getenv(key + "_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read secret file %s: %w", path, err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return getEnv(key, defaultValue), nil
}
