package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	QuickBooks QuickBooksConfig `mapstructure:"quickbooks"`
	Logger     LoggerConfig     `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// QuickBooksConfig holds QuickBooks Online API and OAuth configuration
type QuickBooksConfig struct {
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	RedirectURI  string        `mapstructure:"redirect_uri"`
	BaseURL      string        `mapstructure:"base_url"`
	APITimeout   time.Duration `mapstructure:"api_timeout"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// Pick up a local .env file when present
	_ = gotenv.Load()

	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Override with environment variables
	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	viper.SetDefault("database.path", "data/booksync.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("database.migrations_dir", "migrations")

	// QuickBooks defaults (sandbox)
	viper.SetDefault("quickbooks.base_url", "https://sandbox-quickbooks.api.intuit.com")
	viper.SetDefault("quickbooks.redirect_uri", "http://localhost:8080/auth/callback")
	viper.SetDefault("quickbooks.api_timeout", 30*time.Second)

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	// Sensitive credentials from environment
	viper.BindEnv("quickbooks.client_id", "QUICKBOOKS_CLIENT_ID")
	viper.BindEnv("quickbooks.client_secret", "QUICKBOOKS_CLIENT_SECRET")
	viper.BindEnv("quickbooks.redirect_uri", "QUICKBOOKS_REDIRECT_URI")
	viper.BindEnv("quickbooks.base_url", "QUICKBOOKS_BASE_URL")
}

// Validate validates the configuration. Missing OAuth credentials are the
// only fatal startup condition.
func (c *Config) Validate() error {
	if c.QuickBooks.ClientID == "" {
		return fmt.Errorf("quickbooks.client_id is required")
	}
	if c.QuickBooks.ClientSecret == "" {
		return fmt.Errorf("quickbooks.client_secret is required")
	}
	if c.QuickBooks.BaseURL == "" {
		return fmt.Errorf("quickbooks.base_url is required")
	}
	return nil
}
