package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Environment names
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Booking   BookingConfig
	Notify    NotifyConfig
	SMTP      SMTPConfig
	SMS       SMSConfig
	Promotion PromotionConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DatabaseConfig holds the embedded database configuration
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	SecretKey     string        `mapstructure:"secret_key"`
	CronAPIToken  string        `mapstructure:"cron_api_token"`
	SessionExpiry time.Duration `mapstructure:"session_expiry"`
}

// BookingConfig holds the edit-window parameters.
// DeadlineHours of zero means self-edits have no deadline.
type BookingConfig struct {
	DeadlineHours int `mapstructure:"deadline_hours"`
	HorizonDays   int `mapstructure:"horizon_days"`
}

// NotifyConfig holds the deadline-warning scheduler parameters
type NotifyConfig struct {
	WarnHours    int           `mapstructure:"warn_hours"`
	ScanInterval time.Duration `mapstructure:"scan_interval"`
	SendTimeout  time.Duration `mapstructure:"send_timeout"`
}

// SMTPConfig holds the optional email channel configuration
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// Configured reports whether the email channel is usable
func (c *SMTPConfig) Configured() bool {
	return c.Host != "" && c.From != ""
}

// SMSConfig holds the optional SMS channel configuration
type SMSConfig struct {
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	From       string `mapstructure:"from"`
	Endpoint   string `mapstructure:"endpoint"`
}

// Configured reports whether the SMS channel is usable
func (c *SMSConfig) Configured() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.From != ""
}

// PromotionConfig maps the non-curricular years at promotion time.
// Foundation course (year 7) and complementary course (year 8) do not
// advance like curricular years 1-6.
type PromotionConfig struct {
	FoundationTo    int `mapstructure:"foundation_to"`
	ComplementaryTo int `mapstructure:"complementary_to"`
}

// Load loads configuration from environment and config files.
// This function applies development defaults and is suitable for local use.
// For production, prefer LoadWithValidation which enforces required values.
func Load(serviceName string) (*Config, error) {
	return loadConfig(serviceName)
}

// LoadWithValidation loads configuration and validates it for the current
// environment. In production this fails if required configuration is missing.
func LoadWithValidation(serviceName string) (*Config, error) {
	cfg, err := loadConfig(serviceName)
	if err != nil {
		return nil, err
	}

	if cfg.Server.Environment == EnvProduction {
		if cfg.Auth.SecretKey == "" || cfg.Auth.SecretKey == "dev-secret-change-in-production" {
			return nil, errors.New("RANCHO_AUTH_SECRET_KEY must be set to a secure value in production")
		}
		if cfg.Auth.CronAPIToken == "" {
			return nil, errors.New("RANCHO_AUTH_CRON_API_TOKEN must be set in production")
		}
		if strings.HasPrefix(cfg.Auth.SecretKey, cfg.Auth.CronAPIToken) ||
			strings.HasPrefix(cfg.Auth.CronAPIToken, cfg.Auth.SecretKey) {
			return nil, errors.New("RANCHO_AUTH_CRON_API_TOKEN must not be derived from the session secret")
		}
	}

	if cfg.Booking.DeadlineHours < 0 {
		return nil, errors.New("booking.deadline_hours must not be negative")
	}
	if cfg.Booking.HorizonDays < 1 {
		return nil, errors.New("booking.horizon_days must be at least 1")
	}

	return cfg, nil
}

// loadConfig is the internal configuration loader
func loadConfig(serviceName string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("RANCHO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read from config file if exists
	v.SetConfigName(serviceName)
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/rancho")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.environment", EnvDevelopment)

	// Database defaults
	v.SetDefault("database.path", "rancho.db")

	// Auth defaults
	v.SetDefault("auth.secret_key", "dev-secret-change-in-production")
	v.SetDefault("auth.cron_api_token", "")
	v.SetDefault("auth.session_expiry", 12*time.Hour)

	// Edit-window defaults
	v.SetDefault("booking.deadline_hours", 48)
	v.SetDefault("booking.horizon_days", 15)

	// Notification defaults
	v.SetDefault("notify.warn_hours", 24)
	v.SetDefault("notify.scan_interval", time.Hour)
	v.SetDefault("notify.send_timeout", 8*time.Second)

	// Outbound channels are off unless configured
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.user", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")
	v.SetDefault("sms.account_sid", "")
	v.SetDefault("sms.auth_token", "")
	v.SetDefault("sms.from", "")
	v.SetDefault("sms.endpoint", "https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json")

	// Promotion defaults: foundation joins first year, complementary concludes
	v.SetDefault("promotion.foundation_to", 1)
	v.SetDefault("promotion.complementary_to", 0)
}
