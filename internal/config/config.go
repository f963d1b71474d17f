package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/delivery-monitor/")
	v.AddConfigPath("$HOME/.delivery-monitor")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("DELIVERY_MONITOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Platform database defaults
	v.SetDefault("platform.mysql_dsn", "user:password@tcp(localhost:3306)/mailplatform?parseTime=true")
	v.SetDefault("platform.max_open_conns", 10)
	v.SetDefault("platform.max_idle_conns", 5)
	v.SetDefault("platform.conn_max_lifetime", "30m")

	// Recipient mailbox defaults
	v.SetDefault("mailbox.addr", "localhost:993")
	v.SetDefault("mailbox.username", "")
	v.SetDefault("mailbox.password", "")
	v.SetDefault("mailbox.tls", true)
	v.SetDefault("mailbox.folder", "INBOX")

	// Probe defaults
	v.SetDefault("probe.recipient", "")
	v.SetDefault("probe.list_id", 0)
	v.SetDefault("probe.customer_id", 0)
	v.SetDefault("probe.template_id", 0)
	v.SetDefault("probe.group_id", 0)
	v.SetDefault("probe.pre_header", "Automated delivery verification")

	// Retrieval retry defaults
	v.SetDefault("retrieval.max_attempts", 20)
	v.SetDefault("retrieval.interval", "60s")

	// Bounce audit retry defaults
	v.SetDefault("bounce.max_attempts", 10)
	v.SetDefault("bounce.interval", "60s")

	// Interaction replay defaults
	v.SetDefault("replay.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	v.SetDefault("replay.timeout", "30s")
	v.SetDefault("replay.max_redirects", 5)

	// Scanner defaults
	v.SetDefault("scanner.interval", "60m")
	v.SetDefault("scanner.updated_within", "1h")
	v.SetDefault("scanner.untested_within", "24h")

	// API defaults
	v.SetDefault("api.listen_address", "0.0.0.0:8085")

	// Verdict storage defaults
	v.SetDefault("verdicts.backend", "platform")
	v.SetDefault("verdicts.sqlite_path", "/data/delivery_verdicts.db")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetInt64 gets a 64-bit integer value from the configuration
func (c *Config) GetInt64(key string) int64 {
	return c.v.GetInt64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
