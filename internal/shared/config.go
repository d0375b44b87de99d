package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment override, e.g. RECAP_API_BASE_URL.
const EnvPrefix = "RECAP"

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
//
// Nested fields take their environment key from the field name, e.g.
// Session.Path is read from RECAP_SESSION_PATH.
type Config struct {
	API     APIConfig     `toml:"api" envconfig:"API"`
	Session SessionConfig `toml:"session" envconfig:"SESSION"`
	Billing BillingConfig `toml:"billing" envconfig:"BILLING"`
	Server  ServerConfig  `toml:"server" envconfig:"SERVER"`
	Log     LogConfig     `toml:"log" envconfig:"LOG"`
}

// APIConfig contains backend connection settings.
type APIConfig struct {
	BaseURL   string        `toml:"base_url" split_words:"true"`
	Timeout   time.Duration `toml:"timeout" split_words:"true"`
	RateLimit float64       `toml:"rate_limit" split_words:"true"`
	Burst     int           `toml:"burst" split_words:"true"`
}

// SessionConfig points at the durable token store.
type SessionConfig struct {
	Path string `toml:"path" split_words:"true"`
}

// BillingConfig contains payment processor settings and the entitlement staleness policy.
type BillingConfig struct {
	StripePublishableKey string        `toml:"stripe_publishable_key" split_words:"true"`
	StripeBaseURL        string        `toml:"stripe_base_url" split_words:"true"`
	PollInterval         time.Duration `toml:"poll_interval" split_words:"true"`
	PollMaxWait          time.Duration `toml:"poll_max_wait" split_words:"true"`
}

// ServerConfig contains the local link catcher settings.
type ServerConfig struct {
	Host string `toml:"host" split_words:"true"`
	Port int    `toml:"port" split_words:"true"`
}

// Addr joins host and port.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level" split_words:"true"`
	File  string `toml:"file" split_words:"true"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %w", ErrMissingConfig, err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %w", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// ApplyEnv loads envFile (if it exists) into the process environment and then
// overlays RECAP_* variables onto c. Variables that are not set leave c untouched.
func ApplyEnv(c *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: failed to load %s: %w", ErrInvalidConfig, envFile, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch {
	case c.API.BaseURL == "":
		return fmt.Errorf("%w: api.base_url is required", ErrInvalidConfig)
	case c.API.Timeout < 0:
		return fmt.Errorf("%w: api.timeout must not be negative", ErrInvalidConfig)
	case c.API.RateLimit < 0:
		return fmt.Errorf("%w: api.rate_limit must not be negative", ErrInvalidConfig)
	case c.Session.Path == "":
		return fmt.Errorf("%w: session.path is required", ErrInvalidConfig)
	case c.Billing.PollMaxWait > 0 && c.Billing.PollInterval <= 0:
		return fmt.Errorf("%w: billing.poll_interval must be positive when polling", ErrInvalidConfig)
	case c.Server.Port < 0 || c.Server.Port > 65535:
		return fmt.Errorf("%w: server.port out of range", ErrInvalidConfig)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
