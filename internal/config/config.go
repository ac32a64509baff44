package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backends.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds the configuration settings for the waymark server.
type Config struct {
	Env      string         `mapstructure:"env"`      // Env is the current environment: local, development, production.
	HTTP     HTTPConfig     `mapstructure:"http"`     // HTTP is the API listener.
	Store    StoreConfig    `mapstructure:"store"`    // Store selects the point backend.
	Postgres PostgresConfig `mapstructure:"postgres"` // Postgres is used when the backend is postgres.
	Valkey   ValkeyConfig   `mapstructure:"valkey"`   // Valkey enables the read cache when Addr is set.
	NATS     NATSConfig     `mapstructure:"nats"`     // NATS enables the cross-instance relay when URL is set.
	Geocoder GeocoderConfig `mapstructure:"geocoder"` // Geocoder backs address search in the point form.
	Map      MapConfig      `mapstructure:"map"`      // Map tunes the server-side map view.
}

type HTTPConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type StoreConfig struct {
	Backend string `mapstructure:"backend"`
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`     // Host is the database server address.
	Port     int    `mapstructure:"port"`     // Port is the database server port.
	User     string `mapstructure:"user"`     // User is the database user.
	Password string `mapstructure:"password"` // Password is the database user's password.
	Name     string `mapstructure:"db_name"`  // Name is the name of the database.
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// DSN renders the connection string pgx expects.
func (p PostgresConfig) DSN() string {
	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     fmt.Sprintf("%s:%d", p.Host, p.Port),
		Path:     p.Name,
		RawQuery: "sslmode=" + url.QueryEscape(p.SSLMode),
	}
	return dsn.String()
}

type ValkeyConfig struct {
	Addr string        `mapstructure:"addr"`
	TTL  time.Duration `mapstructure:"ttl"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

type GeocoderConfig struct {
	Provider  string `mapstructure:"provider"`   // google, nominatim or none.
	APIKey    string `mapstructure:"api_key"`    // Required for google.
	RateLimit int    `mapstructure:"rate_limit"` // Requests per second.
}

type MapConfig struct {
	ResyncInterval time.Duration `mapstructure:"resync_interval"` // Zero disables periodic resync.
}

// Load reads defaults, then the optional YAML file at path, then WAYMARK_*
// environment variables (WAYMARK_POSTGRES_HOST overrides postgres.host).
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("env", "production")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 10*time.Second)
	v.SetDefault("store.backend", BackendPostgres)
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "waymark")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.db_name", "waymark")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("valkey.addr", "")
	v.SetDefault("valkey.ttl", time.Minute)
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject", "waymark.points.changed")
	v.SetDefault("geocoder.provider", "nominatim")
	v.SetDefault("geocoder.api_key", "")
	v.SetDefault("geocoder.rate_limit", 1)
	v.SetDefault("map.resync_interval", 5*time.Minute)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("WAYMARK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MustLoad is Load that panics on any error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}
	return cfg
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Env {
	case "local", "development", "production":
	default:
		errs = append(errs, fmt.Errorf("env must be local, development or production, got %q", c.Env))
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port must be 1-65535, got %d", c.HTTP.Port))
	}
	if c.HTTP.ReadTimeout <= 0 || c.HTTP.WriteTimeout <= 0 {
		errs = append(errs, errors.New("http timeouts must be positive"))
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Postgres.Host == "" {
			errs = append(errs, errors.New("postgres.host is required"))
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Errorf("postgres.port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.User == "" {
			errs = append(errs, errors.New("postgres.user is required"))
		}
		if c.Postgres.Name == "" {
			errs = append(errs, errors.New("postgres.db_name is required"))
		}
		if c.Postgres.MaxConns <= 0 {
			errs = append(errs, errors.New("postgres.max_conns must be positive"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend must be postgres or memory, got %q", c.Store.Backend))
	}

	if c.Valkey.Addr != "" && c.Valkey.TTL <= 0 {
		errs = append(errs, errors.New("valkey.ttl must be positive"))
	}
	if c.NATS.URL != "" && c.NATS.Subject == "" {
		errs = append(errs, errors.New("nats.subject is required"))
	}

	switch c.Geocoder.Provider {
	case "google":
		if c.Geocoder.APIKey == "" {
			errs = append(errs, errors.New("geocoder.api_key is required for google"))
		}
	case "nominatim", "none":
	default:
		errs = append(errs, fmt.Errorf("geocoder.provider must be google, nominatim or none, got %q", c.Geocoder.Provider))
	}
	if c.Geocoder.RateLimit < 0 {
		errs = append(errs, errors.New("geocoder.rate_limit must not be negative"))
	}
	if c.Map.ResyncInterval < 0 {
		errs = append(errs, errors.New("map.resync_interval must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %w", errors.Join(errs...))
	}
	return nil
}
