// Package config loads the application configuration from a YAML file with
// environment-variable overrides. The path comes from the CONFIG_PATH env var
// or the --config flag.
package config

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Mode is the operating mode of the server. Destructive bulk operations are
// only permitted in development.
type Mode string

const (
	Development Mode = "development"
	Production  Mode = "production"
)

// IsDevelopment reports whether destructive development-only operations are
// allowed under this mode.
func (m Mode) IsDevelopment() bool { return m == Development }

type Config struct {
	// Env selects log format and gates bulk deletes.
	Env Mode `yaml:"env" env:"FOLIO_ENV" env-default:"development"`

	// StoragePath is the SQLite database file (":memory:" works for tests).
	StoragePath string `yaml:"storage_path" env:"FOLIO_STORAGE_PATH" env-required:"true"`

	HTTPServer `yaml:"http_server"`
	Auth       Auth      `yaml:"auth"`
	RateLimit  RateLimit `yaml:"rate_limit"`
	TLS        TLS       `yaml:"tls"`
}

type HTTPServer struct {
	// Addr is the listen address, e.g. "localhost:8080".
	Addr string `yaml:"address" env:"FOLIO_HTTP_ADDR" env-default:"localhost:8080"`

	// CacheMaxAge is the default Cache-Control max-age (seconds) for public
	// collection reads. Individual resources may override it.
	CacheMaxAge int `yaml:"cache_max_age" env:"FOLIO_CACHE_MAX_AGE" env-default:"60"`

	// CORSAllowedOrigin is echoed in Access-Control-Allow-Origin.
	CORSAllowedOrigin string `yaml:"cors_allowed_origin" env:"FOLIO_CORS_ORIGIN" env-default:"*"`
}

type Auth struct {
	// JWTSecret signs session tokens. Required; there is no safe default.
	JWTSecret string `yaml:"jwt_secret" env:"FOLIO_JWT_SECRET" env-required:"true"`

	// TokenTTL is the session token lifetime.
	TokenTTL time.Duration `yaml:"token_ttl" env:"FOLIO_TOKEN_TTL" env-default:"24h"`

	// BcryptCost tunes password hashing. 0 means the bcrypt default.
	BcryptCost int `yaml:"bcrypt_cost" env:"FOLIO_BCRYPT_COST" env-default:"0"`
}

type RateLimit struct {
	// Window is the fixed-window length for rate-limited endpoints.
	Window time.Duration `yaml:"window" env:"FOLIO_RATE_WINDOW" env-default:"15m"`

	// MaxAttempts is the number of requests allowed per window per client.
	MaxAttempts int `yaml:"max_attempts" env:"FOLIO_RATE_MAX" env-default:"10"`
}

type TLS struct {
	// Enabled serves HTTPS with a self-signed certificate generated at boot.
	Enabled bool `yaml:"enabled" env:"FOLIO_TLS" env-default:"false"`
}

// MustLoad reads, validates, and returns the configuration. It terminates the
// process on any failure, so a returned Config is always valid.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flagPath := flag.String("config", "", "path to the configuration YAML file")
		flag.Parse()
		configPath = *flagPath
	}

	if configPath == "" {
		log.Fatal("config path is not set: use --config flag or CONFIG_PATH env var")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exist: %s", configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}

	if cfg.Env != Development && cfg.Env != Production {
		log.Fatalf("invalid env %q: must be %q or %q", cfg.Env, Development, Production)
	}

	return &cfg
}
