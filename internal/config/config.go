// Package config loads the service configuration from defaults, an optional
// TOML file and environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Cache backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendNATS     = "nats"
)

// FileEnv names the environment variable holding the optional TOML file path.
const FileEnv = "DSREAD_CONFIG"

type Config struct {
	HTTPAddr       string        `toml:"http_addr"`
	LookupURL      string        `toml:"lookup_url"`
	RequestTimeout time.Duration `toml:"request_timeout"`
	UserAgent      string        `toml:"user_agent"`

	Cache CacheConfig `toml:"cache"`
	STAN  STANConfig  `toml:"stan"`
	Log   LogConfig   `toml:"log"`

	MetricsEnabled bool `toml:"metrics_enabled"`
}

type CacheConfig struct {
	Backend     string        `toml:"backend"`
	Expiry      time.Duration `toml:"expiry"`
	DatabaseURL string        `toml:"database_url"`
	NATSURL     string        `toml:"nats_url"`
	KVBucket    string        `toml:"kv_bucket"`
	KVTTL       time.Duration `toml:"kv_ttl"`
}

// STANConfig enables invalidation fan-out when ClusterID is set.
type STANConfig struct {
	ClusterID string `toml:"cluster_id"`
	ClientID  string `toml:"client_id"`
	URL       string `toml:"url"`
	Subject   string `toml:"subject"`
	Durable   string `toml:"durable"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTPAddr:       ":8080",
		LookupURL:      "https://api-lookup.data.api.platform.here.com/lookup/v1",
		RequestTimeout: 60 * time.Second,
		UserAgent:      "dsread",
		Cache: CacheConfig{
			Backend:  BackendMemory,
			NATSURL:  "nats://localhost:4222",
			KVBucket: "dsread-cache",
		},
		STAN: STANConfig{
			URL:     "nats://localhost:4223",
			Subject: "dsread.invalidations",
			Durable: "dsread-durable",
		},
		Log:            LogConfig{Level: "info", Format: "text"},
		MetricsEnabled: true,
	}
}

// Load builds the configuration. A file named by DSREAD_CONFIG that cannot be
// read or decoded is an error.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv(FileEnv); path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("config file %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	c.HTTPAddr = getEnv("HTTP_ADDR", c.HTTPAddr)
	c.LookupURL = getEnv("LOOKUP_URL", c.LookupURL)
	c.UserAgent = getEnv("USER_AGENT", c.UserAgent)
	c.Cache.Backend = getEnv("CACHE_BACKEND", c.Cache.Backend)
	c.Cache.DatabaseURL = getEnv("DATABASE_URL", c.Cache.DatabaseURL)
	c.Cache.NATSURL = getEnv("NATS_URL", c.Cache.NATSURL)
	c.Cache.KVBucket = getEnv("KV_BUCKET", c.Cache.KVBucket)
	c.STAN.ClusterID = getEnv("STAN_CLUSTER_ID", c.STAN.ClusterID)
	c.STAN.ClientID = getEnv("STAN_CLIENT_ID", c.STAN.ClientID)
	c.STAN.URL = getEnv("STAN_URL", c.STAN.URL)
	c.STAN.Subject = getEnv("STAN_SUBJECT", c.STAN.Subject)
	c.STAN.Durable = getEnv("STAN_DURABLE", c.STAN.Durable)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	var err error
	if c.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", c.RequestTimeout); err != nil {
		return err
	}
	if c.Cache.Expiry, err = getDuration("CACHE_EXPIRY", c.Cache.Expiry); err != nil {
		return err
	}
	if c.Cache.KVTTL, err = getDuration("KV_TTL", c.Cache.KVTTL); err != nil {
		return err
	}
	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("METRICS_ENABLED: %w", err)
		}
		c.MetricsEnabled = b
	}
	return nil
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if c.LookupURL == "" {
		errs = append(errs, errors.New("lookup url is required"))
	}
	switch c.Cache.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Cache.DatabaseURL == "" {
			errs = append(errs, errors.New("postgres cache requires database_url"))
		}
	case BackendNATS:
		if c.Cache.NATSURL == "" || c.Cache.KVBucket == "" {
			errs = append(errs, errors.New("nats cache requires nats_url and kv_bucket"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache backend %q", c.Cache.Backend))
	}
	if c.Cache.Expiry < 0 {
		errs = append(errs, errors.New("cache expiry must not be negative"))
	}
	return errors.Join(errs...)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
