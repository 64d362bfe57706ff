// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds the settings shared by the gateway (serve) and the terminal client (ui).
type Config struct {
	// Port is the port the gateway listens on.
	Port string `mapstructure:"PORT"`
	// DBFile is the path of the JSON document backing the gateway.
	DBFile string `mapstructure:"DB_FILE"`
	// StaticDir is an optional directory of files the gateway serves for unmatched GET requests.
	StaticDir string `mapstructure:"STATIC_DIR"`
	// APIURL is the gateway base URL the client talks to.
	APIURL string `mapstructure:"API_URL"`
	// RateLimit is the sustained gateway requests per second; 0 disables limiting.
	RateLimit float64 `mapstructure:"RATE_LIMIT"`
	// RateBurst is the burst size of the rate limiter.
	RateBurst int `mapstructure:"RATE_BURST"`
	// LogLevel is a logrus level name.
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// LogFile is where the terminal client writes its log, keeping the screen clean.
	LogFile string `mapstructure:"LOG_FILE"`
	// HTTPTimeout bounds each client request (e.g. "10s"); empty or "0" means the transport default.
	HTTPTimeout string `mapstructure:"HTTP_TIMEOUT"`
}

// Load reads .env (if present), then builds Config from the environment via Viper.
// Missing .env is ignored. Env vars override .env. Load does not validate, so callers can apply
// command-line overrides first and then call Validate.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("PORT", "3001")
	v.SetDefault("DB_FILE", "db.json")
	v.SetDefault("STATIC_DIR", "")
	v.SetDefault("API_URL", "http://localhost:3001")
	v.SetDefault("RATE_LIMIT", 2)
	v.SetDefault("RATE_BURST", 20)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "usermanager.log")
	v.SetDefault("HTTP_TIMEOUT", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that have no usable fallback.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("config: PORT must be set")
	}
	if c.DBFile == "" {
		return errors.New("config: DB_FILE must be set")
	}
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("config: API_URL %q must be an http(s) URL", c.APIURL)
	}
	if c.RateLimit < 0 {
		return errors.New("config: RATE_LIMIT must not be negative")
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		return errors.New("config: RATE_BURST must be at least 1 when RATE_LIMIT is set")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: LOG_LEVEL: %w", err)
	}
	if _, err := c.parseTimeout(); err != nil {
		return fmt.Errorf("config: HTTP_TIMEOUT: %w", err)
	}
	return nil
}

// Addr returns the gateway listen address.
func (c *Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

// BaseURL returns APIURL without a trailing slash.
func (c *Config) BaseURL() string {
	return strings.TrimRight(c.APIURL, "/")
}

// Level returns the parsed log level, or info if it does not parse.
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// Timeout returns HTTPTimeout as a duration; 0 when unset or invalid.
func (c *Config) Timeout() time.Duration {
	d, err := c.parseTimeout()
	if err != nil {
		return 0
	}
	return d
}

func (c *Config) parseTimeout() (time.Duration, error) {
	s := strings.TrimSpace(c.HTTPTimeout)
	if s == "" || s == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, errors.New("must not be negative")
	}
	return d, nil
}
