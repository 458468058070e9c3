// Package config loads the server configuration.
//
// Sources, lowest precedence first:
//  1. Defaults
//  2. A YAML file named by NOTES_CONFIG (optional)
//  3. Environment variables
//
// Example file:
//
//	port: 8080
//	dbPath: data/notes.db
//	tokenTTL: 24h
//	github:
//	  clientId: ...
//	  clientSecret: ...
//	redisUrl: redis://localhost:6379/0
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPort   = 8080
	DefaultDBPath = "data/notes.db"
)

type GitHub struct {
	ClientID     string `yaml:"clientId"`
	ClientSecret string `yaml:"clientSecret"`
	CallbackURL  string `yaml:"callbackUrl"`
}

// Enabled reports whether GitHub sign-in is configured.
func (g GitHub) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type Config struct {
	Port      int           `yaml:"port"`
	DBPath    string        `yaml:"dbPath"`
	JWTSecret string        `yaml:"jwtSecret"`
	TokenTTL  time.Duration `yaml:"tokenTTL"`
	GitHub    GitHub        `yaml:"github"`
	// RedisURL selects the shared token revocation list. Empty keeps
	// revocations in process memory.
	RedisURL string `yaml:"redisUrl"`
	LogLevel string `yaml:"logLevel"`
}

func defaults() Config {
	return Config{
		Port:     DefaultPort,
		DBPath:   DefaultDBPath,
		TokenTTL: 24 * time.Hour,
		LogLevel: "info",
	}
}

// Load builds the configuration from the process environment.
func Load() (Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom builds the configuration using getenv for every lookup.
func LoadFrom(getenv func(string) string) (Config, error) {
	cfg := defaults()

	if path := getenv("NOTES_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, getenv); err != nil {
		return Config{}, err
	}

	if cfg.GitHub.CallbackURL == "" {
		cfg.GitHub.CallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid PORT %q: %w", v, err)
		}
		cfg.Port = port
	}
	if v := getenv("TOKEN_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid TOKEN_TTL %q: %w", v, err)
		}
		cfg.TokenTTL = ttl
	}

	setString(&cfg.DBPath, getenv("DB_PATH"))
	setString(&cfg.JWTSecret, getenv("JWT_SECRET"))
	setString(&cfg.GitHub.ClientID, getenv("GITHUB_CLIENT_ID"))
	setString(&cfg.GitHub.ClientSecret, getenv("GITHUB_CLIENT_SECRET"))
	setString(&cfg.GitHub.CallbackURL, getenv("GITHUB_CALLBACK_URL"))
	setString(&cfg.RedisURL, getenv("REDIS_URL"))
	setString(&cfg.LogLevel, getenv("LOG_LEVEL"))
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("dbPath is required"))
	}
	if len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 16 characters (openssl rand -hex 32)"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("tokenTTL %s must be positive", c.TokenTTL))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
