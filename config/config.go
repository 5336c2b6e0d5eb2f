// Package config resolves client settings from defaults, an optional YAML
// file, a .env file and the process environment, in increasing precedence.
package config

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIURL  = "http://localhost:8000"
	DefaultTimeout = 30 * time.Second

	TokenStoreBolt   = "bolt"
	TokenStoreRedis  = "redis"
	TokenStoreMemory = "memory"

	envConfigFile = "STUDENTHUB_CONFIG"
	envAPIURL     = "STUDENTHUB_API_URL"
	envTimeout    = "STUDENTHUB_TIMEOUT"
	envTokenStore = "STUDENTHUB_TOKEN_STORE"
	envTokenFile  = "STUDENTHUB_TOKEN_FILE"
	envProfile    = "STUDENTHUB_PROFILE"
	envRedis      = "REDIS_CONNECTION_STRING"
	envDebug      = "DEBUG"
)

// Config holds everything the client side needs.
type Config struct {
	APIURL     string        `yaml:"api_url"`
	Timeout    time.Duration `yaml:"timeout"`
	Debug      bool          `yaml:"debug"`
	TokenStore string        `yaml:"token_store"`
	TokenFile  string        `yaml:"token_file"`
	RedisURL   string        `yaml:"redis_url"`
	Profile    string        `yaml:"profile"`
}

// Default returns the built-in settings.
func Default() Config {
	tokenFile := "session.db"
	if home, err := os.UserHomeDir(); err == nil {
		tokenFile = filepath.Join(home, ".studenthub", "session.db")
	}
	return Config{
		APIURL:     DefaultAPIURL,
		Timeout:    DefaultTimeout,
		TokenStore: TokenStoreBolt,
		TokenFile:  tokenFile,
		Profile:    "default",
	}
}

// Load builds a Config. path may be empty, in which case STUDENTHUB_CONFIG is
// consulted; when neither names a file only defaults and environment apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	if path == "" {
		path = os.Getenv(envConfigFile)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv(envAPIURL); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv(envTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid %s: %q", envTimeout, v)
		}
		cfg.Timeout = d
	}
	if v := os.Getenv(envDebug); v != "" {
		if dbg, err := strconv.ParseBool(v); err == nil {
			cfg.Debug = dbg
		}
	}
	if v := os.Getenv(envTokenStore); v != "" {
		cfg.TokenStore = strings.ToLower(v)
	}
	if v := os.Getenv(envTokenFile); v != "" {
		cfg.TokenFile = v
	}
	if v := os.Getenv(envRedis); v != "" {
		cfg.RedisURL = v
	}
	if v := os.Getenv(envProfile); v != "" {
		cfg.Profile = v
	}
	return nil
}

// Validate checks that the combination of settings is usable.
func (c Config) Validate() error {
	if c.APIURL == "" {
		return errors.New("api url must not be empty")
	}
	if c.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}
	switch c.TokenStore {
	case TokenStoreBolt:
		if c.TokenFile == "" {
			return errors.New("token_file is required for the bolt token store")
		}
	case TokenStoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("%s is required for the redis token store", envRedis)
		}
	case TokenStoreMemory:
	default:
		return fmt.Errorf("unsupported token store %q", c.TokenStore)
	}
	return nil
}

// RedisOptions accepts either a redis:// URL or the Azure style
// "host:port,password=...,ssl=true" connection string.
func RedisOptions(conn string) (*redis.Options, error) {
	if conn == "" {
		return nil, errors.New("empty redis connection string")
	}
	if opts, err := redis.ParseURL(conn); err == nil {
		return opts, nil
	}
	parts := strings.Split(conn, ",")
	opts := &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(kv[0]) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.ToLower(kv[1]) == "true" {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts, nil
}
