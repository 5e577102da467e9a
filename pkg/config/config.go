package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	ServerPort            string
	FirebaseProject       string
	Environment           string
	StorageDriver         string
	PollInterval          time.Duration
	AggregatorConcurrency int
	UserCacheSize         int
	UserCacheTTL          time.Duration
	DefaultAvatarURL      string
}

// fileConfig mirrors Config for the optional TOML file. Durations are written
// as strings ("2s", "500ms").
type fileConfig struct {
	ServerPort            string `toml:"server_port"`
	FirebaseProject       string `toml:"firebase_project_id"`
	Environment           string `toml:"environment"`
	StorageDriver         string `toml:"storage_driver"`
	PollInterval          string `toml:"poll_interval"`
	AggregatorConcurrency int    `toml:"aggregator_concurrency"`
	UserCacheSize         int    `toml:"user_cache_size"`
	UserCacheTTL          string `toml:"user_cache_ttl"`
	DefaultAvatarURL      string `toml:"default_avatar_url"`
}

// Load builds the configuration from defaults, then CONFIG_FILE (TOML) if set,
// then environment variables (including a .env file).
func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:            "8080",
		Environment:           "development",
		StorageDriver:         "firestore",
		PollInterval:          2 * time.Second,
		AggregatorConcurrency: 8,
		UserCacheSize:         512,
		UserCacheTTL:          time.Minute,
		DefaultAvatarURL:      "/static/avatar-default.png",
	}

	if path, ok := os.LookupEnv("CONFIG_FILE"); ok && path != "" {
		if err := config.loadFile(path); err != nil {
			return nil, err
		}
	}

	config.ServerPort = getEnv("SERVER_PORT", config.ServerPort)
	config.FirebaseProject = getEnv("FIREBASE_PROJECT_ID", config.FirebaseProject)
	config.Environment = getEnv("ENVIRONMENT", config.Environment)
	config.StorageDriver = getEnv("STORAGE_DRIVER", config.StorageDriver)
	config.PollInterval = getEnvAsDuration("POLL_INTERVAL", config.PollInterval)
	config.AggregatorConcurrency = getEnvAsInt("AGGREGATOR_CONCURRENCY", config.AggregatorConcurrency)
	config.UserCacheSize = getEnvAsInt("USER_CACHE_SIZE", config.UserCacheSize)
	config.UserCacheTTL = getEnvAsDuration("USER_CACHE_TTL", config.UserCacheTTL)
	config.DefaultAvatarURL = getEnv("DEFAULT_AVATAR_URL", config.DefaultAvatarURL)

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.ServerPort != "" {
		c.ServerPort = fc.ServerPort
	}
	if fc.FirebaseProject != "" {
		c.FirebaseProject = fc.FirebaseProject
	}
	if fc.Environment != "" {
		c.Environment = fc.Environment
	}
	if fc.StorageDriver != "" {
		c.StorageDriver = fc.StorageDriver
	}
	if fc.PollInterval != "" {
		d, err := time.ParseDuration(fc.PollInterval)
		if err != nil {
			return fmt.Errorf("parse poll_interval %q: %w", fc.PollInterval, err)
		}
		c.PollInterval = d
	}
	if fc.AggregatorConcurrency > 0 {
		c.AggregatorConcurrency = fc.AggregatorConcurrency
	}
	if fc.UserCacheSize > 0 {
		c.UserCacheSize = fc.UserCacheSize
	}
	if fc.UserCacheTTL != "" {
		d, err := time.ParseDuration(fc.UserCacheTTL)
		if err != nil {
			return fmt.Errorf("parse user_cache_ttl %q: %w", fc.UserCacheTTL, err)
		}
		c.UserCacheTTL = d
	}
	if fc.DefaultAvatarURL != "" {
		c.DefaultAvatarURL = fc.DefaultAvatarURL
	}
	return nil
}

func (c *Config) validate() error {
	switch c.StorageDriver {
	case "firestore":
		if c.FirebaseProject == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required for the firestore storage driver")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if c.AggregatorConcurrency <= 0 {
		c.AggregatorConcurrency = 1
	}
	if c.UserCacheSize <= 0 {
		c.UserCacheSize = 1
	}
	if c.UserCacheTTL <= 0 {
		return fmt.Errorf("user cache ttl must be positive, got %s", c.UserCacheTTL)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.Atoi(value)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return defaultValue
}
