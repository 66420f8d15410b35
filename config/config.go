package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds the application's configuration
type Config struct {
	Port                    int           `mapstructure:"PORT"`
	LogLevel                string        `mapstructure:"LOG_LEVEL"`
	DebugLog                bool          `mapstructure:"DEBUG_LOG"`
	Debug                   bool          `mapstructure:"DEBUG"`
	APIURL                  string        `mapstructure:"YUN_API_URL"`
	APIKey                  string        `mapstructure:"YUN_API_KEY"`
	DefaultModel            string        `mapstructure:"DEFAULT_MODEL"`
	LLMRequestTimeout       time.Duration `mapstructure:"LLM_REQUEST_TIMEOUT"`
	MaxRetries              int           `mapstructure:"MAX_RETRIES"`
	RetryDelaySeconds       time.Duration `mapstructure:"RETRY_DELAY_SECONDS"`
	LLMBackoffMaxSeconds    time.Duration `mapstructure:"LLM_BACKOFF_MAX_SECONDS"`
	LLMBackoffJitterRatio   float64       `mapstructure:"LLM_BACKOFF_JITTER_RATIO"`
	MaxBodyBytes            int64         `mapstructure:"MAX_BODY_BYTES"`
	SessionBackend          string        `mapstructure:"SESSION_BACKEND"`
	SessionsDir             string        `mapstructure:"SESSIONS_DIR"`
	RedisAddr               string        `mapstructure:"REDIS_ADDR"`
	RedisPassword           string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB                 int           `mapstructure:"REDIS_DB"`
	RedisKeyPrefix          string        `mapstructure:"REDIS_KEY_PREFIX"`
	PostgresDSN             string        `mapstructure:"POSTGRES_DSN"`
	ModelsFile              string        `mapstructure:"MODELS_FILE"`
	StaticDir               string        `mapstructure:"STATIC_DIR"`
	CORSAllowedOrigins      []string      `mapstructure:"CORS_ALLOWED_ORIGINS"`
	CleanupEnabled          bool          `mapstructure:"CLEANUP_ENABLED"`
	CleanupInterval         time.Duration `mapstructure:"CLEANUP_INTERVAL"`
	SessionRetentionAge     time.Duration `mapstructure:"SESSION_RETENTION_AGE"`
	RateLimitRequestsPerMin int           `mapstructure:"RATE_LIMIT_REQUESTS_PER_MIN"`
	RateLimitBurstSize      int           `mapstructure:"RATE_LIMIT_BURST_SIZE"`
	RateLimitCacheSize      int           `mapstructure:"RATE_LIMIT_CACHE_SIZE"`
}

// Session backends understood by SESSION_BACKEND.
const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

func Load(logger *zap.Logger) *Config {
	var config Config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")        // For running locally
	viper.AddConfigPath("../")      // For running from docker subdir
	viper.AddConfigPath("./config") // Common config folder
	viper.AutomaticEnv()

	setDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		if logger != nil {
			logger.Warn("Could not read config file, using defaults/env vars", zap.Error(err))
		}
	}
	mergeDotEnv(viper.GetViper(), logger)

	if err := viper.Unmarshal(&config); err != nil {
		// Config unmarshaling is critical - fail fast during bootstrap
		if logger != nil {
			logger.Fatal("Unable to decode config into struct", zap.Error(err))
		} else {
			fmt.Fprintf(os.Stderr, "FATAL: Unable to decode config into struct: %v\n", err)
			os.Exit(1)
		}
	}

	config.normalize()
	return &config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", 3000)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DEBUG_LOG", false)
	v.SetDefault("DEBUG", false)
	v.SetDefault("YUN_API_URL", "https://yunwu.ai/v1/chat/completions")
	v.SetDefault("YUN_API_KEY", "")
	v.SetDefault("DEFAULT_MODEL", "o4-mini")
	v.SetDefault("LLM_REQUEST_TIMEOUT", 600)
	v.SetDefault("MAX_RETRIES", 3)
	v.SetDefault("RETRY_DELAY_SECONDS", 2)
	v.SetDefault("LLM_BACKOFF_MAX_SECONDS", 30)
	v.SetDefault("LLM_BACKOFF_JITTER_RATIO", 0.1)
	v.SetDefault("MAX_BODY_BYTES", 5<<20)
	v.SetDefault("SESSION_BACKEND", BackendFile)
	v.SetDefault("SESSIONS_DIR", "sessions")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_KEY_PREFIX", "session:")
	v.SetDefault("POSTGRES_DSN", "")
	v.SetDefault("MODELS_FILE", "models.json")
	v.SetDefault("STATIC_DIR", "dist")
	v.SetDefault("CORS_ALLOWED_ORIGINS", []string{})
	v.SetDefault("CLEANUP_ENABLED", true)
	v.SetDefault("CLEANUP_INTERVAL", 24)
	v.SetDefault("SESSION_RETENTION_AGE", 720)
	v.SetDefault("RATE_LIMIT_REQUESTS_PER_MIN", 20)
	v.SetDefault("RATE_LIMIT_BURST_SIZE", 5)
	v.SetDefault("RATE_LIMIT_CACHE_SIZE", 4096)
}

// mergeDotEnv layers a .env file over config.yaml. Real environment
// variables still win because AutomaticEnv is consulted first.
func mergeDotEnv(v *viper.Viper, logger *zap.Logger) {
	for _, path := range []string{".env", "server/.env"} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.MergeInConfig(); err != nil {
			if logger != nil {
				logger.Warn("Could not merge .env file", zap.String("path", path), zap.Error(err))
			}
			continue
		}
		if logger != nil {
			logger.Debug(".env file merged", zap.String("path", path))
		}
		return
	}
}

func (c *Config) normalize() {
	if c.DebugLog || c.Debug {
		c.LogLevel = "debug"
	}
	c.SessionBackend = strings.ToLower(strings.TrimSpace(c.SessionBackend))
	if c.SessionBackend == "" {
		c.SessionBackend = BackendFile
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 1
	}
	if c.RateLimitCacheSize <= 0 {
		c.RateLimitCacheSize = 4096
	}

	origins := make([]string, 0, len(c.CORSAllowedOrigins))
	for _, o := range c.CORSAllowedOrigins {
		// env values arrive as one comma separated string
		for _, part := range strings.Split(o, ",") {
			if part = strings.TrimSpace(part); part != "" {
				origins = append(origins, part)
			}
		}
	}
	c.CORSAllowedOrigins = origins

	// Convert seconds/hours to proper time.Duration
	c.LLMRequestTimeout = c.LLMRequestTimeout * time.Second
	c.RetryDelaySeconds = c.RetryDelaySeconds * time.Second
	c.LLMBackoffMaxSeconds = c.LLMBackoffMaxSeconds * time.Second
	c.CleanupInterval = c.CleanupInterval * time.Hour
	c.SessionRetentionAge = c.SessionRetentionAge * time.Hour
}
