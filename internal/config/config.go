package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers
const (
	StoreRedis = "redis"
	StoreFile  = "file"
)

// Translation providers
const (
	ProviderHTTP   = "http"
	ProviderGemini = "gemini"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port            string        `json:"port"`
	Env             string        `json:"env"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	HTTPTimeout     time.Duration `json:"http_timeout"`

	// Document collection
	StoreDriver string `json:"store_driver"`
	StoragePath string `json:"storage_path"`

	// Redis configuration
	RedisURL       string        `json:"redis_url"`
	RedisPrefix    string        `json:"redis_prefix"`
	CacheTTL       time.Duration `json:"cache_ttl"`
	MaxConcurrency int           `json:"max_concurrency"`

	// CloudFlare R2 Configuration
	R2Endpoint  string `json:"r2_endpoint"`
	R2AccessKey string `json:"r2_access_key"`
	R2SecretKey string `json:"r2_secret_key"`
	R2Bucket    string `json:"r2_bucket"`
	R2AccountID string `json:"r2_account_id"`
	R2PublicURL string `json:"r2_public_url"`
	MaxFileSize int64  `json:"max_file_size"`

	// Translation
	TranslationProvider string        `json:"translation_provider"`
	TranslationAPIURL   string        `json:"translation_api_url"`
	TranslationAPIKey   string        `json:"translation_api_key"`
	AIApiKey            string        `json:"ai_api_key"`
	AIModel             string        `json:"ai_model"`
	AITimeout           time.Duration `json:"ai_timeout"`
	SourceLocale        string        `json:"source_locale"`
	SupportedLocales    []string      `json:"supported_locales"`

	// Logging
	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`

	// Security
	AdminAPIKey string `json:"admin_api_key"`
}

// Load loads configuration from the environment (and .env when present) and validates it
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("APP_ENV", "development"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		HTTPTimeout:     getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),

		StoreDriver: getEnv("STORE_DRIVER", StoreRedis),
		StoragePath: getEnv("STORAGE_PATH", "./data/posts"),

		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisPrefix:    getEnv("REDIS_PREFIX", "blog:"),
		CacheTTL:       getEnvAsDuration("CACHE_TTL", 720*time.Hour), // 30 days
		MaxConcurrency: getEnvAsInt("MAX_CONCURRENCY", 5),

		R2Endpoint:  getEnv("R2_ENDPOINT", ""),
		R2AccessKey: getEnv("R2_ACCESS_KEY", ""),
		R2SecretKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2Bucket:    getEnv("R2_BUCKET", "blog-media"),
		R2AccountID: getEnv("CLOUDFLARE_ACCOUNT_ID", ""),
		R2PublicURL: getEnv("R2_PUBLIC_URL", ""),
		MaxFileSize: getEnvAsInt64("MAX_FILE_SIZE", 10<<20), // 10MB

		TranslationProvider: getEnv("TRANSLATION_PROVIDER", ProviderHTTP),
		TranslationAPIURL:   getEnv("TRANSLATION_API_URL", ""),
		TranslationAPIKey:   getEnv("TRANSLATION_API_KEY", ""),
		AIApiKey:            getEnv("AI_API_KEY", ""),
		AIModel:             getEnv("AI_MODEL", "gemini-pro"),
		AITimeout:           getEnvAsDuration("AI_TIMEOUT", 60*time.Second),
		SourceLocale:        getEnv("SOURCE_LOCALE", "tr"),
		SupportedLocales:    getEnvAsList("SUPPORTED_LOCALES", []string{"tr", "en", "de", "fr"}),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the settings the service cannot start without
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis store")
		}
	case StoreFile:
		if c.StoragePath == "" {
			return fmt.Errorf("STORAGE_PATH is required for the file store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.TranslationProvider {
	case ProviderHTTP, ProviderGemini:
	default:
		return fmt.Errorf("unknown TRANSLATION_PROVIDER %q", c.TranslationProvider)
	}

	if c.MaxConcurrency < 1 {
		return fmt.Errorf("MAX_CONCURRENCY must be at least 1")
	}
	if c.SourceLocale == "" {
		return fmt.Errorf("SOURCE_LOCALE is required")
	}
	if len(c.SupportedLocales) == 0 {
		return fmt.Errorf("SUPPORTED_LOCALES must list at least one locale")
	}
	return nil
}

// IsProduction reports whether the service runs with APP_ENV=production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// MediaEnabled reports whether R2 credentials are present
func (c *Config) MediaEnabled() bool {
	return c.R2AccessKey != "" && c.R2SecretKey != "" && (c.R2Endpoint != "" || c.R2AccountID != "")
}

// Helper functions for environment variable handling
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultVal int) int {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %d", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsInt64(name string, defaultVal int64) int64 {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %d", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %v", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsList(name string, defaultVal []string) []string {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToLower(part))
		}
	}
	return out
}
