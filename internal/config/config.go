package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

type Config struct {
	ServerAddr string `yaml:"server_addr"`

	ModelPath      string `yaml:"model_path"`
	MetadataPath   string `yaml:"metadata_path"`
	ORTLibraryPath string `yaml:"ort_library_path"`

	FetchTimeout  time.Duration `yaml:"fetch_timeout"`
	FetchMaxBytes int64         `yaml:"fetch_max_bytes"`
	UserAgent     string        `yaml:"user_agent"`

	CacheBackend    string        `yaml:"cache_backend"`
	CacheMaxEntries int           `yaml:"cache_max_entries"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	DefaultTopK       int     `yaml:"default_top_k"`
	DefaultThreshold  float64 `yaml:"default_threshold"`
	DefaultCenterCrop bool    `yaml:"default_center_crop"`
	MaxTopK           int     `yaml:"max_top_k"`

	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	MaxImagePixels int64         `yaml:"max_image_pixels"`
	SessionIdleTTL time.Duration `yaml:"session_idle_ttl"`
	CookieSecure   bool          `yaml:"cookie_secure"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default mirrors the settings of the hosted demo: MobileNetV2, top 3 of at
// most 5, threshold 0.05, center-crop on.
func Default() *Config {
	return &Config{
		ServerAddr: ":8080",

		ModelPath:    "models/mobilenet_v2.onnx",
		MetadataPath: "models/mobilenet_v2.json",

		FetchTimeout:  10 * time.Second,
		FetchMaxBytes: 20 << 20,
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
			"AppleWebKit/537.36 (KHTML, like Gecko) " +
			"Chrome/121.0 Safari/537.36",

		CacheBackend: CacheBackendMemory,

		RedisAddr: "localhost:6379",

		DefaultTopK:       3,
		DefaultThreshold:  0.05,
		DefaultCenterCrop: true,
		MaxTopK:           5,

		MaxUploadBytes: 10 << 20,
		MaxImagePixels: 89_478_485,
		SessionIdleTTL: time.Hour,

		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// IMGCLASS_* environment variables, in that order of precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv reads the file named by IMGCLASS_CONFIG, if any.
func LoadFromEnv() (*Config, error) {
	return Load(os.Getenv("IMGCLASS_CONFIG"))
}

func (c *Config) Validate() error {
	if c.MaxTopK < 1 {
		return fmt.Errorf("max_top_k must be at least 1, got %d", c.MaxTopK)
	}
	if c.DefaultTopK < 1 || c.DefaultTopK > c.MaxTopK {
		return fmt.Errorf("default_top_k must be in [1, %d], got %d", c.MaxTopK, c.DefaultTopK)
	}
	if c.DefaultThreshold < 0 || c.DefaultThreshold > 1 {
		return fmt.Errorf("default_threshold must be in [0, 1], got %v", c.DefaultThreshold)
	}
	if c.MaxImagePixels < 1 {
		return fmt.Errorf("max_image_pixels must be positive, got %d", c.MaxImagePixels)
	}
	if c.CacheMaxEntries < 0 {
		return fmt.Errorf("cache_max_entries must not be negative")
	}
	switch c.CacheBackend {
	case CacheBackendMemory, CacheBackendRedis:
	default:
		return fmt.Errorf("unknown cache_backend %q", c.CacheBackend)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.ServerAddr = getEnv("IMGCLASS_SERVER_ADDR", c.ServerAddr)
	if port := os.Getenv("PORT"); port != "" && os.Getenv("IMGCLASS_SERVER_ADDR") == "" {
		c.ServerAddr = ":" + port
	}

	c.ModelPath = getEnv("IMGCLASS_MODEL_PATH", c.ModelPath)
	c.MetadataPath = getEnv("IMGCLASS_METADATA_PATH", c.MetadataPath)
	c.ORTLibraryPath = getEnv("IMGCLASS_ORT_LIBRARY_PATH", c.ORTLibraryPath)

	c.FetchTimeout = getEnvDuration("IMGCLASS_FETCH_TIMEOUT", c.FetchTimeout)
	c.FetchMaxBytes = int64(getEnvInt("IMGCLASS_FETCH_MAX_BYTES", int(c.FetchMaxBytes)))
	c.UserAgent = getEnv("IMGCLASS_USER_AGENT", c.UserAgent)

	c.CacheBackend = strings.ToLower(getEnv("IMGCLASS_CACHE_BACKEND", c.CacheBackend))
	c.CacheMaxEntries = getEnvInt("IMGCLASS_CACHE_MAX_ENTRIES", c.CacheMaxEntries)
	c.CacheTTL = getEnvDuration("IMGCLASS_CACHE_TTL", c.CacheTTL)

	c.RedisAddr = getEnv("IMGCLASS_REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("IMGCLASS_REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = getEnvInt("IMGCLASS_REDIS_DB", c.RedisDB)

	c.DefaultTopK = getEnvInt("IMGCLASS_DEFAULT_TOP_K", c.DefaultTopK)
	c.DefaultThreshold = getEnvFloat("IMGCLASS_DEFAULT_THRESHOLD", c.DefaultThreshold)
	c.DefaultCenterCrop = getEnvBool("IMGCLASS_DEFAULT_CENTER_CROP", c.DefaultCenterCrop)
	c.MaxTopK = getEnvInt("IMGCLASS_MAX_TOP_K", c.MaxTopK)

	c.MaxUploadBytes = int64(getEnvInt("IMGCLASS_MAX_UPLOAD_BYTES", int(c.MaxUploadBytes)))
	c.MaxImagePixels = int64(getEnvInt("IMGCLASS_MAX_IMAGE_PIXELS", int(c.MaxImagePixels)))
	c.SessionIdleTTL = getEnvDuration("IMGCLASS_SESSION_IDLE_TTL", c.SessionIdleTTL)
	c.CookieSecure = getEnvBool("IMGCLASS_COOKIE_SECURE", c.CookieSecure)

	c.LogLevel = getEnv("IMGCLASS_LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("IMGCLASS_LOG_FORMAT", c.LogFormat)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
