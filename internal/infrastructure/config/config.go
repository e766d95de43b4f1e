package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Server      ServerConfig      `mapstructure:"server"`
	OpenRouter  OpenRouterConfig  `mapstructure:"openrouter"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Redis       RedisConfig       `mapstructure:"redis"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Image       ImageConfig       `mapstructure:"image"`
	Catalog     CatalogConfig     `mapstructure:"catalog"`
	CustomItems CustomItemsConfig `mapstructure:"custom_items"`
	Resolution  ResolutionConfig  `mapstructure:"resolution"`
	Matching    MatchingConfig    `mapstructure:"matching"`
	LogLevel    string            `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
	DedupWindow    time.Duration `mapstructure:"dedup_window"`
}

// OpenRouterConfig OpenRouter 配置。
// Enabled 未設定時依 APIKey 是否存在決定；設為 false 可在保留金鑰的情況下停用外部呼叫。
type OpenRouterConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	Model     string `mapstructure:"model"`
	TextModel string `mapstructure:"text_model"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

// CacheConfig 外部查詢結果的程序內快取
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RedisConfig 共用快取（選用）
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// ImageConfig 圖片配置
type ImageConfig struct {
	MaxSizeBytes int64 `mapstructure:"max_size_bytes"`
}

// CatalogConfig 營養素資料庫
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// CustomItemsConfig 自訂食品儲存
type CustomItemsConfig struct {
	DSN string `mapstructure:"dsn"`
}

// ResolutionConfig 解析佇列與重試設定
type ResolutionConfig struct {
	Cooldown               time.Duration `mapstructure:"cooldown"`
	SessionTTL             time.Duration `mapstructure:"session_ttl"`
	BackoffBase            time.Duration `mapstructure:"backoff_base"`
	RecognitionMaxRetries  int           `mapstructure:"recognition_max_retries"`
	RecognitionTimeout     time.Duration `mapstructure:"recognition_timeout"`
	LookupMaxRetries       int           `mapstructure:"lookup_max_retries"`
	LookupTimeout          time.Duration `mapstructure:"lookup_timeout"`
	CatalogCandidateLimit  int           `mapstructure:"catalog_candidate_limit"`
	ExternalCandidateLimit int           `mapstructure:"external_candidate_limit"`
}

// MatchingConfig 候選評分常數
type MatchingConfig struct {
	Exact           int `mapstructure:"exact"`
	CatalogPrefix   int `mapstructure:"catalog_prefix"`
	SearchPrefix    int `mapstructure:"search_prefix"`
	CatalogContains int `mapstructure:"catalog_contains"`
	SearchContains  int `mapstructure:"search_contains"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// .env 不存在時只使用環境變數與預設值
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定環境變量
	_ = v.BindEnv("openrouter.enabled")
	_ = v.BindEnv("openrouter.api_key", "OPENROUTER_API_KEY")
	_ = v.BindEnv("openrouter.model", "OPENROUTER_MODEL")
	_ = v.BindEnv("openrouter.text_model", "OPENROUTER_TEXT_MODEL")
	_ = v.BindEnv("openrouter.max_tokens", "MODEL_MAX_TOKENS")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("catalog.path", "CATALOG_PATH")
	_ = v.BindEnv("custom_items.dsn", "CUSTOM_ITEMS_DSN")
	_ = v.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	_ = v.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	_ = v.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	_ = v.BindEnv("log_level", "LOG_LEVEL")

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// logger 尚未初始化，輸出到 stderr 以免混入 CLI 的輸出
	fmt.Fprintln(os.Stderr, "Loading configuration", "openrouter_api_key:", maskAPIKey(v.GetString("openrouter.api_key")), "openrouter_model:", v.GetString("openrouter.model"))

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 未明確設定時，有 API Key 即啟用
	if !v.IsSet("openrouter.enabled") {
		config.OpenRouter.Enabled = config.OpenRouter.APIKey != ""
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Default 回傳只含預設值的設定，供 CLI 與測試使用
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := decode(v)
	if err != nil {
		panic(fmt.Sprintf("default config is invalid: %v", err))
	}
	return cfg
}

// maskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "nutrient-resolver")

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "150s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "140s")
	v.SetDefault("server.max_body_bytes", 10<<20)
	v.SetDefault("server.dedup_window", "2s")

	// OpenRouter 設定
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.model", "qwen/qwen2.5-vl-72b-instruct:free")
	v.SetDefault("openrouter.text_model", "qwen/qwen2.5-72b-instruct:free")
	v.SetDefault("openrouter.max_tokens", 2000)

	// 快取設定
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_interval", "10m")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "168h")

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("image.max_size_bytes", 10*1024*1024)

	v.SetDefault("catalog.path", "data/catalog.json")
	v.SetDefault("custom_items.dsn", "data/custom_items.db")

	// 解析佇列
	v.SetDefault("resolution.cooldown", "2s")
	v.SetDefault("resolution.session_ttl", "2h")
	v.SetDefault("resolution.backoff_base", "3s")
	v.SetDefault("resolution.recognition_max_retries", 5)
	v.SetDefault("resolution.recognition_timeout", "60s")
	v.SetDefault("resolution.lookup_max_retries", 5)
	v.SetDefault("resolution.lookup_timeout", "30s")
	v.SetDefault("resolution.catalog_candidate_limit", 30)
	v.SetDefault("resolution.external_candidate_limit", 5)

	// 評分常數
	v.SetDefault("matching.exact", 100)
	v.SetDefault("matching.catalog_prefix", 80)
	v.SetDefault("matching.search_prefix", 75)
	v.SetDefault("matching.catalog_contains", 60)
	v.SetDefault("matching.search_contains", 40)

	v.SetDefault("log_level", "info")
}

func validateConfig(config *Config) error {
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	if config.OpenRouter.Enabled && config.OpenRouter.APIKey == "" {
		return fmt.Errorf("openrouter api key is required when openrouter is enabled")
	}

	if config.Cache.Enabled {
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	if config.RateLimit.Enabled && (config.RateLimit.Requests <= 0 || config.RateLimit.Window <= 0) {
		return fmt.Errorf("invalid rate limit")
	}

	r := config.Resolution
	if r.Cooldown <= 0 {
		return fmt.Errorf("resolution cooldown must be positive")
	}
	if r.BackoffBase <= 0 {
		return fmt.Errorf("resolution backoff base must be positive")
	}
	if r.RecognitionMaxRetries < 0 || r.LookupMaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative")
	}
	if r.RecognitionTimeout <= 0 || r.LookupTimeout <= 0 {
		return fmt.Errorf("call timeouts must be positive")
	}
	if r.ExternalCandidateLimit <= 0 || r.CatalogCandidateLimit <= 0 {
		return fmt.Errorf("candidate limits must be positive")
	}

	m := config.Matching
	if !(m.Exact > m.CatalogPrefix && m.CatalogPrefix > m.SearchPrefix &&
		m.SearchPrefix > m.CatalogContains && m.CatalogContains > m.SearchContains && m.SearchContains > 0) {
		return fmt.Errorf("matching scores must be strictly decreasing and positive")
	}

	return nil
}
