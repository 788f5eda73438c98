package config

import (
	"fmt"
	"os"
	"time"

	"github.com/Rrens/flexy-chat/internal/realtime"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

var validate = validator.New()

// Config holds all application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Backend BackendConfig `mapstructure:"backend"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Chat    ChatConfig    `mapstructure:"chat"`
	Store   StoreConfig   `mapstructure:"store"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Upload  UploadConfig  `mapstructure:"upload"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type ServerConfig struct {
	Host         string          `mapstructure:"host"`
	Port         int             `mapstructure:"port" validate:"gte=1,lte=65535"`
	ReadTimeout  time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout time.Duration   `mapstructure:"write_timeout"`
	CORSOrigins  []string        `mapstructure:"cors_origins"`
	RateLimit    RateLimitConfig `mapstructure:"rate_limit"`
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// BackendConfig points at the analytics backend
type BackendConfig struct {
	APIURL      string        `mapstructure:"api_url" validate:"required,url"`
	WSURL       string        `mapstructure:"ws_url" validate:"required,url"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

type AuthConfig struct {
	// JWTSecret signs tokens for the local API. Empty disables local auth.
	JWTSecret      string        `mapstructure:"jwt_secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	// StoreSecret derives the key sealing the backend token at rest
	StoreSecret  string        `mapstructure:"store_secret" validate:"required"`
	ExpiryLeeway time.Duration `mapstructure:"expiry_leeway"`
	DevFallback  bool          `mapstructure:"dev_fallback"`
}

type ChatConfig struct {
	WorkspaceID        int64           `mapstructure:"workspace_id"`
	HistoryLimit       int             `mapstructure:"history_limit" validate:"gt=0"`
	DegradedReplyDelay time.Duration   `mapstructure:"degraded_reply_delay"`
	Policy             realtime.Policy `mapstructure:"policy"`
}

type StoreConfig struct {
	Path      string        `mapstructure:"path" validate:"required"`
	Retention time.Duration `mapstructure:"retention"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute" validate:"gte=0"`
	Burst             int `mapstructure:"burst" validate:"gte=0"`
}

type UploadConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	PollTimeout  time.Duration `mapstructure:"poll_timeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=trace debug info warn error"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=json console"`
	// File enables a rotating log file when set
	File     string        `mapstructure:"file"`
	MaxAge   time.Duration `mapstructure:"max_age"`
	Rotation time.Duration `mapstructure:"rotation"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.rate_limit.requests_per_minute", 120)
	v.SetDefault("server.rate_limit.burst", 20)

	// Backend
	v.SetDefault("backend.api_url", "http://localhost:8000/api/v1")
	v.SetDefault("backend.ws_url", "ws://localhost:8000/ws")
	v.SetDefault("backend.http_timeout", "30s")

	// Auth
	v.SetDefault("auth.access_token_ttl", "1h")
	v.SetDefault("auth.store_secret", "flexy-local-store")
	v.SetDefault("auth.expiry_leeway", "30s")
	v.SetDefault("auth.dev_fallback", false)

	// Chat
	policy := realtime.DefaultPolicy()
	v.SetDefault("chat.history_limit", 200)
	v.SetDefault("chat.degraded_reply_delay", "1s")
	v.SetDefault("chat.policy.max_attempts", policy.MaxAttempts)
	v.SetDefault("chat.policy.immediate_close_threshold", policy.ImmediateCloseThreshold)
	v.SetDefault("chat.policy.backoff_base", policy.BackoffBase)
	v.SetDefault("chat.policy.reconnect_delay", policy.ReconnectDelay)
	v.SetDefault("chat.policy.dial_timeout", policy.DialTimeout)
	v.SetDefault("chat.policy.write_timeout", policy.WriteTimeout)
	v.SetDefault("chat.policy.write_buffer", policy.WriteBuffer)

	// Store
	v.SetDefault("store.path", "./data/flexy.db")
	v.SetDefault("store.retention", "720h") // 30 days

	// Redis
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cache_ttl", "5m")

	// Upload
	v.SetDefault("upload.poll_interval", "1s")
	v.SetDefault("upload.poll_timeout", "5m")

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.max_age", "168h")
	v.SetDefault("logging.rotation", "24h")
}

func bindEnvVars(v *viper.Viper) {
	// Backend
	v.BindEnv("backend.api_url", "FLEXY_API_URL")
	v.BindEnv("backend.ws_url", "FLEXY_WS_URL")

	// Redis
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Auth
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("auth.store_secret", "FLEXY_STORE_SECRET")

	// Store
	v.BindEnv("store.path", "FLEXY_STORE_PATH")

	// Logging
	v.BindEnv("logging.level", "LOG_LEVEL")
}
