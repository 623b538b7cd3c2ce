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

// ErrMissingAPIKey is returned when no provider credential can be resolved.
var ErrMissingAPIKey = errors.New("API key is missing, set OPENAI_API_KEY")

// Environment variables checked for the provider credential, in order.
var apiKeyEnvVars = []string{"OPENAI_API_KEY", "NEXT_PUBLIC_OPENAI_API_KEY"}

// Config represents the application configuration.
// It is resolved once at startup and must not be mutated afterwards.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Security SecurityConfig `mapstructure:"security"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Retry    RetryConfig    `mapstructure:"retry"`

	// 内置配置，不暴露在配置文件
	Generation GenerationConfig `mapstructure:"-"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type SecurityConfig struct {
	EnableCORS     bool     `mapstructure:"enable_cors"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LoggingConfig struct {
	Level         string `mapstructure:"level"`
	Output        string `mapstructure:"output"`
	ConsoleOutput bool   `mapstructure:"console_output"`
	MaxSize       int    `mapstructure:"max_size"`
	MaxBackups    int    `mapstructure:"max_backups"`
	MaxAge        int    `mapstructure:"max_age"`
	Compress      bool   `mapstructure:"compress"`
}

// UpstreamConfig describes the completion provider.
type UpstreamConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RetryConfig controls the resilient relay loop. MaxAttempts and BaseDelay
// are built in; only BackoffOnError can be switched from the config file.
type RetryConfig struct {
	MaxAttempts    int           `mapstructure:"-"`
	BaseDelay      time.Duration `mapstructure:"-"`
	BackoffOnError bool          `mapstructure:"backoff_on_error"`
}

// GenerationConfig holds the fixed sampling parameters sent by the resilient relay.
type GenerationConfig struct {
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// Load loads the configuration from viper, the environment and an optional .env file.
func Load() (*Config, error) {
	// .env 文件可选
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Upstream.APIKey == "" {
		cfg.Upstream.APIKey = lookupAPIKey()
	}

	SetDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func lookupAPIKey() string {
	for _, name := range apiKeyEnvVars {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}

// SetDefaults fills every unset field, and always overwrites the built-in ones.
func SetDefaults(cfg *Config) {
	// 服务器配置
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3000
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		// long enough for five attempts plus backoff
		cfg.Server.WriteTimeout = 10 * time.Minute
	}

	// 日志配置
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "logs/promptrelay.log"
	}
	cfg.Logging.ConsoleOutput = true
	if cfg.Logging.MaxSize == 0 {
		cfg.Logging.MaxSize = 100
	}
	if cfg.Logging.MaxBackups == 0 {
		cfg.Logging.MaxBackups = 10
	}
	if cfg.Logging.MaxAge == 0 {
		cfg.Logging.MaxAge = 30
	}

	if len(cfg.Security.AllowedOrigins) == 0 {
		cfg.Security.AllowedOrigins = []string{"*"}
	}

	// 上游配置
	if cfg.Upstream.BaseURL == "" {
		cfg.Upstream.BaseURL = "https://api.openai.com/v1"
	}
	cfg.Upstream.BaseURL = strings.TrimRight(cfg.Upstream.BaseURL, "/")
	if cfg.Upstream.Model == "" {
		cfg.Upstream.Model = "gpt-3.5-turbo"
	}
	if cfg.Upstream.Timeout == 0 {
		cfg.Upstream.Timeout = 120 * time.Second
	}

	cfg.Retry.MaxAttempts = 5
	cfg.Retry.BaseDelay = time.Second

	cfg.Generation = GenerationConfig{
		Temperature: 1,
		TopP:        0.95,
		MaxTokens:   8192,
	}
}

// Validate reports the first configuration problem found.
func Validate(cfg *Config) error {
	if cfg.Upstream.APIKey == "" {
		return ErrMissingAPIKey
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Server.Port)
	}
	if cfg.Retry.MaxAttempts < 1 {
		return fmt.Errorf("invalid max attempts: %d", cfg.Retry.MaxAttempts)
	}
	return nil
}
