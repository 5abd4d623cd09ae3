package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/bogdan-lmk/twsignals/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Server   ServerConfig   `mapstructure:"server"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Dedup    DedupConfig    `mapstructure:"dedup"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name  string `mapstructure:"name"`
	Debug bool   `mapstructure:"debug"`
}

// ServerConfig governs the inbound HTTP listener.
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ResponseBudget time.Duration `mapstructure:"response_budget"`
}

// WebhookConfig covers inbound request authentication.
type WebhookConfig struct {
	Secret string `mapstructure:"secret"`
	// VerifySignature gates the HMAC check on the hot path. Off by
	// default because TradingView cannot send custom headers.
	VerifySignature bool `mapstructure:"verify_signature"`
}

// TelegramConfig captures Bot API connectivity and retry behaviour.
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	APIBase        string        `mapstructure:"api_base"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RetryAttempts  int           `mapstructure:"retry_attempts"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	RetryBackoff   float64       `mapstructure:"retry_backoff"`
	MessagesPerSec int           `mapstructure:"messages_per_sec"`
}

// DedupConfig tunes duplicate suppression.
type DedupConfig struct {
	TTL              time.Duration `mapstructure:"ttl"`
	CleanupThreshold int           `mapstructure:"cleanup_threshold"`
}

// DispatchConfig sizes the background delivery pool.
type DispatchConfig struct {
	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queue_size"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TWSIGNALS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Secrets carry no defaults, so viper's Unmarshal never consults
	// the environment for them unless they are bound explicitly
	// (spf13/viper#761).
	for _, key := range []string{"telegram.bot_token", "telegram.chat_id", "webhook.secret"} {
		_ = v.BindEnv(key)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "twsignals")
	v.SetDefault("app.debug", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.response_budget", "150ms")

	v.SetDefault("webhook.verify_signature", false)

	v.SetDefault("telegram.api_base", "https://api.telegram.org")
	v.SetDefault("telegram.timeout", "10s")
	v.SetDefault("telegram.retry_attempts", 3)
	v.SetDefault("telegram.retry_delay", "1s")
	v.SetDefault("telegram.retry_backoff", 2.0)
	v.SetDefault("telegram.messages_per_sec", 30)

	v.SetDefault("dedup.ttl", "300s")
	v.SetDefault("dedup.cleanup_threshold", 100)

	v.SetDefault("dispatch.workers", 4)
	v.SetDefault("dispatch.queue_size", 256)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
// Missing delivery credentials fail process startup.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token must be configured")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id must be configured")
	}
	if !strings.HasPrefix(c.Telegram.ChatID, "@") {
		trimmed := strings.TrimPrefix(c.Telegram.ChatID, "-")
		for _, r := range trimmed {
			if r < '0' || r > '9' {
				return fmt.Errorf("telegram.chat_id must be numeric or start with @")
			}
		}
	}
	if c.Telegram.RetryAttempts < 0 || c.Telegram.RetryAttempts > 10 {
		return fmt.Errorf("telegram.retry_attempts must be between 0 and 10")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port")
	}
	if c.Dedup.TTL <= 0 {
		return fmt.Errorf("dedup.ttl must be greater than zero")
	}
	if c.Webhook.VerifySignature && c.Webhook.Secret == "" {
		return fmt.Errorf("webhook.secret must be configured when webhook.verify_signature is enabled")
	}
	return nil
}

// ListenAddr returns the host:port pair for the HTTP listener.
func (c *ServerConfig) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
