package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	HTTP     HTTPConfig     `yaml:"http"`
	TikTok   TikTokConfig   `yaml:"tiktok"`
	Twitter  TwitterConfig  `yaml:"twitter"`
	Reddit   RedditConfig   `yaml:"reddit"`
	Telegram TelegramConfig `yaml:"telegram"`
	Delivery DeliveryConfig `yaml:"delivery"`
	History  HistoryConfig  `yaml:"history"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `yaml:"host" envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port         int           `yaml:"port" envconfig:"SERVER_PORT" default:"8715"`
	APIKey       string        `yaml:"api_key" envconfig:"API_KEY"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT" default:"2m"`
}

// HTTPConfig holds shared outbound HTTP settings. The timeout here is the
// single overall timeout every upstream call inherits.
type HTTPConfig struct {
	Timeout   time.Duration `yaml:"timeout" envconfig:"HTTP_TIMEOUT" default:"30s"`
	UserAgent string        `yaml:"user_agent" envconfig:"HTTP_USER_AGENT" default:"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36"`
}

// TikTokConfig holds the short-form video lookup API settings.
type TikTokConfig struct {
	APIBaseURL   string `yaml:"api_base_url" envconfig:"TIKTOK_API_URL" default:"https://tikwm.com/api/"`
	PageFallback bool   `yaml:"page_fallback" envconfig:"TIKTOK_PAGE_FALLBACK" default:"true"`
}

// TwitterConfig holds the tweet mirror API settings.
type TwitterConfig struct {
	APIBaseURL string `yaml:"api_base_url" envconfig:"TWITTER_API_URL" default:"https://api.vxtwitter.com"`
}

// RedditConfig holds the listing API settings plus optional OAuth
// password-grant credentials. When the credentials are incomplete the
// authenticated path reports a configuration failure instead of being used.
type RedditConfig struct {
	APIBaseURL   string `yaml:"api_base_url" envconfig:"REDDIT_API_URL" default:"https://www.reddit.com"`
	TokenURL     string `yaml:"token_url" envconfig:"REDDIT_TOKEN_URL" default:"https://www.reddit.com/api/v1/access_token"`
	ClientID     string `yaml:"client_id" envconfig:"REDDIT_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" envconfig:"REDDIT_CLIENT_SECRET"`
	Username     string `yaml:"username" envconfig:"REDDIT_USERNAME"`
	Password     string `yaml:"password" envconfig:"REDDIT_PASSWORD"`
	UseOAuth     bool   `yaml:"use_oauth" envconfig:"REDDIT_USE_OAUTH"`
}

// HasCredentials reports whether every field of the OAuth credential set
// is present.
func (c RedditConfig) HasCredentials() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.Username != "" && c.Password != "" && c.TokenURL != ""
}

// TelegramConfig holds MTProto client credentials and the scratch
// directory downloads land in before delivery.
type TelegramConfig struct {
	AppID       int    `yaml:"app_id" envconfig:"TELEGRAM_APP_ID"`
	AppHash     string `yaml:"app_hash" envconfig:"TELEGRAM_APP_HASH"`
	SessionFile string `yaml:"session_file" envconfig:"TELEGRAM_SESSION_FILE" default:"telegram.session"`
	ScratchDir  string `yaml:"scratch_dir" envconfig:"TELEGRAM_SCRATCH_DIR" default:""`
}

// HasCredentials reports whether the MTProto credential set is present.
func (c TelegramConfig) HasCredentials() bool {
	return c.AppID != 0 && c.AppHash != "" && c.SessionFile != ""
}

// DeliveryConfig holds the Bot API settings for pushing resolved media
// to a chat. Delivery stays disabled without a token.
type DeliveryConfig struct {
	BotToken   string `yaml:"bot_token" envconfig:"DELIVERY_BOT_TOKEN"`
	APIBaseURL string `yaml:"api_base_url" envconfig:"DELIVERY_API_URL" default:"https://api.telegram.org"`
	ChatID     string `yaml:"chat_id" envconfig:"DELIVERY_CHAT_ID"`
}

// Enabled reports whether delivery is configured.
func (c DeliveryConfig) Enabled() bool {
	return c.BotToken != "" && c.ChatID != ""
}

// HistoryConfig holds the resolve-history audit log settings.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"HISTORY_ENABLED" default:"true"`
	DBPath  string `yaml:"db_path" envconfig:"HISTORY_DB_PATH" default:"clipfetch.db"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Load from YAML file if provided
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Override with environment variables
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.Server.APIKey == "" {
		return fmt.Errorf("API_KEY is required")
	}
	if c.TikTok.APIBaseURL == "" {
		return fmt.Errorf("TIKTOK_API_URL is required")
	}
	if c.Twitter.APIBaseURL == "" {
		return fmt.Errorf("TWITTER_API_URL is required")
	}
	if c.Reddit.APIBaseURL == "" {
		return fmt.Errorf("REDDIT_API_URL is required")
	}
	if c.Reddit.UseOAuth && !c.Reddit.HasCredentials() {
		return fmt.Errorf("REDDIT_USE_OAUTH is set but the credential set is incomplete")
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
