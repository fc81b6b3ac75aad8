package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Environment
	IsProd bool `json:"is_prod"`

	// Backend REST API
	API APIConfig `json:"api"`

	// Realtime alert stream
	Stream StreamConfig `json:"stream"`

	// Polling fallback
	Poll PollConfig `json:"poll"`

	// Notification dispatch
	Notify NotifyConfig `json:"notify"`

	// Discord push channel
	Discord DiscordConfig `json:"discord"`

	// Telegram push channel
	Telegram TelegramConfig `json:"telegram"`

	// Health server
	HealthServer HealthServerConfig `json:"health_server"`
}

// APIConfig holds backend REST API configuration.
type APIConfig struct {
	BaseURL string `json:"base_url"`
}

// StreamConfig holds realtime stream configuration.
type StreamConfig struct {
	URL                  string        `json:"url"`
	PingInterval         time.Duration `json:"ping_interval"`
	ReconnectDelay       time.Duration `json:"reconnect_delay"`
	MaxReconnectAttempts int           `json:"max_reconnect_attempts"`
}

// PollConfig holds polling fallback configuration. The poller runs only
// while the stream is down; alerts and stats refresh on the short
// interval, backend notifications on the long one.
type PollConfig struct {
	AlertsInterval        time.Duration `json:"alerts_interval"`
	NotificationsInterval time.Duration `json:"notifications_interval"`
	AlertLimit            int           `json:"alert_limit"`
}

// NotifyConfig bounds the dispatcher's in-memory state.
type NotifyConfig struct {
	HistorySize int `json:"history_size"`
	QueueSize   int `json:"queue_size"`
}

// DiscordConfig holds Discord-related configuration.
type DiscordConfig struct {
	BotToken      string `json:"-"` // Excluded - env var only
	ProdChannelID string `json:"prod_channel_id"`
	BetaChannelID string `json:"beta_channel_id"`
}

// TelegramConfig holds Telegram-related configuration.
type TelegramConfig struct {
	BotToken   string `json:"-"` // Excluded - env var only
	ProdChatID string `json:"prod_chat_id"`
	BetaChatID string `json:"beta_chat_id"`
}

// HealthServerConfig holds health check server configuration.
type HealthServerConfig struct {
	Enabled bool `json:"enabled"`
	Port    int  `json:"port"`
}

// Clone creates a deep copy of the config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// ToJSON serializes the config to JSON.
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// ConfigFromJSON deserializes JSON into a config, merging with base.
func ConfigFromJSON(data []byte, base *Config) (*Config, error) {
	if base == nil {
		base = Defaults()
	}
	cfg := base.Clone()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults returns a config with hardcoded default values.
func Defaults() *Config {
	return &Config{
		IsProd: false,
		API: APIConfig{
			BaseURL: "http://localhost:5000",
		},
		Stream: StreamConfig{
			URL:                  "ws://localhost:5000/stream",
			PingInterval:         30 * time.Second,
			ReconnectDelay:       5 * time.Second,
			MaxReconnectAttempts: 5,
		},
		Poll: PollConfig{
			AlertsInterval:        5 * time.Second,
			NotificationsInterval: 10 * time.Second,
			AlertLimit:            50,
		},
		Notify: NotifyConfig{
			HistorySize: 50,
			QueueSize:   10,
		},
		Discord:  DiscordConfig{},
		Telegram: TelegramConfig{},
		HealthServer: HealthServerConfig{
			Enabled: true,
			Port:    8080,
		},
	}
}

// Load loads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		IsProd: envBool("STAGE", "PROD"),

		API: APIConfig{
			BaseURL: envString("FRAUDSHIELD_API_URL", "http://localhost:5000"),
		},

		Stream: StreamConfig{
			URL:                  envString("FRAUDSHIELD_STREAM_URL", "ws://localhost:5000/stream"),
			PingInterval:         envDuration("STREAM_PING_INTERVAL", 30*time.Second),
			ReconnectDelay:       envDuration("STREAM_RECONNECT_DELAY", 5*time.Second),
			MaxReconnectAttempts: envInt("STREAM_MAX_RECONNECT_ATTEMPTS", 5),
		},

		Poll: PollConfig{
			AlertsInterval:        envDuration("POLL_ALERTS_INTERVAL", 5*time.Second),
			NotificationsInterval: envDuration("POLL_NOTIFICATIONS_INTERVAL", 10*time.Second),
			AlertLimit:            envInt("POLL_ALERT_LIMIT", 50),
		},

		Notify: NotifyConfig{
			HistorySize: envInt("NOTIFY_HISTORY_SIZE", 50),
			QueueSize:   envInt("NOTIFY_QUEUE_SIZE", 10),
		},

		Discord: DiscordConfig{
			BotToken:      envString("DISCORD_BOT_TOKEN", ""),
			ProdChannelID: envString("DISCORD_PROD_CHANNEL_ID", ""),
			BetaChannelID: envString("DISCORD_BETA_CHANNEL_ID", ""),
		},

		Telegram: TelegramConfig{
			BotToken:   envString("TELEGRAM_BOT_KEY", ""),
			ProdChatID: envString("TELEGRAM_PROD_CHAT_ID", ""),
			BetaChatID: envString("TELEGRAM_BETA_CHAT_ID", ""),
		},

		HealthServer: HealthServerConfig{
			Enabled: envBoolDefault("HEALTH_SERVER_ENABLED", true),
			Port:    envInt("HEALTH_SERVER_PORT", 8080),
		},
	}
}

// Helper functions for parsing environment variables

func envString(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func envBool(key, trueValue string) bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv(key)), trueValue)
}

func envBoolDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	return strings.EqualFold(v, "true") || strings.EqualFold(v, "1") || strings.EqualFold(v, "yes")
}
