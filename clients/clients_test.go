package clients

import (
	"testing"
	"time"

	"fraudshield/config"

	"go.uber.org/zap"
)

func TestNewClients(t *testing.T) {
	cfg := &config.Config{
		API: config.APIConfig{
			BaseURL: "http://localhost:5000",
		},
		Stream: config.StreamConfig{
			URL:                  "ws://localhost:5000/stream",
			PingInterval:         30 * time.Second,
			ReconnectDelay:       5 * time.Second,
			MaxReconnectAttempts: 5,
		},
		Discord: config.DiscordConfig{
			BotToken:      "",
			ProdChannelID: "prod",
			BetaChannelID: "beta",
		},
		Telegram: config.TelegramConfig{
			BotToken:   "",
			ProdChatID: "prod",
			BetaChatID: "beta",
		},
	}

	logger := zap.NewNop()
	c := NewClients(logger, cfg)

	if c.Logger != logger {
		t.Error("unexpected logger")
	}
	if c.API == nil {
		t.Error("expected API client to be set")
	}
	if c.Stream == nil {
		t.Error("expected stream client to be set")
	}
	if c.Discord == nil {
		t.Error("expected Discord client to be set")
	}
	if c.Telegram == nil {
		t.Error("expected Telegram client to be set")
	}
	if c.Push == nil {
		t.Error("expected push fan-out to be set")
	}
	if c.Push.Count() != 2 {
		t.Errorf("expected 2 push sinks, got %d", c.Push.Count())
	}
}

func TestNewClients_NilLogger(t *testing.T) {
	cfg := config.Defaults()

	c := NewClients(nil, cfg)

	if c.Logger != nil {
		t.Error("expected nil logger to remain nil")
	}
	if c.API == nil {
		t.Error("expected API client to be set")
	}
	if c.Stream == nil {
		t.Error("expected stream client to be set")
	}
}

func TestClients_Close(t *testing.T) {
	c := NewClients(zap.NewNop(), config.Defaults())

	// No connections were opened; Close must still be safe.
	c.Close()
	c.Close()
}
