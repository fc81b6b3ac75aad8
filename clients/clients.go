package clients

import (
	"fraudshield/clients/alertstream"
	"fraudshield/clients/discord"
	"fraudshield/clients/fraudshieldapi"
	"fraudshield/clients/notify"
	"fraudshield/clients/telegram"
	"fraudshield/config"

	"go.uber.org/zap"
)

type Clients struct {
	Logger *zap.Logger

	API      *fraudshieldapi.Client
	Stream   *alertstream.Client
	Discord  *discord.DiscordClient
	Telegram *telegram.TelegramClient
	Push     *notify.MultiPush // Fan-out over all configured push sinks
}

func NewClients(logger *zap.Logger, cfg *config.Config) *Clients {
	discordClient := discord.NewDiscordClient(logger, cfg)
	telegramClient := telegram.NewTelegramClient(logger, cfg)

	// Fan out pushes to every channel that has credentials. Sinks
	// without credentials accept and drop, so wiring both is safe.
	multiPush := notify.NewMultiPush(logger, discordClient, telegramClient)

	return &Clients{
		Logger:   logger,
		API:      fraudshieldapi.NewClient(logger, cfg),
		Stream: alertstream.NewClient(logger, alertstream.Config{
			URL:                  cfg.Stream.URL,
			PingInterval:         cfg.Stream.PingInterval,
			ReconnectDelay:       cfg.Stream.ReconnectDelay,
			MaxReconnectAttempts: cfg.Stream.MaxReconnectAttempts,
		}),
		Discord:  discordClient,
		Telegram: telegramClient,
		Push:     multiPush,
	}
}

// Close tears down every client that holds a connection.
func (c *Clients) Close() {
	if c.Stream != nil {
		c.Stream.Close()
	}
	if c.Push != nil {
		if err := c.Push.Close(); err != nil && c.Logger != nil {
			c.Logger.Warn("failed to close push sinks", zap.Error(err))
		}
	}
}
