package discord

import (
	"fmt"
	"time"

	"fraudshield/clients/notify"
	"fraudshield/config"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// DiscordClient delivers fraud alert push notifications to a Discord
// channel. Implements notify.PushSink.
type DiscordClient struct {
	logger    *zap.Logger
	session   *discordgo.Session
	channelID string
	isProd    bool
}

func NewDiscordClient(logger *zap.Logger, cfg *config.Config) *DiscordClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	channelID := cfg.Discord.BetaChannelID
	if cfg.IsProd {
		channelID = cfg.Discord.ProdChannelID
	}

	token := cfg.Discord.BotToken
	if token == "" {
		logger.Warn("DISCORD_BOT_TOKEN not set, Discord alerts disabled")
		return &DiscordClient{
			logger:    logger,
			channelID: channelID,
			isProd:    cfg.IsProd,
		}
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		logger.Error("failed to create discord session", zap.Error(err))
		return &DiscordClient{
			logger:    logger,
			channelID: channelID,
			isProd:    cfg.IsProd,
		}
	}

	logger.Info("discord bot initialized",
		zap.Bool("isProd", cfg.IsProd),
		zap.String("channelID", channelID),
	)

	return &DiscordClient{
		logger:    logger,
		session:   session,
		channelID: channelID,
		isProd:    cfg.IsProd,
	}
}

// Enabled reports whether the sink has a usable session.
func (dc *DiscordClient) Enabled() bool {
	return dc.session != nil && dc.channelID != ""
}

// Push sends a rich embed for the alert. Implements notify.PushSink.
func (dc *DiscordClient) Push(n notify.PushNotification) error {
	if !dc.Enabled() {
		dc.logger.Warn("discord session not initialized, skipping push")
		return nil
	}

	embed := dc.buildAlertEmbed(n)

	if _, err := dc.session.ChannelMessageSendEmbed(dc.channelID, embed); err != nil {
		return fmt.Errorf("send discord embed: %w", err)
	}

	dc.logger.Info("sent discord alert",
		zap.String("tag", n.Tag),
		zap.String("severity", string(n.Severity)),
	)
	return nil
}

func (dc *DiscordClient) buildAlertEmbed(n notify.PushNotification) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{
			Name:   "Severity",
			Value:  fmt.Sprintf("%s %s", severityEmoji(n.Severity), string(n.Severity)),
			Inline: true,
		},
		{
			Name:   "Risk Score",
			Value:  fmt.Sprintf("%.1f / 10", n.RiskScore),
			Inline: true,
		},
	}
	if n.RequireInteraction {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Action",
			Value:  "Requires review",
			Inline: true,
		})
	}

	ts := n.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s %s", severityEmoji(n.Severity), n.Title),
		Description: n.Body,
		Color:       severityColor(n.Severity),
		Fields:      fields,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("fraudshield * %s", n.Tag),
		},
		Timestamp: ts.Format(time.RFC3339),
	}
}

func severityColor(s notify.Severity) int {
	switch s {
	case notify.SeverityCritical:
		return 0xE74C3C // red
	case notify.SeverityHigh:
		return 0xE67E22 // orange
	case notify.SeverityMedium:
		return 0xF1C40F // yellow
	case notify.SeverityLow:
		return 0x95A5A6 // gray
	case notify.SeveritySuccess:
		return 0x2ECC71 // green
	case notify.SeverityError:
		return 0x992D22 // dark red
	default:
		return 0xF1C40F
	}
}

func severityEmoji(s notify.Severity) string {
	switch s {
	case notify.SeverityCritical:
		return "🚨"
	case notify.SeverityHigh:
		return "⚠️"
	case notify.SeverityMedium:
		return "🔶"
	case notify.SeverityLow:
		return "ℹ️"
	case notify.SeveritySuccess:
		return "✅"
	case notify.SeverityError:
		return "❌"
	default:
		return "🔶"
	}
}

// Close closes the Discord session.
func (dc *DiscordClient) Close() error {
	if dc.session != nil {
		return dc.session.Close()
	}
	return nil
}
