package discord

import (
	"testing"
	"time"

	"fraudshield/clients/notify"
	"fraudshield/config"

	"go.uber.org/zap"
)

func TestNewDiscordClient_NoToken(t *testing.T) {
	cfg := &config.Config{
		IsProd: false,
		Discord: config.DiscordConfig{
			BotToken:      "",
			ProdChannelID: "prod-channel",
			BetaChannelID: "beta-channel",
		},
	}

	client := NewDiscordClient(zap.NewNop(), cfg)

	if client.session != nil {
		t.Error("expected nil session when no token provided")
	}
	if client.channelID != "beta-channel" {
		t.Errorf("expected beta channel, got: %s", client.channelID)
	}
	if client.Enabled() {
		t.Error("expected sink to be disabled without a token")
	}
}

func TestNewDiscordClient_ProdChannel(t *testing.T) {
	cfg := &config.Config{
		IsProd: true,
		Discord: config.DiscordConfig{
			BotToken:      "",
			ProdChannelID: "prod-channel",
			BetaChannelID: "beta-channel",
		},
	}

	client := NewDiscordClient(nil, cfg)

	if client.channelID != "prod-channel" {
		t.Errorf("expected prod channel, got: %s", client.channelID)
	}
	if !client.isProd {
		t.Error("expected isProd to be true")
	}
}

func TestNewDiscordClient_BetaChannel(t *testing.T) {
	cfg := &config.Config{
		IsProd: false,
		Discord: config.DiscordConfig{
			BotToken:      "",
			ProdChannelID: "prod-channel",
			BetaChannelID: "beta-channel",
		},
	}

	client := NewDiscordClient(nil, cfg)

	if client.channelID != "beta-channel" {
		t.Errorf("expected beta channel, got: %s", client.channelID)
	}
}

func TestPush_NoSession(t *testing.T) {
	client := &DiscordClient{
		logger:  zap.NewNop(),
		session: nil,
	}

	n := notify.PushNotification{
		Tag:      "alert-1",
		Title:    "New Fraud Alert",
		Severity: notify.SeverityHigh,
	}

	// Unconfigured sink drops the notification without error.
	if err := client.Push(n); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBuildAlertEmbed_Critical(t *testing.T) {
	client := &DiscordClient{
		logger: zap.NewNop(),
	}

	n := notify.PushNotification{
		Tag:                "alert-42",
		Title:              "Critical Fraud Alert",
		Body:               "Risk Score: 9.5 - Coordinated bot network (twitter)",
		Severity:           notify.SeverityCritical,
		RiskScore:          9.5,
		RequireInteraction: true,
		Timestamp:          time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC),
	}

	embed := client.buildAlertEmbed(n)

	if embed.Color != 0xE74C3C {
		t.Errorf("unexpected color for critical: %d", embed.Color)
	}
	if embed.Description != n.Body {
		t.Errorf("unexpected description: %q", embed.Description)
	}
	if len(embed.Fields) != 3 {
		t.Errorf("expected 3 fields, got %d", len(embed.Fields))
	}

	var foundScore bool
	for _, field := range embed.Fields {
		if field.Name == "Risk Score" && field.Value == "9.5 / 10" {
			foundScore = true
		}
	}
	if !foundScore {
		t.Error("expected formatted risk score field")
	}

	if embed.Timestamp != "2026-03-15T10:30:00Z" {
		t.Errorf("unexpected timestamp: %s", embed.Timestamp)
	}
}

func TestBuildAlertEmbed_NoInteractionField(t *testing.T) {
	client := &DiscordClient{
		logger: zap.NewNop(),
	}

	n := notify.PushNotification{
		Tag:       "alert-7",
		Title:     "New Fraud Alert",
		Severity:  notify.SeverityMedium,
		RiskScore: 5.5,
	}

	embed := client.buildAlertEmbed(n)

	if len(embed.Fields) != 2 {
		t.Errorf("expected 2 fields without interaction, got %d", len(embed.Fields))
	}
	if embed.Color != 0xF1C40F {
		t.Errorf("unexpected color for medium: %d", embed.Color)
	}
}

func TestBuildAlertEmbed_FooterCarriesTag(t *testing.T) {
	client := &DiscordClient{
		logger: zap.NewNop(),
	}

	n := notify.PushNotification{
		Tag:      "alert-99",
		Title:    "New Fraud Alert",
		Severity: notify.SeverityHigh,
	}

	embed := client.buildAlertEmbed(n)

	if embed.Footer == nil {
		t.Fatal("expected footer to be set")
	}
	if embed.Footer.Text != "fraudshield * alert-99" {
		t.Errorf("unexpected footer: %s", embed.Footer.Text)
	}
}

func TestBuildAlertEmbed_ZeroTimestamp(t *testing.T) {
	client := &DiscordClient{
		logger: zap.NewNop(),
	}

	n := notify.PushNotification{
		Tag:      "alert-1",
		Title:    "New Fraud Alert",
		Severity: notify.SeverityLow,
	}

	embed := client.buildAlertEmbed(n)

	if embed.Timestamp == "" {
		t.Error("expected non-empty timestamp")
	}
}

func TestSeverityColor(t *testing.T) {
	tests := []struct {
		severity notify.Severity
		expected int
	}{
		{notify.SeverityCritical, 0xE74C3C},
		{notify.SeverityHigh, 0xE67E22},
		{notify.SeverityMedium, 0xF1C40F},
		{notify.SeverityLow, 0x95A5A6},
		{notify.SeveritySuccess, 0x2ECC71},
		{notify.SeverityError, 0x992D22},
		{notify.Severity("bogus"), 0xF1C40F},
	}

	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			if got := severityColor(tt.severity); got != tt.expected {
				t.Errorf("severityColor(%s) = %#x, want %#x", tt.severity, got, tt.expected)
			}
		})
	}
}

func TestClose_NoSession(t *testing.T) {
	client := &DiscordClient{
		logger:  zap.NewNop(),
		session: nil,
	}

	if err := client.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
