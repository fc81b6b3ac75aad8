package telegram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fraudshield/clients/notify"
	"fraudshield/config"

	"go.uber.org/zap"
)

const telegramAPIURL = "https://api.telegram.org/bot%s/%s"

// TelegramClient delivers fraud alert push notifications to a Telegram
// chat via the Bot API. Implements notify.PushSink.
type TelegramClient struct {
	logger     *zap.Logger
	httpClient *http.Client
	botToken   string
	chatID     string
	isProd     bool
}

func NewTelegramClient(logger *zap.Logger, cfg *config.Config) *TelegramClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	chatID := cfg.Telegram.BetaChatID
	if cfg.IsProd {
		chatID = cfg.Telegram.ProdChatID
	}

	if cfg.Telegram.BotToken == "" {
		logger.Warn("TELEGRAM_BOT_KEY not set, Telegram alerts disabled")
	} else {
		logger.Info("telegram bot initialized",
			zap.Bool("isProd", cfg.IsProd),
			zap.String("chatID", chatID),
		)
	}

	return &TelegramClient{
		logger: logger,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		botToken: cfg.Telegram.BotToken,
		chatID:   chatID,
		isProd:   cfg.IsProd,
	}
}

// Enabled reports whether the sink is configured to send messages.
func (tc *TelegramClient) Enabled() bool {
	return tc.botToken != "" && tc.chatID != ""
}

// Push sends a formatted alert message. Implements notify.PushSink.
func (tc *TelegramClient) Push(n notify.PushNotification) error {
	if !tc.Enabled() {
		tc.logger.Warn("telegram not configured, skipping push")
		return nil
	}

	if err := tc.sendMessage(formatAlertMessage(n)); err != nil {
		return fmt.Errorf("send telegram alert: %w", err)
	}

	tc.logger.Info("sent telegram alert",
		zap.String("tag", n.Tag),
		zap.String("severity", string(n.Severity)),
	)
	return nil
}

func formatAlertMessage(n notify.PushNotification) string {
	var sb strings.Builder

	if n.Severity == notify.SeverityCritical {
		sb.WriteString("🚨 *")
	} else {
		sb.WriteString("⚠️ *")
	}
	sb.WriteString(escapeMarkdown(n.Title))
	sb.WriteString("*\n\n")
	sb.WriteString(escapeMarkdown(n.Body))
	sb.WriteString(fmt.Sprintf("\n\nRisk Score: *%.1f / 10*", n.RiskScore))
	if n.RequireInteraction {
		sb.WriteString("\n_Requires review_")
	}

	return sb.String()
}

func (tc *TelegramClient) sendMessage(text string) error {
	url := fmt.Sprintf(telegramAPIURL, tc.botToken, "sendMessage")

	payload := map[string]interface{}{
		"chat_id":    tc.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := tc.httpClient.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram api status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// escapeMarkdown escapes characters that break Telegram's Markdown
// parse mode.
func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"`", "\\`",
	)
	return replacer.Replace(s)
}

// Close is a no-op; the HTTP client has no persistent connection state
// worth tearing down.
func (tc *TelegramClient) Close() error {
	return nil
}
