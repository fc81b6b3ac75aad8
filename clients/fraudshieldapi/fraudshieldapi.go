package fraudshieldapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"fraudshield/clients/notify"
	"fraudshield/config"

	"go.uber.org/zap"
)

// Client talks to the dashboard backend's REST surface. It serves two
// purposes: loading and saving alert preferences, and polling alerts,
// stats, and notifications when the realtime stream is unavailable.
type Client struct {
	logger     *zap.Logger
	httpClient *http.Client
	baseURL    string
}

// NewClient creates an API client from the shared configuration.
func NewClient(logger *zap.Logger, cfg *config.Config) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		logger: logger,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: cfg.API.BaseURL,
	}
}

// AlertsResponse is the wire shape of the alert list endpoint. The
// counts are computed server-side over the full set, not the returned
// page.
type AlertsResponse struct {
	Success       bool           `json:"success"`
	Alerts        []notify.Alert `json:"alerts"`
	TotalCount    int            `json:"total_count"`
	CriticalCount int            `json:"critical_count"`
	NewCount      int            `json:"new_count"`
}

// DashboardStats is the aggregate view shown on the dashboard header.
type DashboardStats struct {
	TotalAlerts        int     `json:"total_alerts"`
	CriticalAlerts     int     `json:"critical_alerts"`
	HighRiskContent    int     `json:"high_risk_content"`
	PlatformsMonitored int     `json:"platforms_monitored"`
	DetectionAccuracy  float64 `json:"detection_accuracy"`
	Trend              string  `json:"trend"`
	TrendPercentage    float64 `json:"trend_percentage"`
	LastUpdated        string  `json:"last_updated"`
}

type statsResponse struct {
	Success bool           `json:"success"`
	Stats   DashboardStats `json:"stats"`
}

// ServerNotification is a backend-authored notification from the
// notifications feed.
type ServerNotification struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	Read      bool   `json:"read"`
}

type notificationsResponse struct {
	Success       bool                 `json:"success"`
	Notifications []ServerNotification `json:"notifications"`
}

type preferencesResponse struct {
	Success     bool               `json:"success"`
	Preferences notify.Preferences `json:"preferences"`
}

type saveResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type simulateResponse struct {
	Success bool          `json:"success"`
	Alert   *notify.Alert `json:"alert"`
}

// GetAlerts fetches the current alert list with its aggregate counts.
func (c *Client) GetAlerts(ctx context.Context, limit int) (*AlertsResponse, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid baseURL: %w", err)
	}
	u.Path = "/api/realtime/alerts"

	if limit > 0 {
		q := u.Query()
		q.Set("limit", fmt.Sprintf("%d", limit))
		u.RawQuery = q.Encode()
	}

	var out AlertsResponse
	if err := c.doGet(ctx, u.String(), &out); err != nil {
		return nil, fmt.Errorf("get alerts: %w", err)
	}
	if !out.Success {
		return nil, fmt.Errorf("alerts endpoint reported failure")
	}
	return &out, nil
}

// GetStats fetches the dashboard statistics.
func (c *Client) GetStats(ctx context.Context) (*DashboardStats, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid baseURL: %w", err)
	}
	u.Path = "/api/realtime/stats"

	var out statsResponse
	if err := c.doGet(ctx, u.String(), &out); err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	if !out.Success {
		return nil, fmt.Errorf("stats endpoint reported failure")
	}
	return &out.Stats, nil
}

// GetNotifications fetches backend-authored notifications.
func (c *Client) GetNotifications(ctx context.Context) ([]ServerNotification, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid baseURL: %w", err)
	}
	u.Path = "/api/realtime/notifications"

	var out notificationsResponse
	if err := c.doGet(ctx, u.String(), &out); err != nil {
		return nil, fmt.Errorf("get notifications: %w", err)
	}
	if !out.Success {
		return nil, fmt.Errorf("notifications endpoint reported failure")
	}
	return out.Notifications, nil
}

// GetPreferences loads the saved alert preferences for the current user.
func (c *Client) GetPreferences(ctx context.Context) (notify.Preferences, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return notify.Preferences{}, fmt.Errorf("invalid baseURL: %w", err)
	}
	u.Path = "/api/realtime/alert-preferences"

	var out preferencesResponse
	if err := c.doGet(ctx, u.String(), &out); err != nil {
		return notify.Preferences{}, fmt.Errorf("get preferences: %w", err)
	}
	if !out.Success {
		return notify.Preferences{}, fmt.Errorf("preferences endpoint reported failure")
	}
	return out.Preferences, nil
}

// SavePreferences persists the full preferences object. The backend
// replaces the stored copy wholesale; the last save wins.
func (c *Client) SavePreferences(ctx context.Context, prefs notify.Preferences) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("invalid baseURL: %w", err)
	}
	u.Path = "/api/realtime/alert-preferences"

	var out saveResponse
	if err := c.doPost(ctx, u.String(), prefs, &out); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	if !out.Success {
		return fmt.Errorf("preferences save rejected: %s", out.Message)
	}
	return nil
}

// SimulateAlert asks the backend to fabricate a test alert. The alert
// also arrives over the stream, so the returned copy is informational.
func (c *Client) SimulateAlert(ctx context.Context) (*notify.Alert, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid baseURL: %w", err)
	}
	u.Path = "/api/realtime/simulate-alert"

	var out simulateResponse
	if err := c.doPost(ctx, u.String(), nil, &out); err != nil {
		return nil, fmt.Errorf("simulate alert: %w", err)
	}
	if !out.Success {
		return nil, fmt.Errorf("simulate endpoint reported failure")
	}
	return out.Alert, nil
}

func (c *Client) doGet(ctx context.Context, url string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	return c.do(req, dest)
}

func (c *Client) doPost(ctx context.Context, url string, payload any, dest any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req, dest)
}

func (c *Client) do(req *http.Request, dest any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("status=%d body=%s", resp.StatusCode, string(body))
	}

	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}
