package notify

import (
	"time"
)

// Severity is the ordinal risk category of an alert, distinct from the
// continuous risk score.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"

	// SeveritySuccess and SeverityError are used for client-generated
	// status notifications (preference saves, connection loss), not for
	// backend fraud alerts.
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// criticalRiskScore is the score at or above which the backend flags an
// alert critical. Mirrored here so locally simulated alerts derive the
// flag the same way.
const criticalRiskScore = 8.0

// ContentType describes the kind of content an alert was raised against.
type ContentType string

const (
	ContentText  ContentType = "text"
	ContentURL   ContentType = "url"
	ContentImage ContentType = "image"
	ContentVideo ContentType = "video"
)

// Alert is a single fraud/risk event surfaced by the backend. Immutable
// once received; the client only layers local display state on top.
type Alert struct {
	ID             int64       `json:"id"`
	RiskScore      float64     `json:"risk_score"`
	Severity       Severity    `json:"severity"`
	ContentType    ContentType `json:"content_type"`
	ContentPreview string      `json:"content_preview"`
	CreatedAt      time.Time   `json:"created_at"`
	TimeAgo        string      `json:"time_ago"`
	SourcePlatform string      `json:"source_platform"`
	IsCritical     bool        `json:"is_critical"`
	IsNew          bool        `json:"is_new"`
}

// Critical reports whether the alert requires attention: either the
// backend flagged it, or its risk score crosses the critical threshold.
func (a Alert) Critical() bool {
	return a.IsCritical || a.RiskScore >= criticalRiskScore
}

// Channel is a presentation medium for a notification.
type Channel string

const (
	ChannelInApp     Channel = "in_app"
	ChannelSound     Channel = "sound"
	ChannelVibration Channel = "vibration"
	ChannelPush      Channel = "push"
	ChannelEmail     Channel = "email"
	ChannelSMS       Channel = "sms"
)

// ChannelSet is the set of channels an alert should surface through.
type ChannelSet map[Channel]bool

// Has reports whether ch is in the set.
func (s ChannelSet) Has(ch Channel) bool {
	return s[ch]
}

// Decision is the outcome of filtering an alert against preferences.
type Decision struct {
	Show     bool
	Channels ChannelSet
}

// NotificationRecord is the ephemeral history entry kept for a dispatched
// alert. Discarded on process exit, never persisted.
type NotificationRecord struct {
	Alert        Alert
	Shown        bool
	Channels     ChannelSet
	DispatchedAt time.Time
}
