package notify

import (
	"sync"
)

// AlertFrequency controls how often non-critical alerts are delivered.
// Only "immediate" affects the client-side delivery path; hourly and
// daily digests are assembled server-side.
type AlertFrequency string

const (
	FrequencyImmediate AlertFrequency = "immediate"
	FrequencyHourly    AlertFrequency = "hourly"
	FrequencyDaily     AlertFrequency = "daily"
)

// Preferences is the user-scoped notification configuration. Loaded from
// the backend at startup, mutated locally, persisted back via an explicit
// save. The local copy and the last-saved server copy may diverge until a
// save succeeds; last local save wins.
type Preferences struct {
	EmailAlerts       bool                `json:"email_alerts"`
	SMSAlerts         bool                `json:"sms_alerts"`
	PushNotifications bool                `json:"push_notifications"`
	WeeklyDigest      bool                `json:"weekly_digest"`
	CriticalOnly      bool                `json:"critical_only"`
	SoundAlerts       bool                `json:"sound_alerts"`
	VibrationAlerts   bool                `json:"vibration_alerts"`
	AlertFrequency    AlertFrequency      `json:"alert_frequency"`
	RiskThreshold     float64             `json:"risk_threshold"`
	SeverityFilters   map[Severity]bool   `json:"severity_filters"`
	ContentFilters    map[string]bool     `json:"content_filters"`
}

// DefaultPreferences returns the hardcoded defaults used before the first
// successful load and whenever a load fails.
func DefaultPreferences() Preferences {
	return Preferences{
		EmailAlerts:       true,
		SMSAlerts:         false,
		PushNotifications: true,
		WeeklyDigest:      true,
		CriticalOnly:      false,
		SoundAlerts:       true,
		VibrationAlerts:   true,
		AlertFrequency:    FrequencyImmediate,
		RiskThreshold:     5.0,
		SeverityFilters: map[Severity]bool{
			SeverityCritical: true,
			SeverityHigh:     true,
			SeverityMedium:   true,
			SeverityLow:      false,
		},
		ContentFilters: map[string]bool{
			"fraud_detection":      true,
			"market_anomalies":     true,
			"sebi_updates":         true,
			"advisor_verification": true,
			"portfolio_alerts":     false,
		},
	}
}

// Clone returns a deep copy of the preferences.
func (p Preferences) Clone() Preferences {
	clone := p
	if p.SeverityFilters != nil {
		clone.SeverityFilters = make(map[Severity]bool, len(p.SeverityFilters))
		for k, v := range p.SeverityFilters {
			clone.SeverityFilters[k] = v
		}
	}
	if p.ContentFilters != nil {
		clone.ContentFilters = make(map[string]bool, len(p.ContentFilters))
		for k, v := range p.ContentFilters {
			clone.ContentFilters[k] = v
		}
	}
	return clone
}

// PreferenceStore is a thread-safe holder for the current preferences.
// Writers replace the whole object; there is no partial mutation.
type PreferenceStore struct {
	mu    sync.RWMutex
	prefs Preferences
}

// NewPreferenceStore creates a store seeded with the given preferences.
func NewPreferenceStore(initial Preferences) *PreferenceStore {
	return &PreferenceStore{prefs: initial.Clone()}
}

// Get returns a copy of the current preferences.
func (s *PreferenceStore) Get() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs.Clone()
}

// Replace swaps in a new preferences object.
func (s *PreferenceStore) Replace(p Preferences) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs = p.Clone()
}
