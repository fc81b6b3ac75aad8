package notify

import (
	"encoding/json"
	"testing"
)

func TestDefaultPreferences(t *testing.T) {
	prefs := DefaultPreferences()

	if prefs.RiskThreshold != 5.0 {
		t.Errorf("unexpected default risk threshold: %f", prefs.RiskThreshold)
	}
	if prefs.AlertFrequency != FrequencyImmediate {
		t.Errorf("unexpected default frequency: %s", prefs.AlertFrequency)
	}
	if prefs.SeverityFilters[SeverityLow] {
		t.Error("low severity should be filtered out by default")
	}
	if !prefs.SeverityFilters[SeverityCritical] {
		t.Error("critical severity should pass by default")
	}
	if prefs.CriticalOnly {
		t.Error("critical-only mode should be off by default")
	}
}

func TestPreferences_JSONRoundTrip(t *testing.T) {
	raw := `{
		"email_alerts": false,
		"sms_alerts": true,
		"push_notifications": true,
		"weekly_digest": false,
		"critical_only": true,
		"sound_alerts": false,
		"vibration_alerts": true,
		"alert_frequency": "hourly",
		"risk_threshold": 7.5,
		"severity_filters": {"critical": true, "high": false},
		"content_filters": {"fraud_detection": true}
	}`

	var prefs Preferences
	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if prefs.EmailAlerts || !prefs.SMSAlerts {
		t.Error("boolean toggles not decoded")
	}
	if prefs.RiskThreshold != 7.5 {
		t.Errorf("risk threshold not decoded: %f", prefs.RiskThreshold)
	}
	if prefs.AlertFrequency != FrequencyHourly {
		t.Errorf("frequency not decoded: %s", prefs.AlertFrequency)
	}
	if prefs.SeverityFilters[SeverityHigh] {
		t.Error("severity filter not decoded")
	}

	data, err := json.Marshal(prefs)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("re-unmarshal failed: %v", err)
	}
	if decoded["risk_threshold"] != 7.5 {
		t.Errorf("snake_case key missing after marshal: %v", decoded)
	}
}

func TestPreferences_CloneIsDeep(t *testing.T) {
	prefs := DefaultPreferences()
	clone := prefs.Clone()

	clone.SeverityFilters[SeverityLow] = true
	clone.ContentFilters["fraud_detection"] = false
	clone.RiskThreshold = 9.0

	if prefs.SeverityFilters[SeverityLow] {
		t.Error("clone shares severity filter map")
	}
	if !prefs.ContentFilters["fraud_detection"] {
		t.Error("clone shares content filter map")
	}
	if prefs.RiskThreshold != 5.0 {
		t.Error("clone shares scalar state")
	}
}

func TestPreferenceStore_GetReturnsCopy(t *testing.T) {
	store := NewPreferenceStore(DefaultPreferences())

	got := store.Get()
	got.SeverityFilters[SeverityLow] = true

	if store.Get().SeverityFilters[SeverityLow] {
		t.Error("mutating a Get result leaked into the store")
	}
}

func TestPreferenceStore_Replace(t *testing.T) {
	store := NewPreferenceStore(DefaultPreferences())

	updated := DefaultPreferences()
	updated.CriticalOnly = true
	updated.RiskThreshold = 8.0
	store.Replace(updated)

	current := store.Get()
	if !current.CriticalOnly || current.RiskThreshold != 8.0 {
		t.Errorf("replace not applied: %+v", current)
	}

	// The caller's copy stays independent after Replace.
	updated.RiskThreshold = 1.0
	if store.Get().RiskThreshold != 8.0 {
		t.Error("store shares state with the replaced-in object")
	}
}
