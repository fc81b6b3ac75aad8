package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"fraudshield/clients/notify"
)

func TestPreferencesManager_LoadSuccess(t *testing.T) {
	prefs := notify.DefaultPreferences()
	prefs.CriticalOnly = true
	prefs.RiskThreshold = 7.5

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/realtime/alert-preferences" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":     true,
			"preferences": prefs,
		})
	}))
	defer server.Close()

	pm := NewPreferencesManager(nil, apiClientFor(t, server))
	pm.Load(context.Background())

	got := pm.Get()
	if !got.CriticalOnly {
		t.Error("expected loaded criticalOnly")
	}
	if got.RiskThreshold != 7.5 {
		t.Errorf("expected risk threshold 7.5, got %v", got.RiskThreshold)
	}
}

func TestPreferencesManager_LoadFailureKeepsDefaults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	pm := NewPreferencesManager(nil, apiClientFor(t, server))
	pm.Load(context.Background())

	got := pm.Get()
	defaults := notify.DefaultPreferences()
	if got.RiskThreshold != defaults.RiskThreshold {
		t.Errorf("expected default risk threshold %v, got %v", defaults.RiskThreshold, got.RiskThreshold)
	}
	if got.CriticalOnly != defaults.CriticalOnly {
		t.Error("expected default criticalOnly")
	}
}

func TestPreferencesManager_Save(t *testing.T) {
	var received notify.Preferences
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&received)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer server.Close()

	pm := NewPreferencesManager(nil, apiClientFor(t, server))

	prefs := notify.DefaultPreferences()
	prefs.SoundAlerts = false
	if err := pm.Save(context.Background(), prefs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if received.SoundAlerts {
		t.Error("expected saved preferences to reach the backend")
	}
	if pm.Get().SoundAlerts {
		t.Error("expected local copy updated")
	}
}

func TestPreferencesManager_SaveFailureKeepsLocalChange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	pm := NewPreferencesManager(nil, apiClientFor(t, server))

	prefs := notify.DefaultPreferences()
	prefs.CriticalOnly = true
	err := pm.Save(context.Background(), prefs)
	if err == nil {
		t.Fatal("expected error from failed save")
	}

	// The local change applies even though persistence failed.
	if !pm.Get().CriticalOnly {
		t.Error("expected local copy to keep the change")
	}
}
