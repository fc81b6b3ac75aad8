package app

import (
	"context"
	"fmt"

	"fraudshield/clients/fraudshieldapi"
	"fraudshield/clients/notify"

	"go.uber.org/zap"
)

// PreferencesManager owns the local preferences copy and its sync with
// the backend. Saves replace the stored object wholesale; the last save
// wins, there is no merge.
type PreferencesManager struct {
	logger *zap.Logger
	api    *fraudshieldapi.Client
	store  *notify.PreferenceStore
}

func NewPreferencesManager(logger *zap.Logger, api *fraudshieldapi.Client) *PreferencesManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PreferencesManager{
		logger: logger,
		api:    api,
		store:  notify.NewPreferenceStore(notify.DefaultPreferences()),
	}
}

// Load fetches the saved preferences from the backend. A failed load is
// not fatal; the defaults stay in effect and filtering proceeds with
// them.
func (pm *PreferencesManager) Load(ctx context.Context) {
	prefs, err := pm.api.GetPreferences(ctx)
	if err != nil {
		pm.logger.Warn("failed to load alert preferences, using defaults", zap.Error(err))
		return
	}

	pm.store.Replace(prefs)
	pm.logger.Info("alert preferences loaded",
		zap.Float64("riskThreshold", prefs.RiskThreshold),
		zap.Bool("criticalOnly", prefs.CriticalOnly),
	)
}

// Save applies the preferences locally and persists them. The local
// copy is updated before the network call, so filtering reflects the
// change immediately even if persistence fails.
func (pm *PreferencesManager) Save(ctx context.Context, prefs notify.Preferences) error {
	pm.store.Replace(prefs)

	if err := pm.api.SavePreferences(ctx, prefs); err != nil {
		pm.logger.Error("failed to persist alert preferences", zap.Error(err))
		return fmt.Errorf("save preferences: %w", err)
	}

	pm.logger.Info("alert preferences saved")
	return nil
}

// Get returns a copy of the current preferences.
func (pm *PreferencesManager) Get() notify.Preferences {
	return pm.store.Get()
}

// Store exposes the underlying store for the filtering path.
func (pm *PreferencesManager) Store() *notify.PreferenceStore {
	return pm.store
}
