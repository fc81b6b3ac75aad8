package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// SettingsSnapshot is the on-disk settings format.
type SettingsSnapshot struct {
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
	Config    *Config   `json:"config"`
}

// SettingsManager persists runtime settings to a local file so that
// changes made through the settings endpoint survive restarts.
// Priority on load: file > environment variables > defaults.
type SettingsManager struct {
	logger     *zap.Logger
	filePath   string
	liveConfig *LiveConfig
}

// NewSettingsManager creates a SettingsManager. An empty filePath
// disables persistence; updates then live only in memory.
func NewSettingsManager(logger *zap.Logger, filePath string, liveConfig *LiveConfig) *SettingsManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsManager{
		logger:     logger,
		filePath:   filePath,
		liveConfig: liveConfig,
	}
}

// IsEnabled reports whether settings persistence is available.
func (sm *SettingsManager) IsEnabled() bool {
	return sm.filePath != ""
}

// LoadSettings merges the persisted snapshot on top of the env config.
// A missing or unreadable file is not an error; the env config is used
// as-is.
func (sm *SettingsManager) LoadSettings(envConfig *Config) (*Config, error) {
	baseConfig := Defaults()
	if envConfig != nil {
		baseConfig = mergeConfigs(baseConfig, envConfig)
	}

	if !sm.IsEnabled() {
		sm.logger.Info("settings file not configured, using env/defaults")
		return baseConfig, nil
	}

	data, err := os.ReadFile(sm.filePath)
	if err != nil {
		sm.logger.Warn("failed to read settings file, using env/defaults",
			zap.String("path", sm.filePath),
			zap.Error(err),
		)
		return baseConfig, nil
	}

	var snapshot SettingsSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		sm.logger.Warn("failed to parse settings file, using env/defaults",
			zap.String("path", sm.filePath),
			zap.Error(err),
		)
		return baseConfig, nil
	}

	if snapshot.Config != nil {
		baseConfig = mergeConfigs(baseConfig, snapshot.Config)
		sm.logger.Info("loaded settings from file",
			zap.String("path", sm.filePath),
			zap.Time("updated_at", snapshot.UpdatedAt),
			zap.Int("version", snapshot.Version),
		)
	}

	return baseConfig, nil
}

// SaveSettings writes the current config snapshot to disk.
func (sm *SettingsManager) SaveSettings() error {
	if !sm.IsEnabled() {
		return fmt.Errorf("settings file not configured")
	}

	snapshot := SettingsSnapshot{
		Version:   1,
		UpdatedAt: time.Now(),
		Config:    sm.liveConfig.Get(),
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.WriteFile(sm.filePath, data, 0o644); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}

	sm.logger.Info("saved settings", zap.String("path", sm.filePath))
	return nil
}

// UpdateAndSave updates the live config and persists the result. A
// failed save is logged but does not roll back the update.
func (sm *SettingsManager) UpdateAndSave(newConfig *Config) error {
	if err := sm.liveConfig.Update(newConfig); err != nil {
		return fmt.Errorf("update config: %w", err)
	}

	if sm.IsEnabled() {
		if err := sm.SaveSettings(); err != nil {
			sm.logger.Error("failed to persist settings", zap.Error(err))
		}
	}

	return nil
}

// GetCurrentConfig returns the current config.
func (sm *SettingsManager) GetCurrentConfig() *Config {
	return sm.liveConfig.Get()
}

// GetLiveConfig returns the LiveConfig for observers to register.
func (sm *SettingsManager) GetLiveConfig() *LiveConfig {
	return sm.liveConfig
}

// mergeConfigs merges overlay onto base. json.Unmarshal only overwrites
// fields present in the overlay JSON, so zero-valued overlay fields keep
// the base values. Token fields are excluded from JSON and carried over
// explicitly.
func mergeConfigs(base, overlay *Config) *Config {
	if base == nil {
		base = Defaults()
	}
	if overlay == nil {
		return base.Clone()
	}

	result := base.Clone()

	overlayJSON, err := json.Marshal(overlay)
	if err != nil {
		return result
	}
	_ = json.Unmarshal(overlayJSON, result)

	result.Discord.BotToken = overlay.Discord.BotToken
	if result.Discord.BotToken == "" {
		result.Discord.BotToken = base.Discord.BotToken
	}
	result.Telegram.BotToken = overlay.Telegram.BotToken
	if result.Telegram.BotToken == "" {
		result.Telegram.BotToken = base.Telegram.BotToken
	}

	return result
}

// SettingsInfo provides metadata about the current settings state.
type SettingsInfo struct {
	Source      string    `json:"source"` // "file" or "env"
	LastUpdated time.Time `json:"last_updated"`
	FileEnabled bool      `json:"file_enabled"`
	FilePath    string    `json:"file_path,omitempty"`
	IsValid     bool      `json:"is_valid"`
	Errors      []string  `json:"errors,omitempty"`
}

// GetSettingsInfo returns metadata about the current settings.
func (sm *SettingsManager) GetSettingsInfo() SettingsInfo {
	cfg := sm.liveConfig.Get()
	validation := cfg.Validate()

	info := SettingsInfo{
		LastUpdated: sm.liveConfig.LastUpdated(),
		FileEnabled: sm.IsEnabled(),
		IsValid:     validation.Valid,
	}

	if sm.IsEnabled() {
		info.Source = "file"
		info.FilePath = sm.filePath
	} else {
		info.Source = "env"
	}

	for _, e := range validation.Errors {
		info.Errors = append(info.Errors, e.Field+": "+e.Message)
	}

	return info
}
