package app

import (
	"encoding/json"
	"net/http"

	"fraudshield/config"

	"go.uber.org/zap"
)

// SettingsHandler handles settings-related HTTP requests.
type SettingsHandler struct {
	logger     *zap.Logger
	liveConfig *config.LiveConfig
	settings   *config.SettingsManager
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(logger *zap.Logger, liveConfig *config.LiveConfig, settings *config.SettingsManager) *SettingsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsHandler{
		logger:     logger,
		liveConfig: liveConfig,
		settings:   settings,
	}
}

// RegisterRoutes registers the settings routes on the given mux.
func (h *SettingsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/settings", h.handleSettingsPage)
	mux.HandleFunc("/api/settings", h.handleSettingsAPI)
	mux.HandleFunc("/api/settings/reset", h.handleSettingsReset)
	mux.HandleFunc("/api/settings/info", h.handleSettingsInfo)
}

func (h *SettingsHandler) handleSettingsPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = w.Write([]byte(settingsPageHTML))
}

func (h *SettingsHandler) handleSettingsAPI(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.getSettings(w)
	case http.MethodPost:
		h.updateSettings(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *SettingsHandler) getSettings(w http.ResponseWriter) {
	cfg := h.liveConfig.Get()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(cfg); err != nil {
		h.logger.Warn("failed to encode settings", zap.Error(err))
	}
}

func (h *SettingsHandler) updateSettings(w http.ResponseWriter, r *http.Request) {
	// Decode onto a copy of the current config so fields absent from
	// the request body keep their values.
	newConfig := h.liveConfig.Get().Clone()
	if err := json.NewDecoder(r.Body).Decode(newConfig); err != nil {
		h.logger.Warn("failed to decode settings update", zap.Error(err))
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	validation := newConfig.Validate()
	if !validation.Valid {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"errors":  validation.Errors,
		})
		return
	}

	if err := h.settings.UpdateAndSave(newConfig); err != nil {
		h.logger.Error("failed to apply settings update", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "failed to apply settings")
		return
	}

	h.logger.Info("settings updated via api")
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
}

func (h *SettingsHandler) handleSettingsReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Tokens only come from the environment; a reset must not wipe them.
	current := h.liveConfig.Get()
	defaults := config.Defaults()
	defaults.Discord.BotToken = current.Discord.BotToken
	defaults.Telegram.BotToken = current.Telegram.BotToken

	if err := h.settings.UpdateAndSave(defaults); err != nil {
		h.logger.Error("failed to reset settings", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "failed to reset settings")
		return
	}

	h.logger.Info("settings reset to defaults")
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
}

func (h *SettingsHandler) handleSettingsInfo(w http.ResponseWriter, r *http.Request) {
	info := h.settings.GetSettingsInfo()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(info); err != nil {
		h.logger.Warn("failed to encode settings info", zap.Error(err))
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   msg,
	})
}

const settingsPageHTML = `<!DOCTYPE html>
<html>
<head>
<title>fraudshield settings</title>
<meta charset="utf-8">
<style>
body { font-family: monospace; background: #0d1117; color: #c9d1d9; margin: 20px; max-width: 720px; }
h1 { color: #58a6ff; font-size: 1.3em; }
textarea { width: 100%; height: 420px; background: #161b22; color: #c9d1d9; border: 1px solid #30363d; border-radius: 6px; padding: 10px; font-family: inherit; }
button { background: #21262d; color: #c9d1d9; border: 1px solid #30363d; border-radius: 6px; padding: 6px 14px; cursor: pointer; font-family: inherit; margin-right: 8px; }
button:hover { border-color: #58a6ff; }
#status { margin-top: 10px; }
#status.ok { color: #3fb950; }
#status.err { color: #f85149; }
a { color: #58a6ff; }
</style>
</head>
<body>
<h1>fraudshield settings</h1>
<p><a href="/">&larr; dashboard</a></p>
<textarea id="cfg" spellcheck="false"></textarea>
<p>
<button onclick="save()">save</button>
<button onclick="reset()">reset to defaults</button>
<button onclick="load()">reload</button>
</p>
<div id="status"></div>
<script>
function setStatus(msg, ok) {
  var el = document.getElementById('status');
  el.textContent = msg;
  el.className = ok ? 'ok' : 'err';
}
function load() {
  fetch('/api/settings').then(function(r) { return r.json(); }).then(function(cfg) {
    document.getElementById('cfg').value = JSON.stringify(cfg, null, 2);
    setStatus('loaded', true);
  });
}
function save() {
  var body;
  try { body = JSON.parse(document.getElementById('cfg').value); }
  catch (e) { setStatus('invalid JSON: ' + e.message, false); return; }
  fetch('/api/settings', { method: 'POST', body: JSON.stringify(body) })
    .then(function(r) { return r.json(); })
    .then(function(res) {
      if (res.success) { setStatus('saved', true); }
      else { setStatus('rejected: ' + JSON.stringify(res.errors || res.error), false); }
    });
}
function reset() {
  fetch('/api/settings/reset', { method: 'POST' })
    .then(function(r) { return r.json(); })
    .then(function(res) {
      if (res.success) { load(); setStatus('reset to defaults', true); }
      else { setStatus('reset failed', false); }
    });
}
load();
</script>
</body>
</html>
`
