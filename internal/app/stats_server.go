package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"fraudshield/clients/alertstream"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// startHealthServer starts an HTTP server with health, stats and
// settings endpoints.
func (r *Runner) startHealthServer(port int) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/stats", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(r.GetStats()); err != nil {
			r.clients.Logger.Warn("failed to encode stats", zap.Error(err))
		}
	})

	mux.HandleFunc("/alerts", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		resp := struct {
			Alerts any             `json:"alerts"`
			Counts DashboardCounts `json:"counts"`
		}{
			Alerts: r.monitor.Alerts(),
			Counts: r.monitor.Counts(),
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			r.clients.Logger.Warn("failed to encode alerts", zap.Error(err))
		}
	})

	mux.HandleFunc("/api/simulate-alert", r.handleSimulateAlert)

	mux.HandleFunc("/ws", r.handleStatsWS)

	mux.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/" {
			http.NotFound(w, req)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(dashboardHTML))
	})

	// Settings UI and API
	settingsHandler := NewSettingsHandler(r.clients.Logger, r.liveConfig, r.settingsManager)
	settingsHandler.RegisterRoutes(mux)

	r.healthServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		if err := r.healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.clients.Logger.Error("health server error", zap.Error(err))
		}
	}()
}

// handleSimulateAlert asks the backend to generate a test alert. The
// stream path is preferred; when it is down the REST endpoint is used
// and the response is fed through the normal intake so the alert still
// notifies.
func (r *Runner) handleSimulateAlert(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if state, _ := r.clients.Stream.State(); state == alertstream.StateConnected {
		if err := r.clients.Stream.SimulateAlert(); err != nil {
			r.clients.Logger.Warn("simulate alert via stream failed", zap.Error(err))
			http.Error(w, `{"success":false}`, http.StatusBadGateway)
			return
		}
		// The generated alert arrives as a new_alert event.
		_, _ = w.Write([]byte(`{"success":true,"via":"stream"}`))
		return
	}

	reqCtx, cancel := context.WithTimeout(req.Context(), 10*time.Second)
	defer cancel()

	alert, err := r.clients.API.SimulateAlert(reqCtx)
	if err != nil {
		r.clients.Logger.Warn("simulate alert via rest failed", zap.Error(err))
		http.Error(w, `{"success":false}`, http.StatusBadGateway)
		return
	}
	r.monitor.HandleAlert(*alert)

	resp := struct {
		Success bool   `json:"success"`
		Via     string `json:"via"`
		Alert   any    `json:"alert"`
	}{Success: true, Via: "rest", Alert: alert}
	_ = json.NewEncoder(w).Encode(resp)
}

// handleStatsWS pushes live stats over a websocket every second.
func (r *Runner) handleStatsWS(w http.ResponseWriter, req *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, req, nil)
	if err != nil {
		r.clients.Logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	// Send initial stats immediately
	if err := conn.WriteJSON(r.GetStats()); err != nil {
		return
	}

	for range ticker.C {
		if err := conn.WriteJSON(r.GetStats()); err != nil {
			return
		}
	}
}

const dashboardHTML = `<!DOCTYPE html>
<html>
<head>
<title>fraudshield monitor</title>
<meta charset="utf-8">
<style>
body { font-family: monospace; background: #0d1117; color: #c9d1d9; margin: 20px; }
h1 { color: #58a6ff; font-size: 1.3em; }
h1 .dot { display: inline-block; width: 10px; height: 10px; border-radius: 50%; background: #f85149; margin-right: 8px; }
h1 .dot.ok { background: #3fb950; }
.grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(280px, 1fr)); gap: 16px; }
.card { background: #161b22; border: 1px solid #30363d; border-radius: 6px; padding: 14px; }
.card h2 { margin: 0 0 10px; font-size: 0.95em; color: #8b949e; text-transform: uppercase; }
.row { display: flex; justify-content: space-between; padding: 2px 0; }
.row .v { color: #58a6ff; }
.row .v.crit { color: #f85149; }
button { background: #21262d; color: #c9d1d9; border: 1px solid #30363d; border-radius: 6px; padding: 6px 14px; cursor: pointer; font-family: inherit; }
button:hover { border-color: #58a6ff; }
a { color: #58a6ff; }
</style>
</head>
<body>
<h1><span id="dot" class="dot"></span>fraudshield monitor</h1>
<p><a href="/settings">settings</a> &middot; <a href="/stats">raw stats</a> &middot; <button onclick="simulate()">simulate alert</button></p>
<div class="grid">
  <div class="card"><h2>Stream</h2><div id="stream"></div></div>
  <div class="card"><h2>Alerts</h2><div id="alerts"></div></div>
  <div class="card"><h2>Notifications</h2><div id="notifications"></div></div>
  <div class="card"><h2>Service</h2><div id="service"></div></div>
</div>
<script>
function row(k, v, crit) {
  return '<div class="row"><span>' + k + '</span><span class="v' + (crit ? ' crit' : '') + '">' + v + '</span></div>';
}
function render(s) {
  document.getElementById('dot').className = 'dot' + (s.stream.state === 'connected' ? ' ok' : '');
  document.getElementById('stream').innerHTML =
    row('state', s.stream.state, s.stream.state !== 'connected') +
    row('messages', s.stream.message_count) +
    row('last message', s.stream.last_message_ago || 'never') +
    row('polling fallback', s.polling.active ? 'active' : 'off', s.polling.active);
  document.getElementById('alerts').innerHTML =
    row('total', s.alerts.counts.total) +
    row('critical', s.alerts.counts.critical, s.alerts.counts.critical > 0) +
    row('medium', s.alerts.counts.medium) +
    row('new', s.alerts.counts.new) +
    row('last alert', s.alerts.last_alert_ago || 'never');
  document.getElementById('notifications').innerHTML =
    row('history', s.notifications.history_size) +
    row('pending effects', s.notifications.pending_effects) +
    row('discord', s.notifications.discord_enabled ? 'on' : 'off') +
    row('telegram', s.notifications.telegram_enabled ? 'on' : 'off');
  document.getElementById('service').innerHTML =
    row('uptime', s.uptime) +
    row('commit', s.build.commit.substring(0, 8)) +
    row('goroutines', s.runtime.goroutines) +
    row('heap', (s.runtime.heap_alloc / 1048576).toFixed(1) + ' MB');
}
function connect() {
  var ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws');
  ws.onmessage = function(e) { render(JSON.parse(e.data)); };
  ws.onclose = function() { setTimeout(connect, 2000); };
}
function simulate() {
  fetch('/api/simulate-alert', { method: 'POST' });
}
connect();
</script>
</body>
</html>
`
