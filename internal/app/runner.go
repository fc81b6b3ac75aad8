package app

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"runtime/debug"
	"time"

	clts "fraudshield/clients"
	"fraudshield/clients/alertstream"
	"fraudshield/clients/fraudshieldapi"
	"fraudshield/clients/notify"
	"fraudshield/config"

	"go.uber.org/zap"
)

// ensure Runner implements ConfigObserver
var _ config.ConfigObserver = (*Runner)(nil)

// Build info - populated from embedded VCS info at init time
var (
	BuildCommit = "dev"
	BuildTime   = "unknown"
)

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				if setting.Value != "" {
					BuildCommit = setting.Value
				}
			case "vcs.time":
				BuildTime = setting.Value
			}
		}
	}
}

// Runner wires the realtime alert pipeline together: the stream client
// as the primary transport, the poller as its fallback, and the
// dispatcher that turns filtered alerts into notifications.
type Runner struct {
	clients         *clts.Clients
	liveConfig      *config.LiveConfig
	settingsManager *config.SettingsManager
	dispatcher      *notify.Dispatcher
	monitor         *AlertMonitor
	poller          *Poller
	prefsManager    *PreferencesManager
	healthServer    *http.Server
	startTime       time.Time
	runCtx          context.Context
}

// ServiceStats holds the service statistics served by the health
// endpoint.
type ServiceStats struct {
	// Build info
	Build struct {
		Commit    string `json:"commit"`
		Time      string `json:"time,omitempty"`
		GoVersion string `json:"go_version"`
	} `json:"build"`

	// Service info
	StartTime string `json:"start_time"`
	Uptime    string `json:"uptime"`
	UptimeSec int64  `json:"uptime_seconds"`

	// Stream transport stats
	Stream struct {
		State            string `json:"state"`
		ReconnectAttempt int    `json:"reconnect_attempt,omitempty"`
		MessageCount     uint64 `json:"message_count"`
		LastMessageAt    string `json:"last_message_at,omitempty"`
		LastMessageAgo   string `json:"last_message_ago,omitempty"`
	} `json:"stream"`

	// Polling fallback stats
	Polling struct {
		Active    bool   `json:"active"`
		PollCount uint64 `json:"poll_count"`
	} `json:"polling"`

	// Alert stats
	Alerts struct {
		Counts       DashboardCounts `json:"counts"`
		SeenIDs      int             `json:"seen_ids"`
		LastAlertAt  string          `json:"last_alert_at,omitempty"`
		LastAlertAgo string          `json:"last_alert_ago,omitempty"`
	} `json:"alerts"`

	// Dashboard stats mirrored from the backend
	Dashboard *fraudshieldapi.DashboardStats `json:"dashboard,omitempty"`

	// Notification delivery stats
	Notifications struct {
		HistorySize     int  `json:"history_size"`
		PendingEffects  int  `json:"pending_effects"`
		Visible         bool `json:"visible"`
		DiscordEnabled  bool `json:"discord_enabled"`
		TelegramEnabled bool `json:"telegram_enabled"`
	} `json:"notifications"`

	// Active preference summary
	Preferences struct {
		CriticalOnly  bool    `json:"critical_only"`
		RiskThreshold float64 `json:"risk_threshold"`
		SoundAlerts   bool    `json:"sound_alerts"`
		PushEnabled   bool    `json:"push_enabled"`
	} `json:"preferences"`

	// Runtime stats
	Runtime struct {
		Goroutines int    `json:"goroutines"`
		HeapAlloc  uint64 `json:"heap_alloc"`
		HeapSys    uint64 `json:"heap_sys"`
		NumGC      uint32 `json:"num_gc"`
		GoVersion  string `json:"go_version"`
		NumCPU     int    `json:"num_cpu"`
		GOOS       string `json:"goos"`
		GOARCH     string `json:"goarch"`
	} `json:"runtime"`
}

func NewRunner(clients *clts.Clients, liveConfig *config.LiveConfig, settingsManager *config.SettingsManager) *Runner {
	return &Runner{
		clients:         clients,
		liveConfig:      liveConfig,
		settingsManager: settingsManager,
	}
}

// OnConfigUpdate is called when the config changes.
// Implements config.ConfigObserver interface.
func (r *Runner) OnConfigUpdate(cfg *config.Config) {
	r.clients.Logger.Info("config update received, propagating to components")

	if r.poller != nil {
		r.poller.UpdateConfig(PollerConfig{
			AlertsInterval:        cfg.Poll.AlertsInterval,
			NotificationsInterval: cfg.Poll.NotificationsInterval,
			AlertLimit:            cfg.Poll.AlertLimit,
		})
		// A running poller keeps old tickers; bounce it so the new
		// cadence takes effect.
		if r.poller.Running() && r.runCtx != nil {
			r.poller.Stop()
			r.poller.Start(r.runCtx)
		}
	}
}

func (r *Runner) Run(ctx context.Context) error {
	r.startTime = time.Now()
	r.runCtx = ctx
	logger := r.clients.Logger
	cfg := r.liveConfig.Get()

	// Register as config observer for hot-reload
	r.liveConfig.AddObserver(r)

	logger.Info("starting realtime alert pipeline",
		zap.String("streamURL", cfg.Stream.URL),
		zap.Duration("alertsPollInterval", cfg.Poll.AlertsInterval),
		zap.Int("maxReconnectAttempts", cfg.Stream.MaxReconnectAttempts),
	)

	// Notification dispatcher. Sound and vibration have no surface in a
	// headless service; those channels stay disabled until a sink is
	// provided.
	r.dispatcher = notify.NewDispatcher(
		logger,
		notify.NewLogBannerView(logger),
		nil,
		nil,
		r.clients.Push,
		notify.DispatcherConfig{
			HistorySize: cfg.Notify.HistorySize,
			QueueSize:   cfg.Notify.QueueSize,
		},
	)

	// Load saved alert preferences; defaults apply if the load fails.
	r.prefsManager = NewPreferencesManager(logger, r.clients.API)
	loadCtx, loadCancel := context.WithTimeout(ctx, 10*time.Second)
	r.prefsManager.Load(loadCtx)
	loadCancel()

	r.monitor = NewAlertMonitor(logger, r.dispatcher, r.prefsManager.Store())

	r.poller = NewPoller(logger, r.clients.API, r.monitor, r.dispatcher, PollerConfig{
		AlertsInterval:        cfg.Poll.AlertsInterval,
		NotificationsInterval: cfg.Poll.NotificationsInterval,
		AlertLimit:            cfg.Poll.AlertLimit,
	})

	r.wireStream(ctx)

	// Start health check server if enabled
	if cfg.HealthServer.Enabled {
		r.startHealthServer(cfg.HealthServer.Port)
		logger.Info("health server started", zap.Int("port", cfg.HealthServer.Port))
	}

	// Connect the stream. A failed dial schedules its own retries, so
	// the error is informational here.
	if err := r.clients.Stream.Connect(ctx); err != nil {
		logger.Warn("initial stream connect failed, reconnect scheduled", zap.Error(err))
	}

	<-ctx.Done()
	logger.Info("runner shutting down")

	_ = r.clients.Stream.Close()
	r.poller.Stop()
	r.dispatcher.Close()

	// Shutdown health server
	if r.healthServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = r.healthServer.Shutdown(shutdownCtx)
		shutdownCancel()
	}

	return nil
}

// wireStream registers all stream event handlers and the lifecycle
// callbacks that switch between realtime and polling.
func (r *Runner) wireStream(ctx context.Context) {
	logger := r.clients.Logger
	stream := r.clients.Stream

	stream.On(alertstream.EventNewAlert, func(data json.RawMessage) {
		var a notify.Alert
		if err := json.Unmarshal(data, &a); err != nil {
			logger.Warn("bad new_alert payload", zap.Error(err))
			return
		}
		r.monitor.HandleAlert(a)
	})

	stream.On(alertstream.EventAlertsData, func(data json.RawMessage) {
		var resp fraudshieldapi.AlertsResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			logger.Warn("bad alerts_data payload", zap.Error(err))
			return
		}
		r.monitor.SetSnapshot(&resp)
	})

	statsHandler := func(data json.RawMessage) {
		var stats fraudshieldapi.DashboardStats
		if err := json.Unmarshal(data, &stats); err != nil {
			logger.Warn("bad stats payload", zap.Error(err))
			return
		}
		r.monitor.HandleStats(&stats)
	}
	stream.On(alertstream.EventStatsData, statsHandler)
	stream.On(alertstream.EventStatsUpdate, statsHandler)

	stream.On(alertstream.EventNotification, func(data json.RawMessage) {
		var n fraudshieldapi.ServerNotification
		if err := json.Unmarshal(data, &n); err != nil {
			logger.Warn("bad notification payload", zap.Error(err))
			return
		}
		r.dispatcher.Notify(severityForNotificationType(n.Type), n.Title, n.Message)
	})

	stream.On(alertstream.EventError, func(data json.RawMessage) {
		var payload struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(data, &payload)
		logger.Error("stream server error", zap.String("message", payload.Message))
	})

	stream.OnStateChange(func(state alertstream.State, attempt int) {
		switch state {
		case alertstream.StateConnected:
			// Realtime is back; the fallback is no longer needed.
			r.poller.Stop()
			r.dispatcher.Notify(notify.SeveritySuccess, "Connected", "Realtime alerts active")
		case alertstream.StateReconnecting:
			logger.Warn("stream reconnecting", zap.Int("attempt", attempt))
		}
	})

	stream.OnTerminal(func() {
		r.dispatcher.Notify(notify.SeverityError, "Connection Lost", "Connection lost. Please refresh.")
		r.poller.Start(ctx)
	})
}

// GetStats returns service statistics for the health endpoint.
func (r *Runner) GetStats() ServiceStats {
	var stats ServiceStats

	// Build info
	stats.Build.Commit = BuildCommit
	stats.Build.Time = BuildTime
	stats.Build.GoVersion = runtime.Version()

	// Service info
	stats.StartTime = r.startTime.UTC().Format(time.RFC3339)
	uptime := time.Since(r.startTime)
	stats.Uptime = uptime.Round(time.Second).String()
	stats.UptimeSec = int64(uptime.Seconds())

	// Stream stats
	state, attempt := r.clients.Stream.State()
	stats.Stream.State = state.String()
	stats.Stream.ReconnectAttempt = attempt
	streamStats := r.clients.Stream.Stats()
	stats.Stream.MessageCount = streamStats.MessageCount
	if !streamStats.LastMessageAt.IsZero() {
		stats.Stream.LastMessageAt = streamStats.LastMessageAt.UTC().Format(time.RFC3339)
		stats.Stream.LastMessageAgo = time.Since(streamStats.LastMessageAt).Round(time.Second).String()
	}

	// Polling fallback
	if r.poller != nil {
		stats.Polling.Active = r.poller.Running()
		stats.Polling.PollCount = r.poller.PollCount()
	}

	// Alert stats
	if r.monitor != nil {
		stats.Alerts.Counts = r.monitor.Counts()
		stats.Alerts.SeenIDs = r.monitor.SeenCount()
		lastAlert := r.monitor.LastAlertAt()
		if !lastAlert.IsZero() {
			stats.Alerts.LastAlertAt = lastAlert.UTC().Format(time.RFC3339)
			stats.Alerts.LastAlertAgo = time.Since(lastAlert).Round(time.Second).String()
		}
		stats.Dashboard = r.monitor.Stats()
	}

	// Notification delivery
	if r.dispatcher != nil {
		stats.Notifications.HistorySize = len(r.dispatcher.History())
		stats.Notifications.PendingEffects = r.dispatcher.PendingCount()
		stats.Notifications.Visible = r.dispatcher.Visible()
	}
	stats.Notifications.DiscordEnabled = r.clients.Discord != nil && r.clients.Discord.Enabled()
	stats.Notifications.TelegramEnabled = r.clients.Telegram != nil && r.clients.Telegram.Enabled()

	// Preferences
	if r.prefsManager != nil {
		prefs := r.prefsManager.Get()
		stats.Preferences.CriticalOnly = prefs.CriticalOnly
		stats.Preferences.RiskThreshold = prefs.RiskThreshold
		stats.Preferences.SoundAlerts = prefs.SoundAlerts
		stats.Preferences.PushEnabled = prefs.PushNotifications
	}

	// Runtime stats
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats.Runtime.Goroutines = runtime.NumGoroutine()
	stats.Runtime.HeapAlloc = memStats.HeapAlloc
	stats.Runtime.HeapSys = memStats.HeapSys
	stats.Runtime.NumGC = memStats.NumGC
	stats.Runtime.GoVersion = runtime.Version()
	stats.Runtime.NumCPU = runtime.NumCPU()
	stats.Runtime.GOOS = runtime.GOOS
	stats.Runtime.GOARCH = runtime.GOARCH

	return stats
}
