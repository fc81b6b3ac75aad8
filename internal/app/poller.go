package app

import (
	"context"
	"sync"
	"time"

	"fraudshield/clients/fraudshieldapi"
	"fraudshield/clients/notify"

	"go.uber.org/zap"
)

// PollerConfig tunes the REST fallback loops.
type PollerConfig struct {
	AlertsInterval        time.Duration
	NotificationsInterval time.Duration
	AlertLimit            int
}

// Poller is the REST fallback for the realtime stream. While running it
// polls alerts and stats on one cadence and server notifications on a
// slower one. It is started when the stream goes terminal and stopped
// when the stream recovers.
type Poller struct {
	logger     *zap.Logger
	api        *fraudshieldapi.Client
	monitor    *AlertMonitor
	dispatcher *notify.Dispatcher

	mu        sync.Mutex
	cfg       PollerConfig
	cancel    context.CancelFunc
	seenNotif map[int64]bool
	polls     uint64
}

func NewPoller(logger *zap.Logger, api *fraudshieldapi.Client, monitor *AlertMonitor, dispatcher *notify.Dispatcher, cfg PollerConfig) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.AlertsInterval <= 0 {
		cfg.AlertsInterval = 5 * time.Second
	}
	if cfg.NotificationsInterval <= 0 {
		cfg.NotificationsInterval = 10 * time.Second
	}
	if cfg.AlertLimit <= 0 {
		cfg.AlertLimit = 50
	}
	return &Poller{
		logger:     logger,
		api:        api,
		monitor:    monitor,
		dispatcher: dispatcher,
		cfg:        cfg,
		seenNotif:  make(map[int64]bool),
	}
}

// Start launches the polling loops. Calling it while running is a
// no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	cfg := p.cfg
	p.mu.Unlock()

	p.logger.Info("polling fallback started",
		zap.Duration("alertsInterval", cfg.AlertsInterval),
		zap.Duration("notificationsInterval", cfg.NotificationsInterval),
	)

	go p.runAlerts(pollCtx, cfg.AlertsInterval)
	go p.runNotifications(pollCtx, cfg.NotificationsInterval)
}

// Stop halts the polling loops. Safe to call when not running.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		p.logger.Info("polling fallback stopped")
	}
}

// Running reports whether the fallback loops are active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// UpdateConfig applies new intervals on the next Start. A running
// poller keeps its current cadence; the runner restarts it on config
// changes when it is active.
func (p *Poller) UpdateConfig(cfg PollerConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cfg.AlertsInterval > 0 {
		p.cfg.AlertsInterval = cfg.AlertsInterval
	}
	if cfg.NotificationsInterval > 0 {
		p.cfg.NotificationsInterval = cfg.NotificationsInterval
	}
	if cfg.AlertLimit > 0 {
		p.cfg.AlertLimit = cfg.AlertLimit
	}
}

func (p *Poller) runAlerts(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Poll immediately so the fallback does not wait a full interval
	// after the stream drops.
	p.pollOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) {
	p.mu.Lock()
	limit := p.cfg.AlertLimit
	p.polls++
	p.mu.Unlock()

	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if resp, err := p.api.GetAlerts(reqCtx, limit); err != nil {
		p.logger.Warn("alert poll failed", zap.Error(err))
	} else {
		p.monitor.IngestPolled(resp)
	}

	if stats, err := p.api.GetStats(reqCtx); err != nil {
		p.logger.Warn("stats poll failed", zap.Error(err))
	} else {
		p.monitor.HandleStats(stats)
	}
}

func (p *Poller) runNotifications(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollNotifications(ctx)
		}
	}
}

func (p *Poller) pollNotifications(ctx context.Context) {
	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	notifications, err := p.api.GetNotifications(reqCtx)
	if err != nil {
		p.logger.Warn("notification poll failed", zap.Error(err))
		return
	}

	for _, n := range notifications {
		if n.Read {
			continue
		}
		p.mu.Lock()
		dup := p.seenNotif[n.ID]
		if !dup {
			p.seenNotif[n.ID] = true
		}
		p.mu.Unlock()
		if dup {
			continue
		}
		p.dispatcher.Notify(severityForNotificationType(n.Type), n.Title, n.Message)
	}
}

// PollCount returns how many alert polls have run. Used for monitoring.
func (p *Poller) PollCount() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.polls
}

// severityForNotificationType maps backend notification types onto the
// status severities used for banners and tones.
func severityForNotificationType(t string) notify.Severity {
	switch t {
	case "critical":
		return notify.SeverityCritical
	case "warning", "high":
		return notify.SeverityHigh
	case "error":
		return notify.SeverityError
	case "success":
		return notify.SeveritySuccess
	default:
		return notify.SeverityMedium
	}
}
