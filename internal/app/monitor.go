package app

import (
	"sync"
	"time"

	"fraudshield/clients/fraudshieldapi"
	"fraudshield/clients/notify"

	"go.uber.org/zap"
)

// DashboardCounts is the aggregate alert breakdown shown in the
// dashboard header. Medium is derived, never stored, so the three
// numbers cannot drift apart.
type DashboardCounts struct {
	Total    int `json:"total"`
	Critical int `json:"critical"`
	Medium   int `json:"medium"`
	New      int `json:"new"`
}

// AlertMonitor is the single intake point for alerts from both
// transports. The stream and the poller feed it concurrently; it
// deduplicates by alert ID so a handover between transports never
// notifies twice.
type AlertMonitor struct {
	logger     *zap.Logger
	dispatcher *notify.Dispatcher
	prefs      *notify.PreferenceStore

	mu          sync.Mutex
	seen        map[int64]bool
	alerts      []notify.Alert
	counts      DashboardCounts
	stats       *fraudshieldapi.DashboardStats
	lastAlertAt time.Time
}

func NewAlertMonitor(logger *zap.Logger, dispatcher *notify.Dispatcher, prefs *notify.PreferenceStore) *AlertMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertMonitor{
		logger:     logger,
		dispatcher: dispatcher,
		prefs:      prefs,
		seen:       make(map[int64]bool),
	}
}

// HandleAlert processes a single realtime alert. Already-seen IDs are
// recorded but not re-notified.
func (m *AlertMonitor) HandleAlert(a notify.Alert) {
	m.mu.Lock()
	if m.seen[a.ID] {
		m.mu.Unlock()
		m.logger.Debug("duplicate alert ignored", zap.Int64("id", a.ID))
		return
	}
	m.seen[a.ID] = true
	m.alerts = append([]notify.Alert{a}, m.alerts...)
	m.counts.Total++
	if a.Critical() {
		m.counts.Critical++
	}
	m.counts.New++
	m.lastAlertAt = time.Now()
	m.mu.Unlock()

	dec := notify.Decide(a, m.prefs.Get())
	m.dispatcher.Dispatch(a, dec)

	m.logger.Info("alert received",
		zap.Int64("id", a.ID),
		zap.String("severity", string(a.Severity)),
		zap.Float64("riskScore", a.RiskScore),
		zap.Bool("shown", dec.Show),
	)
}

// SetSnapshot replaces the alert list with a server snapshot. Snapshot
// alerts are historical; they seed the dedup set without notifying.
func (m *AlertMonitor) SetSnapshot(resp *fraudshieldapi.AlertsResponse) {
	if resp == nil {
		return
	}

	m.mu.Lock()
	m.alerts = append([]notify.Alert(nil), resp.Alerts...)
	for _, a := range resp.Alerts {
		m.seen[a.ID] = true
	}
	m.counts = DashboardCounts{
		Total:    resp.TotalCount,
		Critical: resp.CriticalCount,
		New:      resp.NewCount,
	}
	m.mu.Unlock()

	m.logger.Info("alert snapshot applied",
		zap.Int("alerts", len(resp.Alerts)),
		zap.Int("totalCount", resp.TotalCount),
	)
}

// IngestPolled merges a polled alert list. Unlike a snapshot, alerts
// that were not seen before are treated as new arrivals and dispatched,
// so polling delivers notifications the same way the stream does.
func (m *AlertMonitor) IngestPolled(resp *fraudshieldapi.AlertsResponse) {
	if resp == nil {
		return
	}

	m.mu.Lock()
	var fresh []notify.Alert
	for _, a := range resp.Alerts {
		if !m.seen[a.ID] {
			fresh = append(fresh, a)
		}
	}
	empty := len(m.seen) == 0
	m.mu.Unlock()

	// First poll after startup seeds state like a snapshot; notifying
	// for the whole backlog would be noise.
	if empty {
		m.SetSnapshot(resp)
		return
	}

	for _, a := range fresh {
		m.HandleAlert(a)
	}

	m.mu.Lock()
	m.alerts = append([]notify.Alert(nil), resp.Alerts...)
	m.counts = DashboardCounts{
		Total:    resp.TotalCount,
		Critical: resp.CriticalCount,
		New:      resp.NewCount,
	}
	m.mu.Unlock()
}

// HandleStats stores the latest dashboard statistics.
func (m *AlertMonitor) HandleStats(s *fraudshieldapi.DashboardStats) {
	if s == nil {
		return
	}
	m.mu.Lock()
	m.stats = s
	m.mu.Unlock()
}

// Counts returns the aggregate breakdown. Medium is computed as
// Total minus Critical in exactly one place.
func (m *AlertMonitor) Counts() DashboardCounts {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.counts
	c.Medium = c.Total - c.Critical
	if c.Medium < 0 {
		c.Medium = 0
	}
	return c
}

// Alerts returns a copy of the current alert list, newest first.
func (m *AlertMonitor) Alerts() []notify.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notify.Alert(nil), m.alerts...)
}

// Stats returns the latest dashboard statistics, or nil before the
// first update.
func (m *AlertMonitor) Stats() *fraudshieldapi.DashboardStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stats == nil {
		return nil
	}
	s := *m.stats
	return &s
}

// LastAlertAt returns when the most recent realtime alert arrived.
func (m *AlertMonitor) LastAlertAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastAlertAt
}

// SeenCount returns the size of the dedup set.
func (m *AlertMonitor) SeenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen)
}
