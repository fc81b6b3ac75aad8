package notify

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultHistorySize = 50
	defaultQueueSize   = 10
)

// DispatcherConfig bounds the dispatcher's in-memory state.
type DispatcherConfig struct {
	// HistorySize caps the notification history; oldest entries are
	// evicted first. Defaults to 50.
	HistorySize int
	// QueueSize caps the pending queue used while the dashboard is
	// hidden; oldest entries are dropped. Defaults to 10.
	QueueSize int
}

type pendingEffect struct {
	banner Banner
	push   *PushNotification
}

// Dispatcher executes the side effects of a filtering decision: in-app
// banner, sound, vibration, and push delivery. It keeps a bounded history
// of everything that passed through it and defers visual effects while
// the dashboard is hidden.
//
// Any sink may be nil, which silently disables that channel. Sink errors
// are logged and never propagated; one failing channel does not block
// the others.
type Dispatcher struct {
	logger *zap.Logger

	banners  BannerView
	sound    SoundPlayer
	vibrator Vibrator
	push     PushSink

	historySize int
	queueSize   int

	mu         sync.Mutex
	visible    bool
	closed     bool
	history    []NotificationRecord
	pending    []pendingEffect
	dispatched map[int64]bool
	timers     map[string]*time.Timer
}

// NewDispatcher creates a dispatcher in the visible state.
func NewDispatcher(logger *zap.Logger, banners BannerView, sound SoundPlayer, vibrator Vibrator, push PushSink, cfg DispatcherConfig) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = defaultHistorySize
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	return &Dispatcher{
		logger:      logger,
		banners:     banners,
		sound:       sound,
		vibrator:    vibrator,
		push:        push,
		historySize: cfg.HistorySize,
		queueSize:   cfg.QueueSize,
		visible:     true,
		dispatched:  make(map[int64]bool),
		timers:      make(map[string]*time.Timer),
	}
}

// Dispatch records the alert and, when the decision allows, runs its
// effects. Every call appends to history, including suppressed alerts,
// so the history reflects what the filter actually decided. An alert ID
// that already produced effects is recorded but not re-displayed.
func (d *Dispatcher) Dispatch(a Alert, dec Decision) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}

	d.appendHistoryLocked(NotificationRecord{
		Alert:        a,
		Shown:        dec.Show,
		Channels:     dec.Channels,
		DispatchedAt: time.Now(),
	})

	if !dec.Show {
		d.mu.Unlock()
		d.logger.Debug("alert suppressed by preferences",
			zap.Int64("alertID", a.ID),
			zap.String("severity", string(a.Severity)))
		return
	}
	if d.dispatched[a.ID] {
		d.mu.Unlock()
		d.logger.Debug("duplicate alert not re-displayed", zap.Int64("alertID", a.ID))
		return
	}
	d.dispatched[a.ID] = true

	banner := bannerFor(a)
	var push *PushNotification
	if dec.Channels.Has(ChannelPush) {
		p := pushFor(a)
		push = &p
	}

	deferred := !d.visible
	if deferred {
		d.enqueuePendingLocked(pendingEffect{banner: banner, push: push})
	}
	d.mu.Unlock()

	// Sound and vibration fire immediately regardless of visibility;
	// only the visual effects wait for the dashboard to come back.
	if dec.Channels.Has(ChannelSound) && d.sound != nil {
		if err := d.sound.PlayTones(ToneSequence(a.Severity)); err != nil {
			d.logger.Warn("sound playback failed", zap.Int64("alertID", a.ID), zap.Error(err))
		}
	}
	if dec.Channels.Has(ChannelVibration) && d.vibrator != nil {
		if err := d.vibrator.Vibrate(VibrationPattern(a.Severity)); err != nil {
			d.logger.Warn("vibration failed", zap.Int64("alertID", a.ID), zap.Error(err))
		}
	}

	if deferred {
		d.logger.Debug("visual effects deferred until visible", zap.Int64("alertID", a.ID))
		return
	}
	d.showBanner(banner, DismissAfter(a))
	if push != nil {
		d.deliverPush(*push)
	}
}

// Notify surfaces a client-generated status notification (for example a
// preference save confirmation or a connection loss) that bypasses the
// preference filter. It shares the banner surface and sound cues with
// alert dispatch but does not touch history or push channels.
func (d *Dispatcher) Notify(severity Severity, title, message string) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	visible := d.visible
	d.mu.Unlock()

	b := Banner{
		ID:        fmt.Sprintf("status-%d", time.Now().UnixNano()),
		Title:     title,
		Message:   message,
		Severity:  severity,
		Timestamp: time.Now(),
	}
	if d.sound != nil {
		if err := d.sound.PlayTones(ToneSequence(severity)); err != nil {
			d.logger.Warn("sound playback failed", zap.String("banner", b.ID), zap.Error(err))
		}
	}
	if !visible {
		d.mu.Lock()
		if !d.closed {
			d.enqueuePendingLocked(pendingEffect{banner: b})
		}
		d.mu.Unlock()
		return
	}
	d.showBanner(b, defaultDismissAfter)
}

// SetVisible flips the dashboard visibility. Transitioning to visible
// flushes the pending queue once, in arrival order, replaying only the
// visual effects. Sounds and vibrations already fired and are not
// repeated.
func (d *Dispatcher) SetVisible(visible bool) {
	d.mu.Lock()
	if d.closed || d.visible == visible {
		d.mu.Unlock()
		return
	}
	d.visible = visible
	if !visible {
		d.mu.Unlock()
		return
	}
	queued := d.pending
	d.pending = nil
	d.mu.Unlock()

	if len(queued) > 0 {
		d.logger.Info("flushing deferred notifications", zap.Int("count", len(queued)))
	}
	for _, eff := range queued {
		d.showBanner(eff.banner, defaultDismissAfter)
		if eff.push != nil {
			d.deliverPush(*eff.push)
		}
	}
}

// Visible reports the current visibility state.
func (d *Dispatcher) Visible() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.visible
}

// History returns a copy of the notification history, oldest first.
func (d *Dispatcher) History() []NotificationRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]NotificationRecord, len(d.history))
	copy(out, d.history)
	return out
}

// PendingCount returns the number of deferred visual effects.
func (d *Dispatcher) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Dismiss removes a banner before its auto-dismiss timer fires.
func (d *Dispatcher) Dismiss(id string) {
	d.mu.Lock()
	if t, ok := d.timers[id]; ok {
		t.Stop()
		delete(d.timers, id)
	}
	closed := d.closed
	d.mu.Unlock()
	if closed || d.banners == nil {
		return
	}
	d.banners.Dismiss(id)
}

// Close cancels all auto-dismiss timers and drops pending effects.
// Subsequent dispatches are no-ops. It does not close the push sink;
// ownership of sinks stays with the caller.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	for id, t := range d.timers {
		t.Stop()
		delete(d.timers, id)
	}
	d.pending = nil
}

func (d *Dispatcher) appendHistoryLocked(rec NotificationRecord) {
	d.history = append(d.history, rec)
	for len(d.history) > d.historySize {
		evicted := d.history[0]
		d.history = d.history[1:]
		delete(d.dispatched, evicted.Alert.ID)
	}
}

func (d *Dispatcher) enqueuePendingLocked(eff pendingEffect) {
	d.pending = append(d.pending, eff)
	if len(d.pending) > d.queueSize {
		dropped := len(d.pending) - d.queueSize
		d.pending = d.pending[dropped:]
		d.logger.Warn("pending notification queue full, dropping oldest",
			zap.Int("dropped", dropped))
	}
}

func (d *Dispatcher) showBanner(b Banner, dismissAfter time.Duration) {
	if d.banners == nil {
		return
	}
	if err := d.banners.Show(b); err != nil {
		d.logger.Warn("banner display failed", zap.String("banner", b.ID), zap.Error(err))
		return
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.banners.Dismiss(b.ID)
		return
	}
	id := b.ID
	d.timers[id] = time.AfterFunc(dismissAfter, func() {
		d.mu.Lock()
		delete(d.timers, id)
		closed := d.closed
		d.mu.Unlock()
		if !closed {
			d.banners.Dismiss(id)
		}
	})
	d.mu.Unlock()
}

func (d *Dispatcher) deliverPush(p PushNotification) {
	if d.push == nil {
		return
	}
	if err := d.push.Push(p); err != nil {
		d.logger.Warn("push delivery failed", zap.String("tag", p.Tag), zap.Error(err))
	}
}

func bannerFor(a Alert) Banner {
	return Banner{
		ID:        fmt.Sprintf("alert-%d", a.ID),
		Title:     bannerTitle(a),
		Message:   alertBody(a),
		Severity:  a.Severity,
		RiskScore: a.RiskScore,
		Timestamp: time.Now(),
	}
}

func pushFor(a Alert) PushNotification {
	return PushNotification{
		Tag:                fmt.Sprintf("alert-%d", a.ID),
		Title:              bannerTitle(a),
		Body:               alertBody(a),
		Severity:           a.Severity,
		RiskScore:          a.RiskScore,
		RequireInteraction: a.Critical(),
		Timestamp:          time.Now(),
	}
}

func bannerTitle(a Alert) string {
	if a.Critical() {
		return "Critical Fraud Alert"
	}
	return "New Fraud Alert"
}

func alertBody(a Alert) string {
	body := fmt.Sprintf("Risk Score: %.1f - %s", a.RiskScore, a.ContentPreview)
	if a.SourcePlatform != "" {
		body += fmt.Sprintf(" (%s)", a.SourcePlatform)
	}
	return body
}
