package notify

import (
	"time"

	"go.uber.org/zap"
)

// PushNotification is the OS-notification analog delivered to push sinks.
// Tag is a stable de-duplication key derived from the alert ID.
type PushNotification struct {
	Tag                string
	Title              string
	Body               string
	Severity           Severity
	RiskScore          float64
	RequireInteraction bool
	Timestamp          time.Time
}

// Banner is an in-app notification surfaced by a BannerView.
type Banner struct {
	ID        string
	Title     string
	Message   string
	Severity  Severity
	RiskScore float64
	Timestamp time.Time
}

// SoundPlayer plays a tone sequence. Implementations must be safe for
// concurrent use.
type SoundPlayer interface {
	PlayTones(seq []Tone) error
}

// Vibrator triggers a device vibration pattern.
type Vibrator interface {
	Vibrate(pattern []time.Duration) error
}

// PushSink delivers push notifications to an external channel.
type PushSink interface {
	Push(n PushNotification) error
	Close() error
}

// BannerView renders in-app banners. Dismiss removes a banner that was
// previously shown; dismissing an unknown ID is a no-op.
type BannerView interface {
	Show(b Banner) error
	Dismiss(id string)
}

// MultiPush fans a push notification out to several sinks. A failing sink
// does not stop delivery to the others.
type MultiPush struct {
	logger *zap.Logger
	sinks  []PushSink
}

// NewMultiPush creates a MultiPush from the given sinks, skipping nils.
func NewMultiPush(logger *zap.Logger, sinks ...PushSink) *MultiPush {
	if logger == nil {
		logger = zap.NewNop()
	}
	var active []PushSink
	for _, s := range sinks {
		if s != nil {
			active = append(active, s)
		}
	}
	return &MultiPush{logger: logger, sinks: active}
}

// Push delivers to all registered sinks.
func (m *MultiPush) Push(n PushNotification) error {
	for _, s := range m.sinks {
		if err := s.Push(n); err != nil {
			m.logger.Warn("push sink failed", zap.String("tag", n.Tag), zap.Error(err))
		}
	}
	return nil
}

// Close closes all registered sinks, returning the last error seen.
func (m *MultiPush) Close() error {
	var lastErr error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Count returns the number of active sinks.
func (m *MultiPush) Count() int {
	return len(m.sinks)
}

// LogBannerView is the default BannerView for headless runs: banners are
// written to the structured log instead of a rendering surface.
type LogBannerView struct {
	logger *zap.Logger
}

// NewLogBannerView creates a log-backed banner view.
func NewLogBannerView(logger *zap.Logger) *LogBannerView {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogBannerView{logger: logger}
}

// Show logs the banner.
func (v *LogBannerView) Show(b Banner) error {
	v.logger.Info("banner shown",
		zap.String("id", b.ID),
		zap.String("severity", string(b.Severity)),
		zap.Float64("riskScore", b.RiskScore),
		zap.String("title", b.Title),
		zap.String("message", b.Message),
	)
	return nil
}

// Dismiss logs the removal.
func (v *LogBannerView) Dismiss(id string) {
	v.logger.Debug("banner dismissed", zap.String("id", id))
}
