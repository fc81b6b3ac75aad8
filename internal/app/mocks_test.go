package app

import (
	"net/http/httptest"
	"sync"
	"testing"

	"fraudshield/clients/fraudshieldapi"
	"fraudshield/clients/notify"
	"fraudshield/config"

	"go.uber.org/zap"
)

// recordingPush is a notify.PushSink that records delivered
// notifications.
type recordingPush struct {
	mu     sync.Mutex
	pushes []notify.PushNotification
	closed bool
}

func (p *recordingPush) Push(n notify.PushNotification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushes = append(p.pushes, n)
	return nil
}

func (p *recordingPush) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *recordingPush) Pushes() []notify.PushNotification {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]notify.PushNotification, len(p.pushes))
	copy(out, p.pushes)
	return out
}

// recordingBanner is a notify.BannerView that records shown banners.
type recordingBanner struct {
	mu        sync.Mutex
	shown     []notify.Banner
	dismissed []string
}

func (b *recordingBanner) Show(banner notify.Banner) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shown = append(b.shown, banner)
	return nil
}

func (b *recordingBanner) Dismiss(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dismissed = append(b.dismissed, id)
}

func (b *recordingBanner) Shown() []notify.Banner {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]notify.Banner, len(b.shown))
	copy(out, b.shown)
	return out
}

func newTestDispatcher(banner notify.BannerView, push notify.PushSink) *notify.Dispatcher {
	return notify.NewDispatcher(zap.NewNop(), banner, nil, nil, push, notify.DispatcherConfig{})
}

// apiClientFor builds an API client pointed at a test server.
func apiClientFor(t *testing.T, server *httptest.Server) *fraudshieldapi.Client {
	t.Helper()
	cfg := config.Defaults()
	cfg.API.BaseURL = server.URL
	return fraudshieldapi.NewClient(zap.NewNop(), cfg)
}

func testAlert(id int64, riskScore float64, severity notify.Severity) notify.Alert {
	return notify.Alert{
		ID:             id,
		RiskScore:      riskScore,
		Severity:       severity,
		ContentType:    notify.ContentText,
		ContentPreview: "test content",
		SourcePlatform: "Twitter",
		IsNew:          true,
	}
}
