package notify

import (
	"errors"
	"sync"
	"time"
)

type mockSound struct {
	mu     sync.Mutex
	played [][]Tone
	err    error
}

func (m *mockSound) PlayTones(seq []Tone) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.played = append(m.played, seq)
	return m.err
}

func (m *mockSound) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.played)
}

func (m *mockSound) last() []Tone {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.played) == 0 {
		return nil
	}
	return m.played[len(m.played)-1]
}

type mockVibrator struct {
	mu       sync.Mutex
	patterns [][]time.Duration
	err      error
}

func (m *mockVibrator) Vibrate(pattern []time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns = append(m.patterns, pattern)
	return m.err
}

func (m *mockVibrator) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.patterns)
}

type mockPush struct {
	mu     sync.Mutex
	pushed []PushNotification
	err    error
	closed bool
}

func (m *mockPush) Push(n PushNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushed = append(m.pushed, n)
	return m.err
}

func (m *mockPush) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockPush) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pushed)
}

func (m *mockPush) tags() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.pushed))
	for i, n := range m.pushed {
		out[i] = n.Tag
	}
	return out
}

type mockBanners struct {
	mu        sync.Mutex
	shown     []Banner
	dismissed []string
	err       error
}

func (m *mockBanners) Show(b Banner) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.shown = append(m.shown, b)
	return nil
}

func (m *mockBanners) Dismiss(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dismissed = append(m.dismissed, id)
}

func (m *mockBanners) shownCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.shown)
}

func (m *mockBanners) shownIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.shown))
	for i, b := range m.shown {
		out[i] = b.ID
	}
	return out
}

func (m *mockBanners) dismissedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.dismissed)
}

var errSinkBroken = errors.New("sink broken")
