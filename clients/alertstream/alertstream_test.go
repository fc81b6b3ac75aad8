package alertstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// streamServer is a minimal dashboard stream endpoint: it records every
// client envelope and answers join_dashboard with joined_dashboard.
type streamServer struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu       sync.Mutex
	conns    []*websocket.Conn
	received chan envelope
}

func newStreamServer(t *testing.T) *streamServer {
	t.Helper()
	s := &streamServer{
		received: make(chan envelope, 64),
	}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()

		for {
			var env envelope
			if err := conn.ReadJSON(&env); err != nil {
				return
			}
			s.received <- env
			if env.Event == EventJoinDashboard {
				_ = conn.WriteJSON(envelope{Event: EventJoinedDashboard})
			}
			if env.Event == EventPing {
				_ = conn.WriteJSON(envelope{Event: EventPong})
			}
		}
	}))
	return s
}

func (s *streamServer) url() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func (s *streamServer) send(t *testing.T, event string, data any) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.conns) == 0 {
		t.Fatal("no client connected")
	}
	env := envelope{Event: event}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			t.Fatalf("marshal test payload: %v", err)
		}
		env.Data = raw
	}
	if err := s.conns[len(s.conns)-1].WriteJSON(env); err != nil {
		t.Fatalf("send test frame: %v", err)
	}
}

func (s *streamServer) expect(t *testing.T, event string) envelope {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case env := <-s.received:
			if env.Event == event {
				return env
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", event)
		}
	}
}

func (s *streamServer) close() {
	s.mu.Lock()
	for _, c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()
	s.srv.Close()
}

func newTestClient(url string) *Client {
	return NewClient(zap.NewNop(), Config{
		URL:                  url,
		PingInterval:         50 * time.Millisecond,
		ReconnectDelay:       20 * time.Millisecond,
		MaxReconnectAttempts: 3,
	})
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(nil, Config{URL: "ws://localhost/stream"})

	if client.logger == nil {
		t.Error("expected logger to be set")
	}
	if client.pingInterval != 30*time.Second {
		t.Errorf("unexpected ping interval: %v", client.pingInterval)
	}
	if client.reconnectDelay != 5*time.Second {
		t.Errorf("unexpected reconnect delay: %v", client.reconnectDelay)
	}
	if client.maxAttempts != 5 {
		t.Errorf("unexpected attempt budget: %d", client.maxAttempts)
	}
	if state, _ := client.State(); state != StateDisconnected {
		t.Errorf("new client should be disconnected, got %s", state)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateDisconnected, "disconnected"},
		{StateConnecting, "connecting"},
		{StateConnected, "connected"},
		{StateReconnecting, "reconnecting"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %s, want %s", tt.state, got, tt.want)
		}
	}
}

func TestEmit_NotConnected(t *testing.T) {
	client := NewClient(nil, Config{URL: "ws://localhost/stream"})

	if err := client.Emit(EventRequestAlerts, nil); err == nil {
		t.Error("expected error when not connected")
	}
}

func TestClose_NoConnection(t *testing.T) {
	client := NewClient(nil, Config{URL: "ws://localhost/stream"})

	for i := 0; i < 3; i++ {
		if err := client.Close(); err != nil {
			t.Errorf("close %d returned error: %v", i, err)
		}
	}
}

func TestConnect_JoinsAndRequestsSnapshot(t *testing.T) {
	server := newStreamServer(t)
	defer server.close()

	client := newTestClient(server.url())
	defer client.Close()

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	server.expect(t, EventJoinDashboard)
	// joined_dashboard triggers the initial snapshot pulls.
	server.expect(t, EventRequestAlerts)
	server.expect(t, EventRequestStats)

	if state, _ := client.State(); state != StateConnected {
		t.Errorf("expected connected state, got %s", state)
	}
}

func TestConnect_Idempotent(t *testing.T) {
	server := newStreamServer(t)
	defer server.close()

	client := newTestClient(server.url())
	defer client.Close()

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	server.expect(t, EventJoinDashboard)

	if err := client.Connect(context.Background()); err != nil {
		t.Errorf("second connect should be a no-op, got: %v", err)
	}

	// No second join may arrive.
	select {
	case env := <-server.received:
		if env.Event == EventJoinDashboard {
			t.Error("second connect re-joined the dashboard")
		}
	case <-time.After(100 * time.Millisecond):
	}
}

func TestOn_HandlersRunInRegistrationOrder(t *testing.T) {
	server := newStreamServer(t)
	defer server.close()

	client := newTestClient(server.url())
	defer client.Close()

	var mu sync.Mutex
	var order []string
	done := make(chan struct{})
	client.On(EventNewAlert, func(data json.RawMessage) {
		mu.Lock()
		order = append(order, "first")
		mu.Unlock()
	})
	client.On(EventNewAlert, func(data json.RawMessage) {
		mu.Lock()
		order = append(order, "second")
		mu.Unlock()
		close(done)
	})

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	server.expect(t, EventJoinDashboard)

	server.send(t, EventNewAlert, map[string]any{"id": 1, "severity": "high"})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handlers not invoked")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("handlers ran out of order: %v", order)
	}
}

func TestOn_PayloadDelivered(t *testing.T) {
	server := newStreamServer(t)
	defer server.close()

	client := newTestClient(server.url())
	defer client.Close()

	payloads := make(chan json.RawMessage, 1)
	client.On(EventNewAlert, func(data json.RawMessage) {
		payloads <- data
	})

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	server.expect(t, EventJoinDashboard)

	server.send(t, EventNewAlert, map[string]any{"id": 7, "risk_score": 8.5})

	select {
	case data := <-payloads:
		var alert struct {
			ID        int64   `json:"id"`
			RiskScore float64 `json:"risk_score"`
		}
		if err := json.Unmarshal(data, &alert); err != nil {
			t.Fatalf("payload not decodable: %v", err)
		}
		if alert.ID != 7 || alert.RiskScore != 8.5 {
			t.Errorf("unexpected payload: %+v", alert)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("payload not delivered")
	}
}

func TestHeartbeat_Sent(t *testing.T) {
	server := newStreamServer(t)
	defer server.close()

	client := newTestClient(server.url())
	defer client.Close()

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	server.expect(t, EventPing)
}

func TestReconnect_ExhaustsBudgetAndGoesTerminal(t *testing.T) {
	server := newStreamServer(t)

	client := newTestClient(server.url())
	defer client.Close()

	var mu sync.Mutex
	var attempts []int
	client.OnStateChange(func(state State, attempt int) {
		if state == StateReconnecting {
			mu.Lock()
			attempts = append(attempts, attempt)
			mu.Unlock()
		}
	})
	terminal := make(chan struct{})
	client.OnTerminal(func() {
		close(terminal)
	})

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	server.expect(t, EventJoinDashboard)

	// Killing the server fails the read and every redial after it.
	server.close()

	select {
	case <-terminal:
	case <-time.After(5 * time.Second):
		t.Fatal("client never went terminal")
	}

	mu.Lock()
	got := append([]int{}, attempts...)
	mu.Unlock()
	if len(got) != 3 {
		t.Fatalf("expected 3 reconnect attempts, got %v", got)
	}
	for i, attempt := range got {
		if attempt != i+1 {
			t.Errorf("attempt %d reported as %d", i+1, attempt)
		}
	}

	if state, _ := client.State(); state != StateDisconnected {
		t.Errorf("terminal client should be disconnected, got %s", state)
	}
}

func TestReconnect_RecoversAndResetsBudget(t *testing.T) {
	server := newStreamServer(t)
	defer server.close()

	client := newTestClient(server.url())
	defer client.Close()

	reconnected := make(chan struct{}, 4)
	client.OnStateChange(func(state State, attempt int) {
		if state == StateConnected {
			reconnected <- struct{}{}
		}
	})

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	server.expect(t, EventJoinDashboard)
	<-reconnected

	// Drop just the live connection; the server stays up so the first
	// redial succeeds.
	server.mu.Lock()
	_ = server.conns[0].Close()
	server.mu.Unlock()

	select {
	case <-reconnected:
	case <-time.After(5 * time.Second):
		t.Fatal("client did not reconnect")
	}
	server.expect(t, EventJoinDashboard)

	client.mu.Lock()
	attempts := client.attempts
	client.mu.Unlock()
	if attempts != 0 {
		t.Errorf("attempt budget not reset after reconnect: %d", attempts)
	}
}

func TestClose_CancelsReconnect(t *testing.T) {
	server := newStreamServer(t)

	client := NewClient(zap.NewNop(), Config{
		URL:                  server.url(),
		PingInterval:         time.Hour,
		ReconnectDelay:       50 * time.Millisecond,
		MaxReconnectAttempts: 3,
	})

	terminal := make(chan struct{})
	client.OnTerminal(func() {
		close(terminal)
	})

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	server.expect(t, EventJoinDashboard)

	server.close()

	// Give the read loop a moment to notice and schedule the retry,
	// then close before the retry fires.
	time.Sleep(20 * time.Millisecond)
	if err := client.Close(); err != nil {
		t.Errorf("close returned error: %v", err)
	}

	select {
	case <-terminal:
		t.Error("closed client still went terminal")
	case <-time.After(300 * time.Millisecond):
	}

	if state, _ := client.State(); state != StateDisconnected {
		t.Errorf("closed client should be disconnected, got %s", state)
	}
}

func TestClose_DiscardsStaleFrames(t *testing.T) {
	server := newStreamServer(t)
	defer server.close()

	client := newTestClient(server.url())

	handled := make(chan struct{}, 8)
	client.On(EventNewAlert, func(data json.RawMessage) {
		handled <- struct{}{}
	})

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	server.expect(t, EventJoinDashboard)

	if err := client.Close(); err != nil {
		t.Errorf("close returned error: %v", err)
	}

	// Frames written after teardown must not reach handlers.
	server.mu.Lock()
	_ = server.conns[0].WriteJSON(envelope{Event: EventNewAlert})
	server.mu.Unlock()

	select {
	case <-handled:
		t.Error("handler ran after close")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestConnect_DialFailureConsumesAttempt(t *testing.T) {
	client := NewClient(zap.NewNop(), Config{
		URL:                  "ws://127.0.0.1:1/stream",
		ReconnectDelay:       10 * time.Millisecond,
		MaxReconnectAttempts: 2,
	})
	defer client.Close()

	terminal := make(chan struct{})
	client.OnTerminal(func() {
		close(terminal)
	})

	if err := client.Connect(context.Background()); err == nil {
		t.Error("expected dial error")
	}

	select {
	case <-terminal:
	case <-time.After(5 * time.Second):
		t.Fatal("client never went terminal")
	}
}

func TestConnect_ContextCancelClosesClient(t *testing.T) {
	server := newStreamServer(t)
	defer server.close()

	client := newTestClient(server.url())
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	server.expect(t, EventJoinDashboard)

	cancel()

	deadline := time.After(2 * time.Second)
	for {
		if state, _ := client.State(); state == StateDisconnected {
			return
		}
		select {
		case <-deadline:
			t.Fatal("client did not disconnect on context cancel")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
