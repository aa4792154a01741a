package status

import (
	"testing"
	"time"

	"opsdash/pkg/transport"
)

type fakeConnection struct {
	connected   bool
	gaveUp      bool
	lastInbound time.Time
	reconnects  int
}

func (f *fakeConnection) IsConnected() bool        { return f.connected }
func (f *fakeConnection) GaveUp() bool             { return f.gaveUp }
func (f *fakeConnection) LastInboundAt() time.Time { return f.lastInbound }
func (f *fakeConnection) ForceReconnect()          { f.reconnects++ }

func (f *fakeConnection) SubscribeStatus(transport.StatusHandler) func() {
	return func() {}
}

func TestQualityDisconnected(t *testing.T) {
	t.Parallel()

	m := NewMonitor(&fakeConnection{}, 0)
	if got := m.Quality(); got != QualityDisconnected {
		t.Fatalf("Quality() = %q, want %q", got, QualityDisconnected)
	}
	if m.IsConnected() {
		t.Fatal("IsConnected() = true for disconnected fake")
	}
}

func TestQualityHealthyWithRecentTraffic(t *testing.T) {
	t.Parallel()

	conn := &fakeConnection{connected: true, lastInbound: time.Now()}
	m := NewMonitor(conn, time.Minute)
	if got := m.Quality(); got != QualityHealthy {
		t.Fatalf("Quality() = %q, want %q", got, QualityHealthy)
	}
}

func TestQualityHealthyBeforeFirstFrame(t *testing.T) {
	t.Parallel()

	// A just-opened connection with no traffic yet is not degraded.
	conn := &fakeConnection{connected: true}
	m := NewMonitor(conn, time.Minute)
	if got := m.Quality(); got != QualityHealthy {
		t.Fatalf("Quality() = %q, want %q", got, QualityHealthy)
	}
}

func TestQualityDegradedWithoutRecentTraffic(t *testing.T) {
	t.Parallel()

	conn := &fakeConnection{connected: true, lastInbound: time.Now().Add(-2 * time.Minute)}
	m := NewMonitor(conn, time.Minute)
	if got := m.Quality(); got != QualityDegraded {
		t.Fatalf("Quality() = %q, want %q", got, QualityDegraded)
	}
}

func TestForceReconnectPassthrough(t *testing.T) {
	t.Parallel()

	conn := &fakeConnection{gaveUp: true}
	m := NewMonitor(conn, 0)
	if !m.GaveUp() {
		t.Fatal("GaveUp() = false")
	}

	m.ForceReconnect()
	if conn.reconnects != 1 {
		t.Fatalf("reconnects = %d, want 1", conn.reconnects)
	}
}
