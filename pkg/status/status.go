package status

import (
	"time"

	"opsdash/pkg/transport"
)

const defaultDegradedAfter = 75 * time.Second

// Quality is the tri-state connection signal shown in UI chrome.
type Quality string

const (
	// QualityHealthy means the channel is open with recent traffic.
	QualityHealthy Quality = "healthy"
	// QualityDegraded means the channel is open but nothing has arrived
	// recently, including keepalive replies.
	QualityDegraded Quality = "degraded"
	// QualityDisconnected means the channel is closed or given up.
	QualityDisconnected Quality = "disconnected"
)

// Connection is the slice of transport state the monitor derives from.
// *transport.Client satisfies it.
type Connection interface {
	IsConnected() bool
	GaveUp() bool
	LastInboundAt() time.Time
	ForceReconnect()
	SubscribeStatus(fn transport.StatusHandler) func()
}

// Monitor derives the connection status surface from transport state. It
// holds no business logic and no state of its own.
type Monitor struct {
	client        Connection
	degradedAfter time.Duration
}

// NewMonitor wraps a transport client. degradedAfter <= 0 uses the default,
// sized to tolerate two missed keepalive rounds.
func NewMonitor(client Connection, degradedAfter time.Duration) *Monitor {
	if degradedAfter <= 0 {
		degradedAfter = defaultDegradedAfter
	}

	return &Monitor{client: client, degradedAfter: degradedAfter}
}

// IsConnected reports whether the underlying connection is open.
func (m *Monitor) IsConnected() bool {
	return m.client.IsConnected()
}

// GaveUp reports whether automatic reconnection has stopped and a manual
// retry is required.
func (m *Monitor) GaveUp() bool {
	return m.client.GaveUp()
}

// Quality classifies the current connection health.
func (m *Monitor) Quality() Quality {
	if !m.client.IsConnected() {
		return QualityDisconnected
	}

	last := m.client.LastInboundAt()
	if !last.IsZero() && time.Since(last) > m.degradedAfter {
		return QualityDegraded
	}

	return QualityHealthy
}

// ForceReconnect tears down and re-initiates the connection sequence with a
// reset attempt budget.
func (m *Monitor) ForceReconnect() {
	m.client.ForceReconnect()
}

// SubscribeStatus forwards open/closed transitions from the transport.
func (m *Monitor) SubscribeStatus(fn transport.StatusHandler) func() {
	return m.client.SubscribeStatus(fn)
}
