package connection

import (
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Status is the transport health shown to the player.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

// State is a point-in-time copy of the monitor.
type State struct {
	Status      Status    `json:"status"`
	LastSuccess time.Time `json:"last_success"`
	Error       string    `json:"error,omitempty"`
}

// Monitor tracks transport health. It does no I/O; the sync engine drives
// every transition.
type Monitor struct {
	clock clockwork.Clock

	mu          sync.RWMutex
	status      Status
	lastSuccess time.Time
	lastError   string
}

func NewMonitor(clock clockwork.Clock) *Monitor {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Monitor{
		clock:  clock,
		status: StatusConnecting,
	}
}

// BeginPoll is called immediately before a poll cycle issues its requests.
func (m *Monitor) BeginPoll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = StatusConnecting
}

// MarkSuccess records a successful public snapshot fetch and clears any
// stored error.
func (m *Monitor) MarkSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = StatusConnected
	m.lastSuccess = m.clock.Now()
	m.lastError = ""
}

// MarkFailure records a failed poll. The last success time is kept.
func (m *Monitor) MarkFailure(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = StatusDisconnected
	m.lastError = message
}

// ReportError surfaces a recoverable failure outside the poll path without
// touching transport status. The next successful poll clears it.
func (m *Monitor) ReportError(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastError = message
}

func (m *Monitor) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return State{
		Status:      m.status,
		LastSuccess: m.lastSuccess,
		Error:       m.lastError,
	}
}

// SinceLastSuccess renders the time since the last successful sync.
func (m *Monitor) SinceLastSuccess() string {
	state := m.State()
	return FormatSince(state.LastSuccess, m.clock.Now())
}

// FormatSince renders how long ago last was, relative to now.
func FormatSince(last, now time.Time) string {
	if last.IsZero() {
		return "never"
	}

	diff := int(now.Sub(last) / time.Second)
	switch {
	case diff < 5:
		return "just now"
	case diff < 60:
		return fmt.Sprintf("%ds ago", diff)
	case diff < 3600:
		return fmt.Sprintf("%dm ago", diff/60)
	default:
		return last.Local().Format("15:04:05")
	}
}
