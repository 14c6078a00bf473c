package phaseclock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/werewolf/go/internal/models"
)

// TickInterval is how often a running clock re-evaluates the countdown.
const TickInterval = time.Second

// Durations are the nominal phase lengths. They only feed the progress
// ratio; the server's phase_end is authoritative for remaining time.
type Durations struct {
	Night time.Duration `yaml:"night"`
	Day   time.Duration `yaml:"day"`
}

func DefaultDurations() Durations {
	return Durations{
		Night: 60 * time.Second,
		Day:   120 * time.Second,
	}
}

// For returns the nominal duration of phase, zero for untimed phases.
func (d Durations) For(phase models.Phase) time.Duration {
	switch phase {
	case models.PhaseNight:
		return d.Night
	case models.PhaseDay:
		return d.Day
	default:
		return 0
	}
}

// Reading is one evaluation of the countdown.
type Reading struct {
	Phase     models.Phase  `json:"phase"`
	Remaining time.Duration `json:"-"`
	Seconds   int           `json:"remaining_sec"`
	Progress  float64       `json:"progress_pct"`
}

// Clock derives a countdown from an absolute phase end. Within one
// (phase, phase_end) pair the remaining time never increases.
type Clock struct {
	clock     clockwork.Clock
	durations Durations

	mu     sync.Mutex
	phase  models.Phase
	end    time.Time
	hasEnd bool
	floor  time.Duration
}

func New(clock clockwork.Clock, durations Durations) *Clock {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Clock{
		clock:     clock,
		durations: durations,
		floor:     -1,
	}
}

// Update feeds the latest snapshot. A change of phase or phase end starts a
// new countdown; repeating the same pair is a no-op.
func (c *Clock) Update(phase models.Phase, end time.Time, hasEnd bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if phase == c.phase && hasEnd == c.hasEnd && end.Equal(c.end) {
		return
	}
	c.phase = phase
	c.end = end
	c.hasEnd = hasEnd
	c.floor = -1
}

// UpdateFromSnapshot is Update for a whole snapshot.
func (c *Clock) UpdateFromSnapshot(snap *models.GameSnapshot) {
	if snap == nil {
		return
	}
	end, ok := snap.PhaseDeadline()
	c.Update(snap.Phase, end, ok)
}

// Reading evaluates the countdown against the current time.
func (c *Clock) Reading() Reading {
	c.mu.Lock()
	defer c.mu.Unlock()

	remaining := time.Duration(0)
	if c.hasEnd {
		remaining = c.end.Sub(c.clock.Now())
		if remaining < 0 {
			remaining = 0
		}
		if c.floor >= 0 && remaining > c.floor {
			remaining = c.floor
		}
		c.floor = remaining
	}

	return Reading{
		Phase:     c.phase,
		Remaining: remaining,
		Seconds:   int(remaining / time.Second),
		Progress:  progress(c.durations.For(c.phase), remaining),
	}
}

func progress(total, remaining time.Duration) float64 {
	if total <= 0 {
		return 0
	}
	pct := float64(total-remaining) / float64(total) * 100
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	default:
		return pct
	}
}

// Run calls fn with a fresh reading every second until ctx is done. The
// ticker is always released on return.
func (c *Clock) Run(ctx context.Context, fn func(Reading)) {
	ticker := c.clock.NewTicker(TickInterval)
	defer ticker.Stop()

	fn(c.Reading())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			fn(c.Reading())
		}
	}
}

// Format renders a duration as m:ss.
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
