package phaseclock

import (
	"context"
	"math"
	"testing"
	"testing/quick"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/werewolf/go/internal/models"
)

func TestReadingCountsDownAndClamps(t *testing.T) {
	fake := clockwork.NewFakeClock()
	c := New(fake, DefaultDurations())
	c.Update(models.PhaseNight, fake.Now().Add(30*time.Second), true)

	if got := c.Reading().Seconds; got != 30 {
		t.Errorf("Expected 30s remaining, got %d", got)
	}

	fake.Advance(10 * time.Second)
	if got := c.Reading().Seconds; got != 20 {
		t.Errorf("Expected 20s remaining, got %d", got)
	}

	fake.Advance(45 * time.Second)
	r := c.Reading()
	if r.Remaining != 0 || r.Seconds != 0 {
		t.Errorf("Expected remaining clamped to 0, got %v", r.Remaining)
	}
}

func TestReadingNeverIncreasesWithinPhase(t *testing.T) {
	property := func(steps []uint16) bool {
		fake := clockwork.NewFakeClock()
		c := New(fake, DefaultDurations())
		c.Update(models.PhaseDay, fake.Now().Add(90*time.Second), true)

		prev := c.Reading().Remaining
		for _, step := range steps {
			fake.Advance(time.Duration(step%5000) * time.Millisecond)
			// Re-reporting the same deadline must not restart the countdown.
			c.Update(models.PhaseDay, deadline(c), true)

			cur := c.Reading().Remaining
			if cur > prev || cur < 0 {
				return false
			}
			prev = cur
		}
		return true
	}

	if err := quick.Check(property, nil); err != nil {
		t.Error(err)
	}
}

// deadline returns the phase end the clock is already tracking.
func deadline(c *Clock) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.end
}

func TestUpdateWithNewDeadlineRestarts(t *testing.T) {
	fake := clockwork.NewFakeClock()
	c := New(fake, DefaultDurations())
	c.Update(models.PhaseNight, fake.Now().Add(5*time.Second), true)
	fake.Advance(10 * time.Second)
	if got := c.Reading().Seconds; got != 0 {
		t.Fatalf("Expected expired night, got %d", got)
	}

	c.Update(models.PhaseDay, fake.Now().Add(120*time.Second), true)
	if got := c.Reading().Seconds; got != 120 {
		t.Errorf("Expected fresh 120s day countdown, got %d", got)
	}
}

func TestUntimedPhase(t *testing.T) {
	c := New(clockwork.NewFakeClock(), DefaultDurations())
	c.UpdateFromSnapshot(&models.GameSnapshot{Phase: models.PhaseLobby})

	r := c.Reading()
	if r.Remaining != 0 || r.Progress != 0 {
		t.Errorf("Expected zero reading for lobby, got %+v", r)
	}
}

func TestProgress(t *testing.T) {
	tests := []struct {
		name      string
		total     time.Duration
		remaining time.Duration
		want      float64
	}{
		{"start", 60 * time.Second, 60 * time.Second, 0},
		{"half", 60 * time.Second, 30 * time.Second, 50},
		{"done", 60 * time.Second, 0, 100},
		{"server longer than nominal", 60 * time.Second, 90 * time.Second, 0},
		{"untimed", 0, 10 * time.Second, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := progress(tt.total, tt.remaining); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("progress() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRunTicksEverySecond(t *testing.T) {
	fake := clockwork.NewFakeClock()
	c := New(fake, DefaultDurations())
	c.Update(models.PhaseNight, fake.Now().Add(3*time.Second), true)

	ctx, cancel := context.WithCancel(context.Background())
	readings := make(chan Reading, 10)
	done := make(chan struct{})
	go func() {
		c.Run(ctx, func(r Reading) { readings <- r })
		close(done)
	}()

	if got := (<-readings).Seconds; got != 3 {
		t.Fatalf("Expected initial reading of 3s, got %d", got)
	}

	for want := 2; want >= 0; want-- {
		if err := fake.BlockUntilContext(ctx, 1); err != nil {
			t.Fatalf("BlockUntilContext() error = %v", err)
		}
		fake.Advance(time.Second)
		if got := (<-readings).Seconds; got != want {
			t.Errorf("Expected %ds, got %d", want, got)
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestFormat(t *testing.T) {
	tests := map[time.Duration]string{
		0:                 "0:00",
		-3 * time.Second:  "0:00",
		59 * time.Second:  "0:59",
		125 * time.Second: "2:05",
	}
	for in, want := range tests {
		if got := Format(in); got != want {
			t.Errorf("Format(%v) = %q, want %q", in, got, want)
		}
	}
}
