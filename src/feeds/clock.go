package feeds

import (
	"time"
)

// Clock assigns timestamps to generated ticks.
type Clock interface {
	// TimeAt returns the timestamp of the tick at index.
	TimeAt(index int) time.Time
}

// StepClock places tick i at start + i*step.
type StepClock struct {
	start time.Time
	step  time.Duration
}

func NewStepClock(start time.Time, step time.Duration) *StepClock {
	return &StepClock{start: start, step: step}
}

func NewDefaultStepClock() *StepClock {
	return NewStepClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Hour)
}

func (c *StepClock) TimeAt(index int) time.Time {
	return c.start.Add(time.Duration(index) * c.step)
}

// WallClock stamps ticks with the current time. Consecutive calls within the clock's
// resolution are nudged forward so timestamps stay strictly increasing.
type WallClock struct {
	now  func() time.Time
	last time.Time
}

func NewWallClock() *WallClock {
	return &WallClock{now: time.Now}
}

func (c *WallClock) TimeAt(index int) time.Time {
	t := c.now().UTC()
	if !t.After(c.last) {
		t = c.last.Add(time.Nanosecond)
	}
	c.last = t
	return t
}
