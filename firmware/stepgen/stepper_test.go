package stepgen

import (
	"testing"
	"time"

	"github.com/calvinmclean/tensile/firmware/sim"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeInterval(t *testing.T) {
	tests := []struct {
		speed    float64
		expected time.Duration
	}{
		{0, IdleInterval},
		{-5, IdleInterval},
		{300, time.Millisecond},
		{120, 2500 * time.Microsecond},
		{600, 500 * time.Microsecond},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ComputeInterval(tt.speed), "speed %v", tt.speed)
	}
}

func TestComputeIntervalMonotonic(t *testing.T) {
	prev := ComputeInterval(0.1)
	require.Greater(t, prev, time.Duration(0))

	for s := 0.2; s < 600; s += 0.1 {
		interval := ComputeInterval(s)
		assert.Greater(t, interval, time.Duration(0))
		assert.Less(t, interval, prev, "speed %v", s)
		prev = interval
	}
}

func TestDue(t *testing.T) {
	m := Motion{Interval: time.Millisecond, Direction: 1}

	assert.False(t, Due(0, 0, m))
	assert.False(t, Due(999*time.Microsecond, 0, m))
	assert.True(t, Due(time.Millisecond, 0, m))
	assert.True(t, Due(5*time.Millisecond, time.Millisecond, m))
}

func TestNew(t *testing.T) {
	_, err := New(Config{Step: &sim.Pin{}})
	require.Error(t, err)
}

func TestGenerator(t *testing.T) {
	step, dir := &sim.Pin{}, &sim.Pin{}
	var held []time.Duration
	g, err := New(Config{
		Step:  step,
		Dir:   dir,
		Delay: func(d time.Duration) { held = append(held, d) },
	})
	require.NoError(t, err)

	m := NewMotion(300, 1)
	g.Rearm(0)

	var steps int
	for now := time.Duration(0); now <= 10*time.Millisecond; now += 100 * time.Microsecond {
		if g.Tick(now, m) {
			steps++
		}
	}

	assert.Equal(t, 10, steps)
	assert.Equal(t, 10, step.Rising)
	assert.False(t, step.Get())
	assert.Equal(t, 10*time.Millisecond, g.LastStep())
	require.Len(t, held, 10)
	assert.GreaterOrEqual(t, held[0], 10*time.Microsecond)
}

func TestSetDirection(t *testing.T) {
	tests := []struct {
		name      string
		invert    bool
		direction int
		level     bool
	}{
		{"Up", false, 1, true},
		{"Down", false, -1, false},
		{"InvertedUp", true, 1, false},
		{"InvertedDown", true, -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := &sim.Pin{}
			g, err := New(Config{Step: &sim.Pin{}, Dir: dir, InvertDir: tt.invert})
			require.NoError(t, err)

			g.SetDirection(tt.direction)
			assert.Equal(t, tt.level, dir.Get())
		})
	}
}
