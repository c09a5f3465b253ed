package tensile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunStateOrdinals(t *testing.T) {
	tests := []struct {
		state    RunState
		ordinal  int
		name     string
		isMoving bool
	}{
		{StateIdle, 0, "IDLE", false},
		{StateRunning, 1, "RUNNING", true},
		{StateStopped, 2, "STOPPED", false},
		{StateError, 3, "ERROR", false},
		{StateJogging, 4, "JOG", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ordinal, int(tt.state))
			assert.Equal(t, tt.name, tt.state.String())
			assert.Equal(t, tt.isMoving, tt.state.Moving())

			parsed, ok := ParseRunState(tt.ordinal)
			assert.True(t, ok)
			assert.Equal(t, tt.state, parsed)
		})
	}

	_, ok := ParseRunState(5)
	assert.False(t, ok)
	_, ok = ParseRunState(-1)
	assert.False(t, ok)
}

func TestConversions(t *testing.T) {
	assert.Equal(t, 200.0, float64(StepsPerMM))
	assert.InDelta(t, 1.0, StepsToMM(200), 1e-9)
	assert.InDelta(t, -0.5, StepsToMM(-100), 1e-9)
	assert.InDelta(t, 2.217, RawToNewton(10000), 1e-9)
	assert.InDelta(t, 10000, NewtonToRaw(2.217), 1)
}
