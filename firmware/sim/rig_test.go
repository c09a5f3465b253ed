package sim

import (
	"io"
	"testing"

	"github.com/calvinmclean/tensile"
	"github.com/calvinmclean/tensile/firmware/sensor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pulse(s *RigStep, n int) {
	for range n {
		s.Set(true)
		s.Set(false)
	}
}

func TestRigMotion(t *testing.T) {
	r := NewRig(DefaultSpecimen(), 1)
	step := r.StepPin()

	r.DirPin().Set(true)
	pulse(step, 100)
	assert.EqualValues(t, 100, r.Position())

	r.DirPin().Set(false)
	pulse(step, 30)
	assert.EqualValues(t, 70, r.Position())
}

func TestRigSpecimen(t *testing.T) {
	s := Specimen{SlackMM: 1, Stiffness: 100, BreakForce: 250}
	r := NewRig(s, 1)
	step := r.StepPin()
	r.DirPin().Set(true)

	pulse(step, int(tensile.StepsPerMM))
	assert.Zero(t, r.Force(), "still in the slack")

	pulse(step, int(tensile.StepsPerMM))
	assert.InDelta(t, 100, r.Force(), 0.001)

	activity, err := r.Accelerometer().ReadActivity()
	require.NoError(t, err)
	assert.Zero(t, activity)

	pulse(step, 2*int(tensile.StepsPerMM))
	assert.Zero(t, r.Force())
	assert.True(t, r.Broken())

	activity, err = r.Accelerometer().ReadActivity()
	require.NoError(t, err)
	assert.Equal(t, uint8(sensor.ActivityBit), activity)

	activity, err = r.Accelerometer().ReadActivity()
	require.NoError(t, err)
	assert.Zero(t, activity, "reading clears the flag")
}

func TestRigLoadCell(t *testing.T) {
	r := NewRig(DefaultSpecimen(), 1)
	lc := r.LoadCell()
	require.True(t, lc.Ready())
	assert.InDelta(t, r.Baseline, lc.ReadRaw(), 50)
}

func TestRigEndstop(t *testing.T) {
	r := NewRig(Specimen{BreakForce: 1}, 1)
	r.EndstopMM = 1
	step := r.StepPin()
	r.DirPin().Set(true)

	assert.True(t, r.Endstop().Get())
	pulse(step, int(tensile.StepsPerMM))
	assert.False(t, r.Endstop().Get())
}

func TestStream(t *testing.T) {
	s := NewStream(2)

	for _, msg := range []string{"a\n", "b\n", "dropped\n"} {
		n, err := s.Write([]byte(msg))
		require.NoError(t, err)
		assert.Equal(t, len(msg), n)
	}
	require.NoError(t, s.Close())

	out, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", string(out))

	_, err = s.Write([]byte("x"))
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestLink(t *testing.T) {
	out := &LineWriter{}
	l := &Link{Out: out}

	_, err := l.ReadByte()
	assert.ErrorIs(t, err, ErrNoData)

	l.SendLine("UP")
	var got []byte
	for {
		b, err := l.ReadByte()
		if err != nil {
			break
		}
		got = append(got, b)
	}
	assert.Equal(t, "UP\n", string(got))

	_, err = l.Write([]byte("EVENT;JOG_UP\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "EVENT;JOG_UP\r\n", out.String())
}
