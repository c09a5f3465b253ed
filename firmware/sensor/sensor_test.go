package sensor_test

import (
	"errors"
	"testing"
	"time"

	"github.com/calvinmclean/tensile/firmware/sensor"
	"github.com/calvinmclean/tensile/firmware/sim"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tinygo.org/x/drivers/adxl345"
	"tinygo.org/x/drivers/tester"
)

// hx711Pins shifts out value MSB first on each rising clock edge
type hx711Pins struct {
	value  uint32
	busy   bool
	bit    int
	clock  bool
	pulses int
	out    bool
}

func (p *hx711Pins) Get() bool {
	if p.bit == 0 && !p.clock {
		return p.busy
	}
	return p.out
}

func (p *hx711Pins) Set(v bool) {
	if v && !p.clock {
		p.pulses++
		if p.bit < 24 {
			p.out = (p.value>>(23-p.bit))&1 == 1
			p.bit++
		}
	}
	p.clock = v
}

func TestHX711(t *testing.T) {
	tests := []struct {
		name     string
		value    uint32
		gain     sensor.Gain
		expected int32
		pulses   int
	}{
		{"Positive", 0x001234, sensor.GainA128, 0x1234, 25},
		{"MaxPositive", 0x7FFFFF, sensor.GainA128, 8388607, 25},
		{"MinusOne", 0xFFFFFF, sensor.GainA128, -1, 25},
		{"MinNegative", 0x800000, sensor.GainA64, -8388608, 27},
		{"ChannelB", 0x000010, sensor.GainB32, 16, 26},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pins := &hx711Pins{value: tt.value}
			h := sensor.NewHX711(pins, pins, tt.gain, nil)

			require.True(t, h.Ready())
			assert.Equal(t, tt.expected, h.ReadRaw())
			assert.Equal(t, tt.pulses, pins.pulses)
			assert.False(t, pins.clock)
		})
	}
}

func TestHX711NotReady(t *testing.T) {
	pins := &hx711Pins{busy: true}
	h := sensor.NewHX711(pins, pins, 0, nil)
	assert.False(t, h.Ready())
}

func newAccel(t *testing.T) (*sensor.Accel, *tester.I2CDevice8) {
	t.Helper()
	bus := tester.NewI2CBus(t)
	dev := bus.NewDevice(adxl345.AddressLow)
	return sensor.NewAccel(bus, sensor.DefaultAccelConfig()), dev
}

func TestAccelConfigure(t *testing.T) {
	a, dev := newAccel(t)
	dev.Registers[adxl345.REG_INT_SOUCE] = 0x12

	require.NoError(t, a.Configure())

	assert.Equal(t, uint8(0x10), dev.Registers[adxl345.REG_THRESH_ACT])
	assert.Equal(t, uint8(0x70), dev.Registers[adxl345.REG_ACT_INACT_CTL])
	assert.Equal(t, uint8(0x00), dev.Registers[adxl345.REG_INT_MAP])
	assert.Equal(t, uint8(sensor.ActivityBit), dev.Registers[adxl345.REG_INT_ENABLE])
	assert.Equal(t, uint8(adxl345.RANGE_16G), dev.Registers[adxl345.REG_DATA_FORMAT]&0x03)
	assert.NotZero(t, dev.Registers[adxl345.REG_POWER_CTL]&0x08, "measure bit")
}

func TestAccelRead(t *testing.T) {
	a, dev := newAccel(t)
	copy(dev.Registers[adxl345.REG_DATAX0:], []byte{0x10, 0x00, 0xF0, 0xFF, 0x20, 0x01})
	dev.Registers[adxl345.REG_INT_SOUCE] = sensor.ActivityBit | 0x02

	x, y, z, err := a.ReadAccel()
	require.NoError(t, err)
	assert.Equal(t, int16(16), x)
	assert.Equal(t, int16(-16), y)
	assert.Equal(t, int16(288), z)

	status, err := a.ReadActivity()
	require.NoError(t, err)
	assert.Equal(t, uint8(sensor.ActivityBit|0x02), status)
}

func TestAccelBusError(t *testing.T) {
	a, dev := newAccel(t)
	dev.Err = errors.New("nack")

	assert.Error(t, a.Configure())

	_, _, _, err := a.ReadAccel()
	assert.Error(t, err)

	_, err = a.ReadActivity()
	assert.Error(t, err)
}

func TestGatewayInit(t *testing.T) {
	t.Run("Ready", func(t *testing.T) {
		accel := &sim.Accelerometer{}
		g := sensor.Gateway{Force: &sim.LoadCell{}, Accel: accel}

		require.NoError(t, g.Init(&sim.Clock{}, sensor.DefaultReadyTimeout))
		assert.True(t, accel.Configured)
	})

	t.Run("ForceTimeout", func(t *testing.T) {
		clock := &sim.Clock{}
		g := sensor.Gateway{Force: &sim.LoadCell{NotReady: true}, Accel: &sim.Accelerometer{}}

		err := g.Init(clock, sensor.DefaultReadyTimeout)
		assert.ErrorIs(t, err, sensor.ErrForceNotReady)
		assert.Equal(t, sensor.DefaultReadyTimeout, clock.Now())
	})

	t.Run("AccelError", func(t *testing.T) {
		load := &sim.LoadCell{NotReady: true}
		g := sensor.Gateway{Force: load, Accel: &sim.Accelerometer{Err: errors.New("nack")}}

		err := g.Init(&sim.Clock{}, sensor.DefaultReadyTimeout)
		require.Error(t, err)
		assert.NotErrorIs(t, err, sensor.ErrForceNotReady)
		assert.Contains(t, err.Error(), "nack")
	})
}

type lateLoadCell struct {
	clock *sim.Clock
	at    time.Duration
}

func (l lateLoadCell) Ready() bool    { return l.clock.Now() >= l.at }
func (l lateLoadCell) ReadRaw() int32 { return 0 }

func TestWaitReady(t *testing.T) {
	clock := &sim.Clock{}
	assert.True(t, sensor.WaitReady(lateLoadCell{clock, 250 * time.Millisecond}, clock, time.Second))
	assert.Equal(t, 250*time.Millisecond, clock.Now())

	clock.Set(0)
	assert.False(t, sensor.WaitReady(lateLoadCell{clock, 2 * time.Second}, clock, time.Second))
}
