// Package sensor wraps the load cell ADC and the accelerometer behind a "read latest sample"
// contract so the control core can run against real hardware or scripted fakes.
package sensor

import (
	"errors"
	"time"
)

// ErrForceNotReady is returned from Gateway.Init when the load cell never reported ready within
// the startup timeout. It is not fatal: the ADC may become ready later.
var ErrForceNotReady = errors.New("force ADC not ready")

// DefaultReadyTimeout is the bounded startup wait for the load cell
const DefaultReadyTimeout = 3000 * time.Millisecond

// InputPin is a digital input. machine.Pin satisfies it
type InputPin interface {
	Get() bool
}

// OutputPin is a digital output. machine.Pin satisfies it
type OutputPin interface {
	Set(bool)
}

// Clock is a monotonic time source measured from boot
type Clock interface {
	Now() time.Duration
	Sleep(time.Duration)
}

// ForceSource is a load cell ADC. ReadRaw consumes one conversion and must only be called when
// Ready returns true
type ForceSource interface {
	Ready() bool
	ReadRaw() int32
}

// AccelSource is a tri-axis accelerometer with a polled activity interrupt
type AccelSource interface {
	// ReadAccel is a 6-byte burst read of the three axes
	ReadAccel() (x, y, z int16, err error)
	// ReadActivity reads the 1-byte interrupt source register
	ReadActivity() (uint8, error)
}

// configurer is implemented by sources that need a one-time register program at startup
type configurer interface {
	Configure() error
}

// Gateway is the single entry point to both sensors
type Gateway struct {
	Force ForceSource
	Accel AccelSource
}

// Init configures the accelerometer and then waits up to timeout for the load cell. An
// accelerometer error is returned immediately. ErrForceNotReady means boot should continue.
func (g *Gateway) Init(clock Clock, timeout time.Duration) error {
	if c, ok := g.Accel.(configurer); ok {
		err := c.Configure()
		if err != nil {
			return errors.New("error configuring accelerometer: " + err.Error())
		}
	}

	if !WaitReady(g.Force, clock, timeout) {
		return ErrForceNotReady
	}
	return nil
}

// ForceReady reports if a new load cell conversion is available
func (g *Gateway) ForceReady() bool {
	return g.Force.Ready()
}

// ReadForce consumes one load cell conversion
func (g *Gateway) ReadForce() int32 {
	return g.Force.ReadRaw()
}

// ReadAccel reads the latest acceleration on all axes
func (g *Gateway) ReadAccel() (int16, int16, int16, error) {
	return g.Accel.ReadAccel()
}

// ReadActivity reads the activity interrupt status
func (g *Gateway) ReadActivity() (uint8, error) {
	return g.Accel.ReadActivity()
}

// WaitReady polls src until it is ready or timeout elapses
func WaitReady(src ForceSource, clock Clock, timeout time.Duration) bool {
	start := clock.Now()
	for {
		if src.Ready() {
			return true
		}
		if clock.Now()-start >= timeout {
			return false
		}
		clock.Sleep(time.Millisecond)
	}
}
