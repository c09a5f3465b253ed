package stepgen

import (
	"errors"
	"time"

	"github.com/calvinmclean/tensile"
)

const (
	// IdleInterval is used when the commanded speed is zero or negative. It is long enough to be
	// effectively idle but keeps the interval positive.
	IdleInterval = time.Second

	defaultPulseWidth = 10 * time.Microsecond
)

// Pin is a digital output. machine.Pin satisfies this interface
type Pin interface {
	Set(bool)
}

// Config has the pins and timing for a STEP/DIR stepper driver
type Config struct {
	Step Pin
	Dir  Pin
	// InvertDir flips the DIR output so that +1 always moves the crosshead up
	InvertDir bool
	// PulseWidth is how long STEP is held high. Drivers need at least 10us
	PulseWidth time.Duration
	// Delay busy-waits for the pulse width. Defaults to a spin on time.Now
	Delay func(time.Duration)
}

// Motion is an interval/direction pair. The device keeps one for test runs and one for jogging
type Motion struct {
	Interval  time.Duration
	Direction int
}

// NewMotion computes the interval for the speed and pairs it with the direction
func NewMotion(speedMMPerMin float64, direction int) Motion {
	return Motion{Interval: ComputeInterval(speedMMPerMin), Direction: direction}
}

// ComputeInterval converts a linear speed in mm/min to the time between step pulses. This is
// only called when a speed changes so the control loop never does the floating point work.
func ComputeInterval(speedMMPerMin float64) time.Duration {
	if speedMMPerMin <= 0 {
		return IdleInterval
	}

	stepsPerSecond := speedMMPerMin / 60 * tensile.StepsPerMM
	interval := time.Duration(float64(time.Second) / stepsPerSecond)
	if interval <= 0 {
		return 1
	}
	return interval
}

// Due reports if a pulse should be emitted now for the selected motion
func Due(now, lastStep time.Duration, m Motion) bool {
	return now-lastStep >= m.Interval
}

// Generator emits single step pulses on a STEP/DIR driver
type Generator struct {
	step       Pin
	dir        Pin
	invertDir  bool
	pulseWidth time.Duration
	delay      func(time.Duration)

	lastStep time.Duration
}

// New creates a Generator and drives both outputs low
func New(cfg Config) (*Generator, error) {
	if cfg.Step == nil || cfg.Dir == nil {
		return nil, errors.New("step and dir pins are required")
	}

	if cfg.PulseWidth < defaultPulseWidth {
		cfg.PulseWidth = defaultPulseWidth
	}
	if cfg.Delay == nil {
		cfg.Delay = spin
	}

	g := &Generator{
		step:       cfg.Step,
		dir:        cfg.Dir,
		invertDir:  cfg.InvertDir,
		pulseWidth: cfg.PulseWidth,
		delay:      cfg.Delay,
	}
	g.step.Set(false)
	g.dir.Set(false)
	return g, nil
}

// SetDirection latches the DIR output. +1 is high unless InvertDir is set
func (g *Generator) SetDirection(direction int) {
	g.dir.Set((direction > 0) != g.invertDir)
}

// Pulse emits one step pulse: assert, hold, deassert
func (g *Generator) Pulse() {
	g.step.Set(true)
	g.delay(g.pulseWidth)
	g.step.Set(false)
}

// Tick emits a pulse if one is due for m and returns true if it stepped
func (g *Generator) Tick(now time.Duration, m Motion) bool {
	if !Due(now, g.lastStep, m) {
		return false
	}
	g.Pulse()
	g.lastStep = now
	return true
}

// LastStep is the time of the most recent pulse
func (g *Generator) LastStep() time.Duration {
	return g.lastStep
}

// Rearm sets the last pulse time so the next pulse is one full interval away
func (g *Generator) Rearm(now time.Duration) {
	g.lastStep = now
}

func spin(d time.Duration) {
	start := time.Now()
	for time.Since(start) < d {
	}
}
