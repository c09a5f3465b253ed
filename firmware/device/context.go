package device

import (
	"time"

	"github.com/calvinmclean/tensile"
	"github.com/calvinmclean/tensile/firmware/stepgen"
)

// Context is all mutable state of the control core. It is owned by the Device and only changed
// from the control loop.
type Context struct {
	State tensile.RunState

	// TargetSpeed and Direction are the commanded values for the next run. Direction is
	// latched into Run when a run starts
	TargetSpeed  float64
	Direction    int
	JogSpeed     float64
	JogDirection int
	Run          stepgen.Motion
	Jog          stepgen.Motion

	Steps int32

	RawForce   int32
	TareOffset int32
	// LastValidForce is the most recent successful read minus TareOffset
	LastValidForce int32

	AccelX, AccelY, AccelZ int16
	Endstop                bool

	StepLoss      bool
	StepLossArmed bool
	RunStart      time.Duration

	OverLimit     int
	LastTelemetry time.Duration
}

func newContext(cfg Config) Context {
	return Context{
		State:        tensile.StateIdle,
		TargetSpeed:  cfg.DefaultSpeed,
		Direction:    1,
		JogSpeed:     cfg.JogSpeed,
		JogDirection: 1,
		Run:          stepgen.NewMotion(cfg.DefaultSpeed, 1),
		Jog:          stepgen.NewMotion(cfg.JogSpeed, 1),
	}
}

// ForceNewton is the tared force in Newton
func (c Context) ForceNewton() float64 {
	return tensile.RawToNewton(c.LastValidForce)
}
