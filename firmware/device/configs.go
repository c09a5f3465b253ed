package device

import (
	"time"

	"github.com/calvinmclean/tensile"
	"github.com/calvinmclean/tensile/firmware/sensor"
)

// Config has the safety and motion parameters of the control core
type Config struct {
	// ForceLimitN is the over-force threshold in Newton. Step-loss discrimination uses a tenth of it
	ForceLimitN float64
	// DebounceCount is how many consecutive over-limit ticks stop a run
	DebounceCount int
	// SettleWindow suppresses step-loss checks after a run starts
	SettleWindow time.Duration
	// TelemetryPeriod is the DATA record rate while running
	TelemetryPeriod time.Duration

	DefaultSpeed float64
	JogSpeed     float64

	// EndstopActiveLow is set when the switch pulls the input to ground
	EndstopActiveLow bool
	// StopOnStepLoss also stops the run when step loss is flagged
	StopOnStepLoss bool

	ReadyTimeout time.Duration
}

// DefaultConfig returns the values used on the instrument
func DefaultConfig() Config {
	return Config{
		ForceLimitN:      1500,
		DebounceCount:    3,
		SettleWindow:     time.Second,
		TelemetryPeriod:  100 * time.Millisecond,
		DefaultSpeed:     5,
		JogSpeed:         120,
		EndstopActiveLow: true,
		StopOnStepLoss:   false,
		ReadyTimeout:     sensor.DefaultReadyTimeout,
	}
}

// ForceLimitRaw converts the force limit to raw load cell counts
func (c Config) ForceLimitRaw() int32 {
	return tensile.NewtonToRaw(c.ForceLimitN)
}
