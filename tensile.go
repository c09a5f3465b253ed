package tensile

import "time"

// BaudRate is the serial speed shared by the firmware and the host
const BaudRate = 115200

// Mechanical and calibration values shared by the firmware and the host. These must match the
// hardware: 200 full steps/rev, 1/4 microstepping and a 4mm lead screw.
const (
	StepsPerRev      = 200
	Microsteps       = 4
	LeadMM           = 4.0
	StepsPerMM       = StepsPerRev * Microsteps / LeadMM
	ForceCalibration = 2.217e-4 // raw HX711 counts -> Newton
)

// Speed limits for SET_SPEED. Both bounds are exclusive.
const (
	MinSpeed = 0.0
	MaxSpeed = 600.0
)

// ReadyTimeout is how long the host waits for EVENT;READY after opening the port
const ReadyTimeout = 5 * time.Second

// Record prefixes and separator for the line protocol
const (
	RecordData   = "DATA"
	RecordStatus = "STATUS"
	RecordEvent  = "EVENT"
	Separator    = ";"
)

// Event names emitted by the firmware
const (
	EventReady            = "READY"
	EventADCTimeout       = "ADC_TIMEOUT"
	EventStarted          = "STARTED"
	EventStopped          = "STOPPED"
	EventJogUp            = "JOG_UP"
	EventJogDown          = "JOG_DOWN"
	EventReset            = "RESET"
	EventTared            = "TARED"
	EventForce            = "FORCE"
	EventSpeed            = "SPEED"
	EventDirection        = "DIR"
	EventEndstopTriggered = "ENDSTOP_TRIGGERED"
	EventForceLimit       = "FORCE_LIMIT"
	EventStepLoss         = "STEP_LOSS"
	EventAccelFault       = "ACCEL_FAULT"
	EventUnknownCommand   = "UNKNOWN_CMD"
	EventHelp             = "HELP"
)

// RunState is the state of the control core. The ordinal is what STATUS reports, so the order
// here must not change.
type RunState int

const (
	StateIdle RunState = iota
	StateRunning
	StateStopped
	StateError
	StateJogging
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	case StateError:
		return "ERROR"
	case StateJogging:
		return "JOG"
	default:
		return "?"
	}
}

// Moving is true for the states that drive the stepper
func (s RunState) Moving() bool {
	return s == StateRunning || s == StateJogging
}

// ParseRunState converts a STATUS ordinal back into a RunState
func ParseRunState(ordinal int) (RunState, bool) {
	if ordinal < int(StateIdle) || ordinal > int(StateJogging) {
		return StateIdle, false
	}
	return RunState(ordinal), true
}

// RawToNewton converts a tared raw load cell reading to Newton
func RawToNewton(raw int32) float64 {
	return float64(raw) * ForceCalibration
}

// NewtonToRaw converts a force in Newton to raw load cell counts
func NewtonToRaw(n float64) int32 {
	return int32(n / ForceCalibration)
}

// StepsToMM converts a signed step count to crosshead displacement
func StepsToMM(steps int32) float64 {
	return float64(steps) / StepsPerMM
}
