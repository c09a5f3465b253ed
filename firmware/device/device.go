package device

import (
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/calvinmclean/tensile"
	"github.com/calvinmclean/tensile/firmware/sensor"
	"github.com/calvinmclean/tensile/firmware/stepgen"
)

// Hardware is everything the control core touches
type Hardware struct {
	Sensors sensor.Gateway
	Stepper *stepgen.Generator
	Endstop sensor.InputPin
	Clock   sensor.Clock
	Serial  io.ByteReader
	Out     io.Writer
}

// Device is the control core of the tensile tester. It owns the run state, drives the stepper and
// enforces the safety interlocks. All methods must be called from the single control loop.
type Device struct {
	cfg      Config
	limitRaw int32
	ctx      Context

	sensors sensor.Gateway
	stepper *stepgen.Generator
	endstop sensor.InputPin
	clock   sensor.Clock
	serial  io.ByteReader
	report  *Reporter
}

// New creates a Device in the Idle state. Boot must be called before the control loop starts
func New(cfg Config, hw Hardware) (*Device, error) {
	switch {
	case hw.Sensors.Force == nil || hw.Sensors.Accel == nil:
		return nil, errors.New("error creating device: force and accel sources are required")
	case hw.Stepper == nil:
		return nil, errors.New("error creating device: stepper is required")
	case hw.Endstop == nil:
		return nil, errors.New("error creating device: endstop is required")
	case hw.Clock == nil:
		return nil, errors.New("error creating device: clock is required")
	case hw.Serial == nil || hw.Out == nil:
		return nil, errors.New("error creating device: serial link is required")
	}
	if cfg.DebounceCount < 1 {
		cfg.DebounceCount = 1
	}

	return &Device{
		cfg:      cfg,
		limitRaw: cfg.ForceLimitRaw(),
		ctx:      newContext(cfg),
		sensors:  hw.Sensors,
		stepper:  hw.Stepper,
		endstop:  hw.Endstop,
		clock:    hw.Clock,
		serial:   hw.Serial,
		report:   NewReporter(hw.Out),
	}, nil
}

// Boot initializes the sensors and announces READY. A load cell that is not ready in time is
// reported and boot continues. An accelerometer failure puts the device in the Error state and
// is returned after READY is sent.
func (d *Device) Boot() error {
	err := d.sensors.Init(d.clock, d.cfg.ReadyTimeout)
	switch {
	case errors.Is(err, sensor.ErrForceNotReady):
		d.report.Event(tensile.EventADCTimeout, "")
		err = nil
	case err != nil:
		d.fault(err)
	}

	d.refreshForce()
	d.report.Event(tensile.EventReady, "")
	return err
}

// Context returns a copy of the run context
func (d *Device) Context() Context {
	return d.ctx
}

// State is the current run state
func (d *Device) State() tensile.RunState {
	return d.ctx.State
}

// Tick runs one pass of the control loop after commands were handled: safety first, then motion,
// then telemetry
func (d *Device) Tick() {
	now := d.clock.Now()
	d.checkSafety()
	d.move(now)
	d.emitTelemetry(now)
}

func (d *Device) move(now time.Duration) {
	var m stepgen.Motion
	switch d.ctx.State {
	case tensile.StateRunning:
		m = d.ctx.Run
	case tensile.StateJogging:
		m = d.ctx.Jog
	default:
		return
	}

	if d.stepper.Tick(now, m) {
		d.ctx.Steps += int32(m.Direction)
	}
}

// Start begins a test run. It is ignored unless the device is Idle or Stopped
func (d *Device) Start() {
	if d.ctx.State != tensile.StateIdle && d.ctx.State != tensile.StateStopped {
		return
	}

	now := d.clock.Now()
	d.ctx.Run.Direction = d.ctx.Direction
	d.stepper.SetDirection(d.ctx.Direction)
	d.stepper.Rearm(now)

	d.ctx.Steps = 0
	d.ctx.StepLoss = false
	d.ctx.StepLossArmed = false
	d.ctx.OverLimit = 0
	d.ctx.RunStart = now
	d.ctx.State = tensile.StateRunning
	d.report.Event(tensile.EventStarted, "")
}

// Stop halts any motion
func (d *Device) Stop() {
	d.halt()
	d.report.Event(tensile.EventStopped, "")
}

// JogUp moves the crosshead up at jog speed until stopped
func (d *Device) JogUp() {
	d.jog(1, tensile.EventJogUp)
}

// JogDown moves the crosshead down at jog speed until stopped
func (d *Device) JogDown() {
	d.jog(-1, tensile.EventJogDown)
}

func (d *Device) jog(direction int, event string) {
	d.ctx.JogDirection = direction
	d.ctx.Jog.Direction = direction
	d.stepper.SetDirection(direction)
	d.stepper.Rearm(d.clock.Now())
	d.ctx.State = tensile.StateJogging
	d.report.Event(event, "")
}

// Reset returns to Idle and clears the step count and cached force
func (d *Device) Reset() {
	d.ctx.State = tensile.StateIdle
	d.ctx.Steps = 0
	d.ctx.RawForce = d.ctx.TareOffset
	d.ctx.LastValidForce = 0
	d.report.Event(tensile.EventReset, "")
}

// Tare captures the current raw reading as the zero offset
func (d *Device) Tare() {
	d.refreshForce()
	d.ctx.TareOffset = d.ctx.RawForce
	d.ctx.LastValidForce = 0
	d.report.Event(tensile.EventTared, "")
}

// ReportForce emits the tared force in Newton
func (d *Device) ReportForce() {
	d.refreshForce()
	d.report.Event(tensile.EventForce, newton(d.ctx.ForceNewton(), 2))
}

// ReportStatus emits a STATUS record
func (d *Device) ReportStatus() {
	d.report.Status(d.ctx.State, d.ctx.TargetSpeed, d.ctx.Direction)
}

// SetSpeed sets the run speed in mm/min and recomputes the step interval. Values outside
// (MinSpeed, MaxSpeed) are rejected
func (d *Device) SetSpeed(speed float64) bool {
	if !(speed > tensile.MinSpeed && speed < tensile.MaxSpeed) {
		return false
	}

	d.ctx.TargetSpeed = speed
	d.ctx.Run.Interval = stepgen.ComputeInterval(speed)
	d.report.Event(tensile.EventSpeed, strconv.FormatFloat(speed, 'f', 2, 64))
	return true
}

// SetDirection sets the direction used by the next run. Only 1 and -1 are accepted. A run in
// progress keeps the direction it started with
func (d *Device) SetDirection(direction int) bool {
	if direction != 1 && direction != -1 {
		return false
	}

	d.ctx.Direction = direction
	d.report.Event(tensile.EventDirection, strconv.Itoa(direction))
	return true
}

// Emit writes an EVENT record
func (d *Device) Emit(name, value string) {
	d.report.Event(name, value)
}

// ReadByte reads the next byte from the host link
func (d *Device) ReadByte() (byte, error) {
	return d.serial.ReadByte()
}

func (d *Device) halt() {
	d.ctx.State = tensile.StateStopped
}

// fault moves to the Error state. Only Reset or a jog leaves it
func (d *Device) fault(err error) {
	d.ctx.State = tensile.StateError
	d.report.Event(tensile.EventAccelFault, err.Error())
}

// refreshForce consumes a conversion if one is ready and reports if it did
func (d *Device) refreshForce() bool {
	if !d.sensors.ForceReady() {
		return false
	}
	d.ctx.RawForce = d.sensors.ReadForce()
	d.ctx.LastValidForce = d.ctx.RawForce - d.ctx.TareOffset
	return true
}

func (d *Device) endstopTriggered() bool {
	return d.endstop.Get() != d.cfg.EndstopActiveLow
}
