package sim

import (
	"io"
	"math/rand/v2"
	"sync"

	"github.com/calvinmclean/tensile"
	"github.com/calvinmclean/tensile/firmware/sensor"
)

// Specimen describes how the simulated sample responds to crosshead travel
type Specimen struct {
	// SlackMM is travel before the grips take up load
	SlackMM    float64 `yaml:"slack_mm"`
	// Stiffness is Newton per mm of crosshead travel once loaded
	Stiffness  float64 `yaml:"stiffness"`
	// BreakForce is where the sample fractures
	BreakForce float64 `yaml:"break_force"`
}

// DefaultSpecimen breaks at 800N after a little over 2mm of travel
func DefaultSpecimen() Specimen {
	return Specimen{SlackMM: 0.2, Stiffness: 400, BreakForce: 800}
}

// Rig simulates the crosshead, load cell, accelerometer and endstop. Step pulses move the
// crosshead and the load cell reads the specimen force at that position.
type Rig struct {
	specimen Specimen
	// EndstopMM is where the top endstop closes
	EndstopMM float64
	// Baseline is the untared load cell offset
	Baseline int32

	dir      Pin
	position int32
	broken   bool
	activity uint8
	rnd      *rand.Rand
}

// NewRig creates a rig with the specimen loaded
func NewRig(s Specimen, seed uint64) *Rig {
	return &Rig{
		specimen:  s,
		EndstopMM: 50,
		Baseline:  12000,
		rnd:       rand.New(rand.NewPCG(seed, seed^0x5eed)),
	}
}

// Position is the crosshead position in steps
func (r *Rig) Position() int32 {
	return r.position
}

// Broken is true after the specimen fractured
func (r *Rig) Broken() bool {
	return r.broken
}

// Force is the current specimen force in Newton
func (r *Rig) Force() float64 {
	if r.broken {
		return 0
	}
	mm := tensile.StepsToMM(r.position) - r.specimen.SlackMM
	if mm <= 0 {
		return 0
	}
	f := mm * r.specimen.Stiffness
	if f >= r.specimen.BreakForce {
		r.broken = true
		r.activity = sensor.ActivityBit
		return 0
	}
	return f
}

// StepPin moves the crosshead one step per rising edge in the direction set on DirPin
func (r *Rig) StepPin() *RigStep {
	return &RigStep{rig: r}
}

// DirPin is the direction output. High moves up
func (r *Rig) DirPin() *Pin {
	return &r.dir
}

// LoadCell reads the specimen force
func (r *Rig) LoadCell() sensor.ForceSource {
	return rigLoadCell{r}
}

// Accelerometer reports gravity plus noise and latches activity when the specimen breaks
func (r *Rig) Accelerometer() sensor.AccelSource {
	return rigAccel{r}
}

// Endstop is an active-low switch that closes at EndstopMM
func (r *Rig) Endstop() sensor.InputPin {
	return rigEndstop{r}
}

// RigStep is the STEP input of the simulated driver
type RigStep struct {
	rig   *Rig
	level bool
}

func (s *RigStep) Set(v bool) {
	if v && !s.level {
		if s.rig.dir.Get() {
			s.rig.position++
		} else {
			s.rig.position--
		}
	}
	s.level = v
}

type rigLoadCell struct{ r *Rig }

func (l rigLoadCell) Ready() bool { return true }

func (l rigLoadCell) ReadRaw() int32 {
	return l.r.Baseline + tensile.NewtonToRaw(l.r.Force()) + l.r.rnd.Int32N(101) - 50
}

type rigAccel struct{ r *Rig }

func (a rigAccel) ReadAccel() (int16, int16, int16, error) {
	noise := func() int16 { return int16(a.r.rnd.IntN(5)) - 2 }
	return noise(), noise(), 32 + noise(), nil
}

func (a rigAccel) ReadActivity() (uint8, error) {
	v := a.r.activity
	a.r.activity = 0
	return v, nil
}

type rigEndstop struct{ r *Rig }

func (e rigEndstop) Get() bool {
	return tensile.StepsToMM(e.r.position) < e.r.EndstopMM
}

// Stream carries firmware output to the host without ever blocking the firmware loop. When the
// reader falls more than the buffer behind, writes are dropped.
type Stream struct {
	ch      chan []byte
	pending []byte

	once   sync.Once
	mtx    sync.RWMutex
	closed bool
}

// NewStream creates a Stream buffering up to size writes
func NewStream(size int) *Stream {
	return &Stream{ch: make(chan []byte, size)}
}

func (s *Stream) Write(p []byte) (int, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	if s.closed {
		return 0, io.ErrClosedPipe
	}

	select {
	case s.ch <- append([]byte(nil), p...):
	default:
	}
	return len(p), nil
}

func (s *Stream) Read(p []byte) (int, error) {
	if len(s.pending) == 0 {
		b, ok := <-s.ch
		if !ok {
			return 0, io.EOF
		}
		s.pending = b
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

// Close makes pending and future reads return io.EOF once drained
func (s *Stream) Close() error {
	s.once.Do(func() {
		s.mtx.Lock()
		s.closed = true
		close(s.ch)
		s.mtx.Unlock()
	})
	return nil
}

// Conn is the host side of a simulated serial port
type Conn struct {
	Link   *Link
	Stream *Stream
}

func (c Conn) Read(p []byte) (int, error) {
	return c.Stream.Read(p)
}

func (c Conn) Write(p []byte) (int, error) {
	c.Link.Send(p)
	return len(p), nil
}

func (c Conn) Close() error {
	return c.Stream.Close()
}
