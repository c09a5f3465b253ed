// Package sim has in-memory hardware for the control core: pins, a manual clock, scripted
// sensors and a simple rig that breaks a specimen. It is used by tests and by the host when
// running without an instrument attached.
package sim

import (
	"errors"
	"io"
	"sync"
	"time"
)

// ErrNoData is returned by Link.ReadByte when nothing is buffered
var ErrNoData = errors.New("no data")

// Pin is an in-memory digital pin that counts rising edges
type Pin struct {
	level  bool
	Rising int
}

func (p *Pin) Set(v bool) {
	if v && !p.level {
		p.Rising++
	}
	p.level = v
}

func (p *Pin) Get() bool {
	return p.level
}

// Clock only moves when told to. Sleep advances it so polling loops terminate
type Clock struct {
	now time.Duration
}

func (c *Clock) Now() time.Duration {
	return c.now
}

func (c *Clock) Sleep(d time.Duration) {
	c.now += d
}

// Advance moves the clock forward by d
func (c *Clock) Advance(d time.Duration) {
	c.now += d
}

// Set jumps the clock to t
func (c *Clock) Set(t time.Duration) {
	c.now = t
}

// RealClock measures wall time since it was created
type RealClock struct {
	start time.Time
}

func NewRealClock() *RealClock {
	return &RealClock{start: time.Now()}
}

func (c *RealClock) Now() time.Duration {
	return time.Since(c.start)
}

func (c *RealClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

// LoadCell is a scripted load cell. Each ReadRaw pops the next Script value if there is one,
// otherwise it returns Raw
type LoadCell struct {
	Raw      int32
	Script   []int32
	NotReady bool
	Reads    int
}

func (l *LoadCell) Ready() bool {
	return !l.NotReady
}

func (l *LoadCell) ReadRaw() int32 {
	l.Reads++
	if len(l.Script) > 0 {
		l.Raw = l.Script[0]
		l.Script = l.Script[1:]
	}
	return l.Raw
}

// Accelerometer is a scripted accelerometer. Each ReadActivity pops the next Activity value if
// there is one, otherwise it returns 0
type Accelerometer struct {
	X, Y, Z  int16
	Activity []uint8
	Err      error

	ActivityReads int
	Configured    bool
}

func (a *Accelerometer) Configure() error {
	if a.Err != nil {
		return a.Err
	}
	a.Configured = true
	return nil
}

func (a *Accelerometer) ReadAccel() (int16, int16, int16, error) {
	if a.Err != nil {
		return 0, 0, 0, a.Err
	}
	return a.X, a.Y, a.Z, nil
}

func (a *Accelerometer) ReadActivity() (uint8, error) {
	if a.Err != nil {
		return 0, a.Err
	}
	a.ActivityReads++
	if len(a.Activity) == 0 {
		return 0, nil
	}
	v := a.Activity[0]
	a.Activity = a.Activity[1:]
	return v, nil
}

// Link is the firmware side of a serial connection. Bytes written by the host with Send are
// read by the firmware with ReadByte. Firmware output goes to Out
type Link struct {
	mtx sync.Mutex
	in  []byte
	Out io.Writer
}

// Send queues bytes for the firmware
func (l *Link) Send(b []byte) {
	l.mtx.Lock()
	l.in = append(l.in, b...)
	l.mtx.Unlock()
}

// SendLine queues a command terminated by a newline
func (l *Link) SendLine(s string) {
	l.Send([]byte(s + "\n"))
}

func (l *Link) ReadByte() (byte, error) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if len(l.in) == 0 {
		return 0, ErrNoData
	}
	b := l.in[0]
	l.in = l.in[1:]
	return b, nil
}

func (l *Link) Write(p []byte) (int, error) {
	return l.Out.Write(p)
}

// LineWriter collects firmware output
type LineWriter struct {
	mtx sync.Mutex
	buf []byte
}

func (w *LineWriter) Write(p []byte) (int, error) {
	w.mtx.Lock()
	w.buf = append(w.buf, p...)
	w.mtx.Unlock()
	return len(p), nil
}

// String returns everything written so far
func (w *LineWriter) String() string {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	return string(w.buf)
}

// Reset discards the collected output
func (w *LineWriter) Reset() {
	w.mtx.Lock()
	w.buf = w.buf[:0]
	w.mtx.Unlock()
}
