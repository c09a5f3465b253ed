package device

import (
	"io"
	"strconv"

	"github.com/calvinmclean/tensile"
)

const lineEnd = "\r\n"

// Reporter formats outbound records. It reuses one buffer so the control loop does not allocate
// per record. Write errors are dropped: a stalled host must never stall the loop.
type Reporter struct {
	w   io.Writer
	buf []byte
}

// NewReporter creates a Reporter writing to w
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: w, buf: make([]byte, 0, 96)}
}

// Event writes EVENT;<name> or EVENT;<name>:<value>
func (r *Reporter) Event(name, value string) {
	r.buf = append(r.buf[:0], tensile.RecordEvent...)
	r.buf = append(r.buf, tensile.Separator...)
	r.buf = append(r.buf, name...)
	if value != "" {
		r.buf = append(r.buf, ':')
		r.buf = append(r.buf, value...)
	}
	r.flush()
}

// Status writes STATUS;<ordinal>;<speed>;<direction>
func (r *Reporter) Status(state tensile.RunState, speed float64, direction int) {
	r.buf = append(r.buf[:0], tensile.RecordStatus...)
	r.buf = append(r.buf, tensile.Separator...)
	r.buf = strconv.AppendInt(r.buf, int64(state), 10)
	r.buf = append(r.buf, tensile.Separator...)
	r.buf = strconv.AppendFloat(r.buf, speed, 'f', 2, 64)
	r.buf = append(r.buf, tensile.Separator...)
	r.buf = strconv.AppendInt(r.buf, int64(direction), 10)
	r.flush()
}

// Data writes one telemetry record
func (r *Reporter) Data(millis int64, c *Context) {
	r.buf = append(r.buf[:0], tensile.RecordData...)
	for _, v := range [...]int64{
		millis,
		int64(c.Steps),
		int64(c.LastValidForce),
		int64(c.AccelX),
		int64(c.AccelY),
		int64(c.AccelZ),
		b2i(c.Endstop),
		b2i(c.StepLoss),
	} {
		r.buf = append(r.buf, tensile.Separator...)
		r.buf = strconv.AppendInt(r.buf, v, 10)
	}
	r.flush()
}

func (r *Reporter) flush() {
	r.buf = append(r.buf, lineEnd...)
	_, _ = r.w.Write(r.buf)
}

// newton formats a force with the given precision and an N suffix
func newton(n float64, prec int) string {
	return strconv.FormatFloat(n, 'f', prec, 64) + "N"
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
