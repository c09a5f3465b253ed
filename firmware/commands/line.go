package commands

// MaxLineLength is the longest accepted command. Longer lines are cut to this length and reported
// as unknown
const MaxLineLength = 64

// LineReader collects bytes into lines ending in '\n' or '\r'. It uses a fixed buffer
type LineReader struct {
	buf       [MaxLineLength]byte
	n         int
	overflow  bool
	truncated bool
}

// Feed adds one byte. When b ends a non-empty line, the line is returned. A line that did not fit
// is returned cut to MaxLineLength and Truncated reports true until the next byte
func (l *LineReader) Feed(b byte) (string, bool) {
	l.truncated = false

	if b == '\n' || b == '\r' {
		line := string(l.buf[:l.n])
		l.truncated = l.overflow
		l.n = 0
		l.overflow = false
		if line == "" {
			return "", false
		}
		return line, true
	}

	if l.n == len(l.buf) {
		l.overflow = true
		return "", false
	}

	l.buf[l.n] = b
	l.n++
	return "", false
}

// Truncated reports if the line returned by the last Feed was longer than MaxLineLength
func (l *LineReader) Truncated() bool {
	return l.truncated
}
