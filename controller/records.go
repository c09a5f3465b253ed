package controller

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/calvinmclean/tensile"
)

var ErrMalformedRecord = errors.New("malformed record")

// Record is one line received from the instrument: a DataRecord, StatusRecord or EventRecord
type Record interface {
	record()
}

// DataRecord is a telemetry sample. Force is the tared raw load cell value
type DataRecord struct {
	Millis   int64
	Steps    int32
	Force    int32
	AccelX   int16
	AccelY   int16
	AccelZ   int16
	Endstop  bool
	StepLoss bool
}

// StatusRecord answers a STATUS request
type StatusRecord struct {
	State     tensile.RunState
	Speed     float64
	Direction int
}

// EventRecord is an EVENT line. Value is everything after the first ':' and may contain ';'
type EventRecord struct {
	Name  string
	Value string
}

func (DataRecord) record()   {}
func (StatusRecord) record() {}
func (EventRecord) record()  {}

// Time is the instrument clock at the sample
func (d DataRecord) Time() time.Duration {
	return time.Duration(d.Millis) * time.Millisecond
}

// DisplacementMM is the crosshead travel since start
func (d DataRecord) DisplacementMM() float64 {
	return tensile.StepsToMM(d.Steps)
}

// ForceN is the calibrated force
func (d DataRecord) ForceN() float64 {
	return tensile.RawToNewton(d.Force)
}

func (e EventRecord) String() string {
	if e.Value == "" {
		return e.Name
	}
	return e.Name + ":" + e.Value
}

func (s StatusRecord) String() string {
	return fmt.Sprintf("%s, Speed: %.2f mm/min, Dir: %d", s.State, s.Speed, s.Direction)
}

// ParseRecord parses a single protocol line without its line terminator
func ParseRecord(line string) (Record, error) {
	line = strings.TrimRight(line, "\r\n")
	kind, rest, _ := strings.Cut(line, tensile.Separator)

	switch kind {
	case tensile.RecordData:
		return parseData(rest)
	case tensile.RecordStatus:
		return parseStatus(rest)
	case tensile.RecordEvent:
		if rest == "" {
			return nil, fmt.Errorf("%w: empty event", ErrMalformedRecord)
		}
		name, value, _ := strings.Cut(rest, ":")
		return EventRecord{Name: name, Value: value}, nil
	default:
		return nil, fmt.Errorf("%w: unknown record type %q", ErrMalformedRecord, kind)
	}
}

func parseData(s string) (DataRecord, error) {
	fields := strings.Split(s, tensile.Separator)
	if len(fields) < 8 {
		return DataRecord{}, fmt.Errorf("%w: DATA has %d fields, want 8", ErrMalformedRecord, len(fields))
	}

	ints := make([]int64, 8)
	for i, f := range fields[:8] {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return DataRecord{}, fmt.Errorf("%w: DATA field %d: %w", ErrMalformedRecord, i+1, err)
		}
		ints[i] = v
	}

	return DataRecord{
		Millis:   ints[0],
		Steps:    int32(ints[1]),
		Force:    int32(ints[2]),
		AccelX:   int16(ints[3]),
		AccelY:   int16(ints[4]),
		AccelZ:   int16(ints[5]),
		Endstop:  ints[6] != 0,
		StepLoss: ints[7] != 0,
	}, nil
}

func parseStatus(s string) (StatusRecord, error) {
	fields := strings.Split(s, tensile.Separator)
	if len(fields) < 3 {
		return StatusRecord{}, fmt.Errorf("%w: STATUS has %d fields, want 3", ErrMalformedRecord, len(fields))
	}

	ordinal, err := strconv.Atoi(fields[0])
	if err != nil {
		return StatusRecord{}, fmt.Errorf("%w: STATUS state: %w", ErrMalformedRecord, err)
	}
	state, ok := tensile.ParseRunState(ordinal)
	if !ok {
		return StatusRecord{}, fmt.Errorf("%w: STATUS state %d out of range", ErrMalformedRecord, ordinal)
	}

	speed, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return StatusRecord{}, fmt.Errorf("%w: STATUS speed: %w", ErrMalformedRecord, err)
	}

	direction, err := strconv.Atoi(fields[2])
	if err != nil {
		return StatusRecord{}, fmt.Errorf("%w: STATUS direction: %w", ErrMalformedRecord, err)
	}

	return StatusRecord{State: state, Speed: speed, Direction: direction}, nil
}
