package analysis

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr
}

// LoadCSV reads a saved run. Files written before step loss was recorded have nine columns and
// load with StepLoss false
func LoadCSV(r io.Reader) ([]Sample, error) {
	cr := newReader(r)

	_, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoData
	}
	if err != nil {
		return nil, fmt.Errorf("error reading header: %w", err)
	}

	var samples []Sample
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading row: %w", err)
		}

		s, err := parseSample(row)
		if err != nil {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		samples = append(samples, s)
	}
	return samples, nil
}

func parseSample(row []string) (Sample, error) {
	if len(row) < 9 {
		return Sample{}, fmt.Errorf("want at least 9 columns, got %d", len(row))
	}

	p := fieldParser{row: row}
	s := Sample{
		Time:           p.parseFloat(0),
		Steps:          p.parseInt(1),
		DisplacementMM: p.parseFloat(2),
		ForceRaw:       p.parseInt(3),
		ForceN:         p.parseFloat(4),
		AccelX:         p.parseInt(5),
		AccelY:         p.parseInt(6),
		AccelZ:         p.parseInt(7),
		Endstop:        p.parseInt(8) != 0,
	}
	if len(row) > 9 {
		s.StepLoss = p.parseInt(9) != 0
	}
	return s, p.err
}

// fieldParser keeps the first conversion error so a row can be parsed without checking every field
type fieldParser struct {
	row []string
	err error
}

func (p *fieldParser) parseFloat(i int) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(p.row[i]), 64)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("column %d: %w", i+1, err)
	}
	return v
}

func (p *fieldParser) parseInt(i int) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(p.row[i]), 10, 64)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("column %d: %w", i+1, err)
	}
	return v
}

// LoadCSVFile reads a saved run from path
func LoadCSVFile(path string) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening %s: %w", path, err)
	}
	defer f.Close()

	samples, err := LoadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("error loading %s: %w", path, err)
	}
	return samples, nil
}

// LoadLookup reads a compliance table with a header and force;displacement rows
func LoadLookup(r io.Reader) (Lookup, error) {
	cr := newReader(r)

	_, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Lookup{}, nil
	}
	if err != nil {
		return Lookup{}, fmt.Errorf("error reading header: %w", err)
	}

	var force, displacement []float64
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Lookup{}, fmt.Errorf("error reading row: %w", err)
		}
		if len(row) < 2 {
			return Lookup{}, fmt.Errorf("lookup row %v: want 2 columns", row)
		}

		p := fieldParser{row: row}
		f, d := p.parseFloat(0), p.parseFloat(1)
		if p.err != nil {
			return Lookup{}, fmt.Errorf("lookup row %v: %w", row, p.err)
		}
		force = append(force, f)
		displacement = append(displacement, d)
	}
	return NewLookup(force, displacement)
}

// LoadLookupFile reads a compliance table from path
func LoadLookupFile(path string) (Lookup, error) {
	f, err := os.Open(path)
	if err != nil {
		return Lookup{}, fmt.Errorf("error opening %s: %w", path, err)
	}
	defer f.Close()

	return LoadLookup(f)
}
