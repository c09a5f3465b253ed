package controller

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

var ErrNoData = errors.New("no data to save")

// CSVHeader is the column layout of saved runs
var CSVHeader = []string{
	"time_s", "steps", "displacement_mm", "force_raw", "force_N",
	"accel_x", "accel_y", "accel_z", "endstop", "step_loss",
}

// DataStore collects the telemetry of the current run. It is safe for concurrent use
type DataStore struct {
	mtx    sync.Mutex
	points []DataRecord
}

func NewDataStore() *DataStore {
	return &DataStore{}
}

func (s *DataStore) Add(d DataRecord) {
	s.mtx.Lock()
	s.points = append(s.points, d)
	s.mtx.Unlock()
}

func (s *DataStore) Clear() {
	s.mtx.Lock()
	s.points = nil
	s.mtx.Unlock()
}

func (s *DataStore) Len() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return len(s.points)
}

// Points returns a copy of the stored samples
func (s *DataStore) Points() []DataRecord {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return append([]DataRecord(nil), s.points...)
}

// Summary has the ranges of the stored run
type Summary struct {
	Points          int
	MinDisplacement float64
	MaxDisplacement float64
	MinForce        float64
	MaxForce        float64
}

func (s *DataStore) Summary() Summary {
	points := s.Points()
	if len(points) == 0 {
		return Summary{}
	}

	sum := Summary{
		Points:          len(points),
		MinDisplacement: math.Inf(1),
		MaxDisplacement: math.Inf(-1),
		MinForce:        math.Inf(1),
		MaxForce:        math.Inf(-1),
	}
	for _, p := range points {
		d, f := p.DisplacementMM(), p.ForceN()
		sum.MinDisplacement = min(sum.MinDisplacement, d)
		sum.MaxDisplacement = max(sum.MaxDisplacement, d)
		sum.MinForce = min(sum.MinForce, f)
		sum.MaxForce = max(sum.MaxForce, f)
	}
	return sum
}

// WriteCSV writes the header and every sample using ';' as the delimiter
func (s *DataStore) WriteCSV(w io.Writer) error {
	points := s.Points()

	cw := csv.NewWriter(w)
	cw.Comma = ';'

	err := cw.Write(CSVHeader)
	if err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}

	for _, p := range points {
		err = cw.Write([]string{
			strconv.FormatFloat(p.Time().Seconds(), 'f', 3, 64),
			strconv.FormatInt(int64(p.Steps), 10),
			strconv.FormatFloat(p.DisplacementMM(), 'f', 4, 64),
			strconv.FormatInt(int64(p.Force), 10),
			strconv.FormatFloat(p.ForceN(), 'f', 3, 64),
			strconv.Itoa(int(p.AccelX)),
			strconv.Itoa(int(p.AccelY)),
			strconv.Itoa(int(p.AccelZ)),
			boolField(p.Endstop),
			boolField(p.StepLoss),
		})
		if err != nil {
			return fmt.Errorf("error writing row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// CSVFilename is the name a run saved at t gets
func CSVFilename(t time.Time) string {
	return "tensile_test_" + t.Format("20060102_150405") + ".csv"
}

// SaveCSV writes the run to a timestamped file in dir and returns its path
func (s *DataStore) SaveCSV(dir string, now time.Time) (string, error) {
	if s.Len() == 0 {
		return "", ErrNoData
	}

	path := filepath.Join(dir, CSVFilename(now))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("error creating file: %w", err)
	}
	defer f.Close()

	err = s.WriteCSV(f)
	if err != nil {
		return "", fmt.Errorf("error writing %s: %w", path, err)
	}
	return path, f.Close()
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
