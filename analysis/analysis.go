// Package analysis post-processes saved tensile test runs: compliance correction, stress and
// strain, tensile strength, E-modulus and elongation at break
package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

const (
	// PreloadN is the force where the evaluated curve starts. Samples before it are settling
	PreloadN = 10.0

	// EModulusMinStrainPct and EModulusMaxStrainPct bound the linear fit for the E-modulus
	EModulusMinStrainPct = 0.05
	EModulusMaxStrainPct = 0.25
)

var ErrNoData = errors.New("no data points")

// Sample is one row of a saved run
type Sample struct {
	Time           float64
	Steps          int64
	DisplacementMM float64
	ForceRaw       int64
	ForceN         float64
	AccelX         int64
	AccelY         int64
	AccelZ         int64
	Endstop        bool
	StepLoss       bool
}

// Lookup maps force to the displacement of the machine itself. Forces are sorted ascending
type Lookup struct {
	Force        []float64
	Displacement []float64
}

// NewLookup sorts the pairs by force
func NewLookup(force, displacement []float64) (Lookup, error) {
	if len(force) != len(displacement) {
		return Lookup{}, fmt.Errorf("lookup has %d forces and %d displacements", len(force), len(displacement))
	}

	idx := make([]int, len(force))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return force[idx[a]] < force[idx[b]] })

	l := Lookup{Force: make([]float64, len(force)), Displacement: make([]float64, len(force))}
	for i, j := range idx {
		l.Force[i] = force[j]
		l.Displacement[i] = displacement[j]
	}
	return l, nil
}

// SystemDisplacement linearly interpolates the machine displacement at f. Forces outside the
// table use the nearest end. An empty table has no compliance
func (l Lookup) SystemDisplacement(f float64) float64 {
	n := len(l.Force)
	switch {
	case n == 0:
		return 0
	case f <= l.Force[0]:
		return l.Displacement[0]
	case f >= l.Force[n-1]:
		return l.Displacement[n-1]
	}

	i := sort.SearchFloat64s(l.Force, f)
	if l.Force[i] == f {
		return l.Displacement[i]
	}
	f0, f1 := l.Force[i-1], l.Force[i]
	d0, d1 := l.Displacement[i-1], l.Displacement[i]
	return d0 + (d1-d0)*(f-f0)/(f1-f0)
}

// Specimen is the cross-section and free length of the sample
type Specimen struct {
	WidthMM     float64
	ThicknessMM float64
	GripMM      float64
}

func (s Specimen) AreaMM2() float64 {
	return s.WidthMM * s.ThicknessMM
}

func (s Specimen) validate() error {
	if s.WidthMM <= 0 || s.ThicknessMM <= 0 || s.GripMM <= 0 {
		return fmt.Errorf("invalid specimen %+v: dimensions must be positive", s)
	}
	return nil
}

// Point is one evaluated sample
type Point struct {
	DisplacementMM     float64
	DisplacementCorrMM float64
	ForceN             float64
	StressMPa          float64
	Strain             float64
	StrainPct          float64
	StepLoss           bool
}

// Result is the evaluation of one specimen
type Result struct {
	Name     string
	Specimen Specimen
	Points   []Point

	TensileStrengthMPa float64
	ForceAtMaxN        float64

	// EModulusMPa and EModulusR2 are NaN when fewer than two points are in the fit range
	EModulusMPa    float64
	EModulusR2     float64
	EModulusPoints int

	ElongationAtBreakPct float64

	// StepLossIndex is the first point with step loss or -1
	StepLossIndex int
}

func (r Result) EModulusGPa() float64 {
	return r.EModulusMPa / 1000
}

func (r Result) HasEModulus() bool {
	return !math.IsNaN(r.EModulusMPa)
}

// StepLoss returns the first point where steps were lost
func (r Result) StepLoss() (Point, bool) {
	if r.StepLossIndex < 0 {
		return Point{}, false
	}
	return r.Points[r.StepLossIndex], true
}

// Analyze evaluates a run. Displacement is corrected for machine compliance, the curve is trimmed
// at the first sample reaching PreloadN and corrected displacement is zeroed there
func Analyze(name string, samples []Sample, lookup Lookup, specimen Specimen) (Result, error) {
	if len(samples) == 0 {
		return Result{}, ErrNoData
	}
	err := specimen.validate()
	if err != nil {
		return Result{}, err
	}

	start := 0
	for i, s := range samples {
		if s.ForceN >= PreloadN {
			start = i
			break
		}
	}
	samples = samples[start:]

	area := specimen.AreaMM2()
	result := Result{
		Name:          name,
		Specimen:      specimen,
		Points:        make([]Point, len(samples)),
		StepLossIndex: -1,
	}

	zero := samples[0].DisplacementMM - lookup.SystemDisplacement(samples[0].ForceN)
	maxIdx := 0
	for i, s := range samples {
		corr := s.DisplacementMM - lookup.SystemDisplacement(s.ForceN) - zero
		strain := corr / specimen.GripMM
		p := Point{
			DisplacementMM:     s.DisplacementMM,
			DisplacementCorrMM: corr,
			ForceN:             s.ForceN,
			StressMPa:          s.ForceN / area,
			Strain:             strain,
			StrainPct:          strain * 100,
			StepLoss:           s.StepLoss,
		}
		result.Points[i] = p

		if p.StressMPa > result.Points[maxIdx].StressMPa {
			maxIdx = i
		}
		if p.StepLoss && result.StepLossIndex < 0 {
			result.StepLossIndex = i
		}
	}

	result.TensileStrengthMPa = result.Points[maxIdx].StressMPa
	result.ForceAtMaxN = result.Points[maxIdx].ForceN
	result.ElongationAtBreakPct = result.Points[len(result.Points)-1].StrainPct
	result.EModulusMPa, result.EModulusR2, result.EModulusPoints = eModulus(result.Points)

	return result, nil
}

// eModulus fits stress against strain in the E-modulus strain range
func eModulus(points []Point) (float64, float64, int) {
	var x, y []float64
	for _, p := range points {
		if p.StrainPct >= EModulusMinStrainPct && p.StrainPct <= EModulusMaxStrainPct {
			x = append(x, p.Strain)
			y = append(y, p.StressMPa)
		}
	}
	if len(x) < 2 {
		return math.NaN(), math.NaN(), 0
	}

	slope, intercept := linearFit(x, y)

	meanY := mean(y)
	var ssRes, ssTot float64
	for i := range x {
		fit := slope*x[i] + intercept
		ssRes += (y[i] - fit) * (y[i] - fit)
		ssTot += (y[i] - meanY) * (y[i] - meanY)
	}

	r2 := 0.0
	if ssTot > 0 {
		r2 = 1 - ssRes/ssTot
	}
	return slope, r2, len(x)
}

// linearFit is an ordinary least squares fit of y = slope*x + intercept
func linearFit(x, y []float64) (float64, float64) {
	mx, my := mean(x), mean(y)
	var sxy, sxx float64
	for i := range x {
		sxy += (x[i] - mx) * (y[i] - my)
		sxx += (x[i] - mx) * (x[i] - mx)
	}
	if sxx == 0 {
		return math.NaN(), my
	}
	slope := sxy / sxx
	return slope, my - slope*mx
}
