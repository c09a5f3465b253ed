package analysis

import (
	"errors"

	"github.com/eclesh/welford"
)

var ErrNotEnoughSpecimens = errors.New("need at least 2 specimens")

// Summary is the mean and sample standard deviation of one property across specimens
type Summary struct {
	Mean   float64
	Stddev float64
}

// Stats summarises a series of specimens
type Stats struct {
	Specimens            int
	TensileStrengthMPa   Summary
	EModulusGPa          Summary
	ElongationAtBreakPct Summary
}

func summarize(values []float64) Summary {
	s := welford.New()
	for _, v := range values {
		s.Add(v)
	}
	return Summary{Mean: s.Mean(), Stddev: s.Stddev()}
}

func mean(values []float64) float64 {
	return summarize(values).Mean
}

// ComputeStats needs at least two results
func ComputeStats(results []Result) (Stats, error) {
	if len(results) < 2 {
		return Stats{}, ErrNotEnoughSpecimens
	}

	uts := make([]float64, len(results))
	emod := make([]float64, len(results))
	elong := make([]float64, len(results))
	for i, r := range results {
		uts[i] = r.TensileStrengthMPa
		emod[i] = r.EModulusGPa()
		elong[i] = r.ElongationAtBreakPct
	}

	return Stats{
		Specimens:            len(results),
		TensileStrengthMPa:   summarize(uts),
		EModulusGPa:          summarize(emod),
		ElongationAtBreakPct: summarize(elong),
	}, nil
}
