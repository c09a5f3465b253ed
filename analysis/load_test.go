package analysis

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCSV(t *testing.T) {
	input := "time_s;steps;displacement_mm;force_raw;force_N;accel_x;accel_y;accel_z;endstop;step_loss\n" +
		"0.100;-200;-1.0000;-1000;-0.222;0;0;0;1;0\n" +
		"1.500;400;2.0000;4510;1.000;1;-2;32;0;1\n"

	samples, err := LoadCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []Sample{
		{Time: 0.1, Steps: -200, DisplacementMM: -1, ForceRaw: -1000, ForceN: -0.222, Endstop: true},
		{Time: 1.5, Steps: 400, DisplacementMM: 2, ForceRaw: 4510, ForceN: 1, AccelX: 1, AccelY: -2, AccelZ: 32, StepLoss: true},
	}, samples)
}

func TestLoadCSVWithoutStepLoss(t *testing.T) {
	input := "time_s;steps;displacement_mm;force_raw;force_N;accel_x;accel_y;accel_z;endstop\n" +
		"0.100;20;0.1000;100;0.022;0;0;32;0\n"

	samples, err := LoadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.False(t, samples[0].StepLoss)
	assert.Equal(t, int64(32), samples[0].AccelZ)
}

func TestLoadCSVErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		err   string
	}{
		{"Empty", "", "no data points"},
		{"ShortRow", "header\n1;2;3\n", "line 2: want at least 9 columns, got 3"},
		{"BadNumber", "header\n0.1;x;0;0;0;0;0;0;0;0\n", "line 2: column 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCSV(strings.NewReader(tt.input))
			require.ErrorContains(t, err, tt.err)
		})
	}
}

func TestLoadLookup(t *testing.T) {
	lookup, err := LoadLookup(strings.NewReader("force;displacement\n100;0.1\n0;0\n200; 0.15\n"))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 100, 200}, lookup.Force)
	assert.Equal(t, []float64{0, 0.1, 0.15}, lookup.Displacement)

	lookup, err = LoadLookup(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, lookup.Force)

	_, err = LoadLookup(strings.NewReader("force;displacement\n1\n"))
	require.ErrorContains(t, err, "want 2 columns")

	_, err = LoadLookup(strings.NewReader("force;displacement\n1;abc\n"))
	require.ErrorContains(t, err, "column 2")
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()

	run := filepath.Join(dir, "run.csv")
	require.NoError(t, os.WriteFile(run, []byte("h\n0;0;0;0;0;0;0;0;0;0\n"), 0o600))
	samples, err := LoadCSVFile(run)
	require.NoError(t, err)
	assert.Len(t, samples, 1)

	_, err = LoadCSVFile(filepath.Join(dir, "missing.csv"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadLookupFile(filepath.Join(dir, "missing.csv"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
