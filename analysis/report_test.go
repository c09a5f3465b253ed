package analysis

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResult(t *testing.T) Result {
	t.Helper()
	r, err := Analyze("tensile_test_20250304_050607.csv", testRun(), Lookup{}, testSpecimen)
	require.NoError(t, err)
	return r
}

func TestPrintResults(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintResults(&buf, testResult(t)))

	out := buf.String()
	assert.Contains(t, out, "tensile_test_20250304_050607.csv")
	assert.Contains(t, out, "10.00 mm²")
	assert.Contains(t, out, "8.0 MPa (80 N)")
	assert.Contains(t, out, "2.00 GPa")
	assert.Contains(t, out, "2.00%")
	assert.Contains(t, out, "DETECTED at 50 N")
}

func TestPrintResultsWithoutEModulus(t *testing.T) {
	r, err := Analyze("low.csv", []Sample{{ForceN: 1}, {ForceN: 2, DisplacementMM: 1}}, Lookup{}, testSpecimen)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, PrintResults(&buf, r))
	assert.Contains(t, buf.String(), "N/A")
	assert.Contains(t, buf.String(), "none")
}

func TestPrintStats(t *testing.T) {
	a := testResult(t)
	b := testResult(t)
	b.Name = "second.csv"
	b.TensileStrengthMPa = 10

	stats, err := ComputeStats([]Result{a, b})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, PrintStats(&buf, []Result{a, b}, stats))
	assert.Contains(t, buf.String(), "second.csv")
	assert.Contains(t, buf.String(), "9.0 ± 1.4")
}

func TestWriteAnalyzedCSV(t *testing.T) {
	r := Result{Points: []Point{
		{DisplacementMM: 0.1, ForceN: 10, StressMPa: 1},
		{DisplacementMM: 0.6, DisplacementCorrMM: 0.5, ForceN: 80, StressMPa: 8, StrainPct: 1, StepLoss: true},
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteAnalyzedCSV(&buf, r))

	expected := "displacement_mm;displacement_corr_mm;force_N;stress_MPa;strain_pct;step_loss\n" +
		"0.1000;0.0000;10.000;1.000;0.0000;0\n" +
		"0.6000;0.5000;80.000;8.000;1.0000;1\n"
	assert.Equal(t, expected, buf.String())
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	now := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	require.NoError(t, WriteSummary(&buf, testResult(t), now))

	lines := strings.Split(buf.String(), "\n")
	assert.Equal(t, "Tensile Test Analysis", lines[0])
	assert.Contains(t, lines, "Source file:        tensile_test_20250304_050607.csv")
	assert.Contains(t, lines, "Analysis date:      20250304_050607")
	assert.Contains(t, lines, "Data points:        9")
	assert.Contains(t, lines, "  Tensile strength: 8.0 MPa (80 N)")
	assert.Contains(t, lines, "  E-modulus:        2.00 GPa (R²=1.0000)")
	assert.Contains(t, lines, "  Elong. at break:  2.00%")
	assert.Contains(t, lines, "  Step Loss:        DETECTED at 50 N")
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	csvPath, txtPath, err := Save(dir, testResult(t), time.Now())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "tensile_test_20250304_050607_analyzed.csv"), csvPath)
	assert.Equal(t, filepath.Join(dir, "tensile_test_20250304_050607_results.txt"), txtPath)

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, 10, strings.Count(string(data), "\n"))
	assert.FileExists(t, txtPath)
}
