package analysis

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
)

// AnalyzedCSVHeader is the column layout of the evaluated curve
var AnalyzedCSVHeader = []string{
	"displacement_mm", "displacement_corr_mm", "force_N", "stress_MPa", "strain_pct", "step_loss",
}

func (r Result) eModulusString(withPoints bool) string {
	if !r.HasEModulus() {
		return fmt.Sprintf("N/A (not enough data in %.2f-%.2f%% strain)", EModulusMinStrainPct, EModulusMaxStrainPct)
	}
	if withPoints {
		return fmt.Sprintf("%.2f GPa (R²=%.4f, %d pts)", r.EModulusGPa(), r.EModulusR2, r.EModulusPoints)
	}
	return fmt.Sprintf("%.2f GPa (R²=%.4f)", r.EModulusGPa(), r.EModulusR2)
}

func (r Result) stepLossString() string {
	p, ok := r.StepLoss()
	if !ok {
		return "none"
	}
	return fmt.Sprintf("DETECTED at %.0f N / %.2f%% strain", p.ForceN, p.StrainPct)
}

// PrintResults writes a table with the specimen and its results
func PrintResults(w io.Writer, r Result) error {
	table := tablewriter.NewWriter(w)
	table.Header("Property", "Value")

	rows := [][]string{
		{"File", r.Name},
		{"Data points", strconv.Itoa(len(r.Points))},
		{"Width", fmt.Sprintf("%.2f mm", r.Specimen.WidthMM)},
		{"Thickness", fmt.Sprintf("%.2f mm", r.Specimen.ThicknessMM)},
		{"Area", fmt.Sprintf("%.2f mm²", r.Specimen.AreaMM2())},
		{"Grip separation", fmt.Sprintf("%.1f mm", r.Specimen.GripMM)},
		{"Tensile strength", fmt.Sprintf("%.1f MPa (%.0f N)", r.TensileStrengthMPa, r.ForceAtMaxN)},
		{"E-modulus", r.eModulusString(true)},
		{"Elong. at break", fmt.Sprintf("%.2f%%", r.ElongationAtBreakPct)},
		{"Step loss", r.stepLossString()},
	}
	for _, row := range rows {
		err := table.Append(row)
		if err != nil {
			return err
		}
	}
	return table.Render()
}

// PrintStats writes one row per specimen followed by mean ± SD rows
func PrintStats(w io.Writer, results []Result, stats Stats) error {
	table := tablewriter.NewWriter(w)
	table.Header("Specimen", "UTS [MPa]", "E [GPa]", "Elongation [%]")

	for _, r := range results {
		err := table.Append([]string{
			r.Name,
			fmt.Sprintf("%.1f", r.TensileStrengthMPa),
			fmt.Sprintf("%.2f", r.EModulusGPa()),
			fmt.Sprintf("%.1f", r.ElongationAtBreakPct),
		})
		if err != nil {
			return err
		}
	}

	err := table.Append([]string{
		fmt.Sprintf("Mean ± SD (%d)", stats.Specimens),
		fmt.Sprintf("%.1f ± %.1f", stats.TensileStrengthMPa.Mean, stats.TensileStrengthMPa.Stddev),
		fmt.Sprintf("%.2f ± %.2f", stats.EModulusGPa.Mean, stats.EModulusGPa.Stddev),
		fmt.Sprintf("%.1f ± %.1f", stats.ElongationAtBreakPct.Mean, stats.ElongationAtBreakPct.Stddev),
	})
	if err != nil {
		return err
	}
	return table.Render()
}

// WriteAnalyzedCSV writes the evaluated curve using ';' as the delimiter
func WriteAnalyzedCSV(w io.Writer, r Result) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'

	err := cw.Write(AnalyzedCSVHeader)
	if err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}

	for _, p := range r.Points {
		stepLoss := "0"
		if p.StepLoss {
			stepLoss = "1"
		}
		err = cw.Write([]string{
			strconv.FormatFloat(p.DisplacementMM, 'f', 4, 64),
			strconv.FormatFloat(p.DisplacementCorrMM, 'f', 4, 64),
			strconv.FormatFloat(p.ForceN, 'f', 3, 64),
			strconv.FormatFloat(p.StressMPa, 'f', 3, 64),
			strconv.FormatFloat(p.StrainPct, 'f', 4, 64),
			stepLoss,
		})
		if err != nil {
			return fmt.Errorf("error writing row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteSummary writes the plain text results report
func WriteSummary(w io.Writer, r Result, now time.Time) error {
	var b strings.Builder
	b.WriteString("Tensile Test Analysis\n")
	b.WriteString(strings.Repeat("=", 50) + "\n")
	fmt.Fprintf(&b, "Source file:        %s\n", r.Name)
	fmt.Fprintf(&b, "Analysis date:      %s\n", now.Format("20060102_150405"))
	fmt.Fprintf(&b, "Data points:        %d\n\n", len(r.Points))
	b.WriteString("Specimen:\n")
	fmt.Fprintf(&b, "  Width:            %.2f mm\n", r.Specimen.WidthMM)
	fmt.Fprintf(&b, "  Thickness:        %.2f mm\n", r.Specimen.ThicknessMM)
	fmt.Fprintf(&b, "  Area:             %.2f mm²\n", r.Specimen.AreaMM2())
	fmt.Fprintf(&b, "  Grip separation:  %.1f mm\n\n", r.Specimen.GripMM)
	b.WriteString("Results:\n")
	fmt.Fprintf(&b, "  Tensile strength: %.1f MPa (%.0f N)\n", r.TensileStrengthMPa, r.ForceAtMaxN)
	if r.HasEModulus() {
		fmt.Fprintf(&b, "  E-modulus:        %s\n", r.eModulusString(false))
	} else {
		b.WriteString("  E-modulus:        N/A\n")
	}
	fmt.Fprintf(&b, "  Elong. at break:  %.2f%%\n", r.ElongationAtBreakPct)
	if p, ok := r.StepLoss(); ok {
		fmt.Fprintf(&b, "  Step Loss:        DETECTED at %.0f N\n", p.ForceN)
	} else {
		b.WriteString("  Step Loss:        none\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Save writes <base>_analyzed.csv and <base>_results.txt to dir, where base is the run's file
// name without its extension. It returns both paths
func Save(dir string, r Result, now time.Time) (string, string, error) {
	base := strings.TrimSuffix(filepath.Base(r.Name), filepath.Ext(r.Name))

	csvPath := filepath.Join(dir, base+"_analyzed.csv")
	err := writeFile(csvPath, func(w io.Writer) error { return WriteAnalyzedCSV(w, r) })
	if err != nil {
		return "", "", err
	}

	txtPath := filepath.Join(dir, base+"_results.txt")
	err = writeFile(txtPath, func(w io.Writer) error { return WriteSummary(w, r, now) })
	if err != nil {
		return "", "", err
	}
	return csvPath, txtPath, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating file: %w", err)
	}
	defer f.Close()

	err = write(f)
	if err != nil {
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	return f.Close()
}
